package automation

import "github.com/joseph-ayodele/automations/constants"

// DefaultRegistry returns a fresh registry with the built-in kinds.
func DefaultRegistry() *Registry {
	return NewRegistry(Legal(), Vigencia(), Rues(), WhatsApp())
}

// Legal tracks court case lookups by national id.
func Legal() Kind {
	return Kind{
		Name:        constants.KindLegal,
		Domain:      "Legal",
		Endpoints:   EndpointsFor("Legal"),
		Markers:     []string{"estado_proceso", "resultado"},
		BusinessKey: "cedula",
		FilterParam: "cc",
		Threshold:   RoundedThreshold{},
		Columns: []Column{
			{Key: "cedula", Title: "Cédula"},
			{Key: "nombre", Title: "Nombre"},
			{Key: "radicado", Title: "Radicado"},
			{Key: "despacho", Title: "Despacho"},
			{Key: "estado_proceso", Title: "Estado del proceso"},
			{Key: "resultado", Title: "Resultado"},
		},
	}
}

// Vigencia checks whether phone numbers are still active.
func Vigencia() Kind {
	return Kind{
		Name:        constants.KindVigencia,
		Domain:      "Vigencia",
		Endpoints:   EndpointsFor("Vigencia"),
		Markers:     []string{"vigencia", "operador"},
		BusinessKey: "cedula",
		FilterParam: "cc",
		Threshold:   ExactMatchThreshold{},
		Columns: []Column{
			{Key: "cedula", Title: "Cédula"},
			{Key: "nombre", Title: "Nombre"},
			{Key: "telefono", Title: "Teléfono"},
			{Key: "vigencia", Title: "Vigencia"},
			{Key: "operador", Title: "Operador"},
		},
	}
}

// Rues queries the business registry by tax id.
func Rues() Kind {
	return Kind{
		Name:                constants.KindRues,
		Domain:              "Rues",
		Endpoints:           EndpointsFor("Rues"),
		Markers:             []string{"estado_rues", "matricula"},
		BusinessKey:         "nit",
		FilterParam:         "nit",
		CaseSensitiveFilter: true,
		Threshold:           RoundedThreshold{},
		Columns: []Column{
			{Key: "nit", Title: "NIT"},
			{Key: "razon_social", Title: "Razón social"},
			{Key: "matricula", Title: "Matrícula"},
			{Key: "estado_rues", Title: "Estado RUES"},
		},
	}
}

// WhatsApp sends campaign messages through the outreach provider.
func WhatsApp() Kind {
	return Kind{
		Name:            constants.KindWhatsApp,
		Domain:          "Whatsapp",
		Endpoints:       EndpointsFor("Whatsapp"),
		Markers:         []string{"estado_envio"},
		BusinessKey:     "telefono",
		FilterParam:     "telefono",
		Threshold:       ExactMatchThreshold{},
		DefaultPageSize: 20,
		Columns: []Column{
			{Key: "telefono", Title: "Teléfono"},
			{Key: "nombre", Title: "Nombre"},
			{Key: "mensaje", Title: "Mensaje"},
			{Key: "estado_envio", Title: "Estado de envío"},
		},
	}
}
