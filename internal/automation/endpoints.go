package automation

import (
	"net/url"
	"strings"
)

// Query parameter names shared by the client and the reference gateway.
const (
	ParamJobID  = "id_encabezado"
	ParamOffset = "offset"
	ParamLimit  = "limit"
	ParamUser   = "idUsuario"
	ParamFile   = "file"
)

// Endpoints are gateway paths for one automation domain. "{id}" is replaced with the job id.
type Endpoints struct {
	Create   string
	ListJobs string
	ListRows string
	PageRows string
	Pause    string
	Resume   string
	Notify   string
	Export   string
}

// EndpointsFor expands the gateway path template for a domain suffix such as "Legal".
func EndpointsFor(domain string) Endpoints {
	return Endpoints{
		Create:   "/excel/guardar" + domain,
		ListJobs: "/listarAutomatizaciones" + domain,
		ListRows: "/listarAutomatizacionesDetalle" + domain,
		PageRows: "/automatizaciones" + domain + "/{id}/detalles",
		Pause:    "/pausar/{id}",
		Resume:   "/reanudar/{id}",
		Notify:   "/notificarFinalizacion" + domain,
		Export:   "/excel/exportar_resultados" + domain,
	}
}

// WithID fills the "{id}" placeholder of a path template.
func WithID(template, id string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(id))
}
