package constants

import (
	"strings"
)

// KindName identifies an automation domain ("legal", "rues", ...).
type KindName string

const (
	KindLegal    KindName = "legal"
	KindVigencia KindName = "vigencia"
	KindRues     KindName = "rues"
	KindWhatsApp KindName = "whatsapp"
)

var allKinds = []KindName{
	KindLegal,
	KindVigencia,
	KindRues,
	KindWhatsApp,
}

func KindsAsStringSlice() []string {
	result := make([]string, len(allKinds))
	for i, k := range allKinds {
		result[i] = string(k)
	}
	return result
}

// CanonicalizeKind maps user input (including a few legacy screen names) to a KindName.
func CanonicalizeKind(input string) (KindName, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]KindName{
		"juridico":   KindLegal,
		"procesos":   KindLegal,
		"telefonos":  KindVigencia,
		"registro":   KindRues,
		"wa":         KindWhatsApp,
		"mensajeria": KindWhatsApp,
	}
	if k, ok := synonyms[normalized]; ok {
		return k, true
	}

	for _, k := range allKinds {
		if normalized == string(k) {
			return k, true
		}
	}
	return "", false
}
