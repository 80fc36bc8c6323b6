// Package automation describes the automation domains ("kinds") the client understands:
// where their endpoints live, which row fields mark completion, and how completion is judged.
package automation

import (
	"strings"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
)

// Column is a detail column shown in listings and exports.
type Column struct {
	Key   string
	Title string
}

// Kind parameterizes the generic upload/progress/control/detail flow for one domain.
type Kind struct {
	Name      constants.KindName
	Domain    string
	Endpoints Endpoints

	// Markers are the row fields whose presence means the backend processed the row.
	Markers []string
	// PausedSentinel in any marker field excludes the row from the processed count.
	PausedSentinel string

	// BusinessKey is the field the detail filter matches against.
	BusinessKey         string
	FilterParam         string
	CaseSensitiveFilter bool

	Threshold       Threshold
	Columns         []Column
	DefaultPageSize int
}

// IsProcessed reports whether a row has at least one populated marker and none carrying the
// paused sentinel.
func (k Kind) IsProcessed(row entity.JobRow) bool {
	populated := false
	for _, m := range k.Markers {
		v := strings.TrimSpace(row.Get(m))
		if v == "" {
			continue
		}
		if k.isPaused(v) {
			return false
		}
		populated = true
	}
	return populated
}

func (k Kind) isPaused(v string) bool {
	sentinel := k.PausedSentinel
	if sentinel == "" {
		sentinel = constants.DefaultPausedSentinel
	}
	return strings.EqualFold(strings.TrimSpace(v), sentinel)
}

// Complete applies the kind's threshold, RoundedThreshold when none is set.
func (k Kind) Complete(p entity.Progress) bool {
	if k.Threshold == nil {
		return RoundedThreshold{}.Complete(p)
	}
	return k.Threshold.Complete(p)
}

// PrimaryMarker is the marker the reference gateway writes when it processes or pauses a row.
func (k Kind) PrimaryMarker() string {
	if len(k.Markers) == 0 {
		return ""
	}
	return k.Markers[0]
}

// Sentinel returns the effective paused sentinel.
func (k Kind) Sentinel() string {
	if k.PausedSentinel == "" {
		return constants.DefaultPausedSentinel
	}
	return k.PausedSentinel
}

// PageSize returns the page size to use when a caller passes none.
func (k Kind) PageSize(requested int) int {
	if requested > 0 {
		return requested
	}
	if k.DefaultPageSize > 0 {
		return k.DefaultPageSize
	}
	return 10
}

// Registry holds the kinds available to one client or gateway instance.
type Registry struct {
	kinds map[constants.KindName]Kind
	order []constants.KindName
}

func NewRegistry(kinds ...Kind) *Registry {
	r := &Registry{kinds: make(map[constants.KindName]Kind, len(kinds))}
	for _, k := range kinds {
		if _, dup := r.kinds[k.Name]; !dup {
			r.order = append(r.order, k.Name)
		}
		r.kinds[k.Name] = k
	}
	return r
}

// Lookup resolves a kind by name or one of its synonyms.
func (r *Registry) Lookup(name string) (Kind, error) {
	canonical, ok := constants.CanonicalizeKind(name)
	if !ok {
		canonical = constants.KindName(strings.ToLower(strings.TrimSpace(name)))
	}
	k, found := r.kinds[canonical]
	if !found {
		return Kind{}, common.NewAppError(common.CodeUnknownKind, "unknown automation kind "+name, nil)
	}
	return k, nil
}

// All returns the kinds in registration order.
func (r *Registry) All() []Kind {
	out := make([]Kind, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.kinds[n])
	}
	return out
}
