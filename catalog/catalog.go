// Package catalog synthesizes the virtual model ids the gateway exposes
// (search-enabled and non-thinking variants, alternate-backend aliases) from
// the configured base model set, and dispatches an incoming request's model
// id to the concrete upstream call it implies. GET /v1/models and request
// validation share this logic (see spec §9's Open Question resolution:
// duplicating synthesis between the listing endpoint and the validation
// path invites drift, so both call Synthesize).
package catalog

import (
	"regexp"
	"strings"
)

// familyVersionPattern matches a model family followed by a major.minor
// version of 2.x or higher, e.g. "gemini-2.5" or "gemini-3.0".
var familyVersionPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+-[2-9]\.\d`)

const (
	searchSuffix      = "-search"
	nonThinkingSuffix = ":non-thinking"
	alternatePrefix   = "[v]"
	nonThinkingFamily = "2.5-flash-preview"
)

// BaseModel is one entry from the persistent model config the catalog
// augments with virtual variants.
type BaseModel struct {
	ID                 string
	SupportsAlternate  bool
}

// Options gates which virtual variants are synthesized.
type Options struct {
	SearchEnabled    bool
	AlternateEnabled bool
}

// Entry is one synthesized catalog id plus the dispatch metadata describing
// how to reach the model it names.
type Entry struct {
	ID string
	// BaseID is the underlying configured model id with any virtual
	// decoration stripped.
	BaseID string
	// Alternate is true when this id must be routed to the alternate
	// (service-account) backend.
	Alternate bool
	// NonThinking is true when thinkingBudget must be forced to zero.
	NonThinking bool
	// Search is true when the upstream search tool should be enabled.
	Search bool
}

// Synthesize builds the full set of client-visible model ids from the
// configured base models and the feature flags in opts. The returned slice
// always includes each base model verbatim plus its applicable virtual
// variants.
func Synthesize(bases []BaseModel, opts Options) []Entry {
	entries := make([]Entry, 0, len(bases)*2)
	for _, b := range bases {
		entries = append(entries, Entry{ID: b.ID, BaseID: b.ID})

		if opts.SearchEnabled && familyVersionPattern.MatchString(b.ID) && !strings.HasSuffix(b.ID, searchSuffix) {
			entries = append(entries, Entry{ID: b.ID + searchSuffix, BaseID: b.ID, Search: true})
		}

		if strings.Contains(b.ID, nonThinkingFamily) && !strings.HasSuffix(b.ID, nonThinkingSuffix) {
			entries = append(entries, Entry{ID: b.ID + nonThinkingSuffix, BaseID: b.ID, NonThinking: true})
		}

		if opts.AlternateEnabled && b.SupportsAlternate {
			entries = append(entries, Entry{ID: alternatePrefix + b.ID, BaseID: b.ID, Alternate: true})
		}
	}
	return entries
}

// Resolve looks up id within the synthesized set, returning its dispatch
// Entry and true, or the zero Entry and false when id is not a member.
func Resolve(bases []BaseModel, opts Options, id string) (Entry, bool) {
	for _, e := range Synthesize(bases, opts) {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
