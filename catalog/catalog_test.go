package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestSynthesize_SearchVariant(t *testing.T) {
	bases := []BaseModel{{ID: "gemini-2.5-pro"}}
	entries := Synthesize(bases, Options{SearchEnabled: true})
	assert.Contains(t, ids(entries), "gemini-2.5-pro-search")
}

func TestSynthesize_SearchDisabledOmitsVariant(t *testing.T) {
	bases := []BaseModel{{ID: "gemini-2.5-pro"}}
	entries := Synthesize(bases, Options{SearchEnabled: false})
	assert.NotContains(t, ids(entries), "gemini-2.5-pro-search")
}

func TestSynthesize_SearchSkipsOldFamily(t *testing.T) {
	bases := []BaseModel{{ID: "gemini-1.0-pro"}}
	entries := Synthesize(bases, Options{SearchEnabled: true})
	assert.NotContains(t, ids(entries), "gemini-1.0-pro-search")
}

func TestSynthesize_SearchSkipsAlreadySuffixed(t *testing.T) {
	bases := []BaseModel{{ID: "gemini-2.5-pro-search"}}
	entries := Synthesize(bases, Options{SearchEnabled: true})
	count := 0
	for _, id := range ids(entries) {
		if id == "gemini-2.5-pro-search" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSynthesize_NonThinkingVariant(t *testing.T) {
	bases := []BaseModel{{ID: "gemini-2.5-flash-preview"}}
	entries := Synthesize(bases, Options{})
	assert.Contains(t, ids(entries), "gemini-2.5-flash-preview:non-thinking")
}

func TestSynthesize_AlternateVariantGatedByFlag(t *testing.T) {
	bases := []BaseModel{{ID: "gemini-pro", SupportsAlternate: true}}
	withFlag := Synthesize(bases, Options{AlternateEnabled: true})
	assert.Contains(t, ids(withFlag), "[v]gemini-pro")

	withoutFlag := Synthesize(bases, Options{AlternateEnabled: false})
	assert.NotContains(t, ids(withoutFlag), "[v]gemini-pro")
}

func TestResolve_DispatchMetadata(t *testing.T) {
	bases := []BaseModel{{ID: "gemini-2.5-flash-preview", SupportsAlternate: true}}
	opts := Options{SearchEnabled: true, AlternateEnabled: true}

	nt, ok := Resolve(bases, opts, "gemini-2.5-flash-preview:non-thinking")
	require.True(t, ok)
	assert.True(t, nt.NonThinking)
	assert.Equal(t, "gemini-2.5-flash-preview", nt.BaseID)

	alt, ok := Resolve(bases, opts, "[v]gemini-2.5-flash-preview")
	require.True(t, ok)
	assert.True(t, alt.Alternate)

	_, ok = Resolve(bases, opts, "not-a-real-model")
	assert.False(t, ok)
}
