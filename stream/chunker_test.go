package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_SingleObject(t *testing.T) {
	c := NewChunker()
	out := c.Feed([]byte(`{"a":1}`))
	require.Len(t, out, 1)
	assert.Equal(t, `{"a":1}`, out[0])
}

func TestChunker_ConcatenatedObjects(t *testing.T) {
	c := NewChunker()
	out := c.Feed([]byte(`{"a":1}{"b":2}`))
	require.Len(t, out, 2)
	assert.Equal(t, `{"a":1}`, out[0])
	assert.Equal(t, `{"b":2}`, out[1])
}

func TestChunker_JSONArrayWrapperIgnoresDelimiters(t *testing.T) {
	c := NewChunker()
	out := c.Feed([]byte(`[{"a":1},{"b":2}]`))
	require.Len(t, out, 2)
	assert.Equal(t, `{"a":1}`, out[0])
	assert.Equal(t, `{"b":2}`, out[1])
}

func TestChunker_BraceInsideString(t *testing.T) {
	c := NewChunker()
	out := c.Feed([]byte(`{"a":"}"}`))
	require.Len(t, out, 1)
	assert.Equal(t, `{"a":"}"}`, out[0])
}

func TestChunker_EscapedQuoteInsideString(t *testing.T) {
	c := NewChunker()
	out := c.Feed([]byte(`{"a":"say \"hi\""}`))
	require.Len(t, out, 1)
	assert.Equal(t, `{"a":"say \"hi\""}`, out[0])
}

func TestChunker_SplitAcrossFeeds(t *testing.T) {
	c := NewChunker()
	out1 := c.Feed([]byte(`{"a":"hel`))
	assert.Empty(t, out1)
	out2 := c.Feed([]byte(`lo"}{"b":2}`))
	require.Len(t, out2, 2)
	assert.Equal(t, `{"a":"hello"}`, out2[0])
	assert.Equal(t, `{"b":2}`, out2[1])
}

func TestChunker_NestedObjects(t *testing.T) {
	c := NewChunker()
	out := c.Feed([]byte(`{"a":{"b":{"c":1}}}`))
	require.Len(t, out, 1)
	assert.Equal(t, `{"a":{"b":{"c":1}}}`, out[0])
}

func TestChunker_FlushDiscardsMalformedTail(t *testing.T) {
	c := NewChunker()
	c.Feed([]byte(`{"a":1}{"incomplete":`))
	var logged string
	c.Flush(func(format string, args ...interface{}) { logged = format })
	assert.NotEmpty(t, logged)
}

func TestChunker_OrderPreservedAcrossManyFeeds(t *testing.T) {
	c := NewChunker()
	var got []string
	got = append(got, c.Feed([]byte(`{"i":1}`))...)
	got = append(got, c.Feed([]byte(`{"i":2}{"i":3`))...)
	got = append(got, c.Feed([]byte(`}{"i":4}`))...)
	require.Len(t, got, 4)
	assert.Equal(t, []string{`{"i":1}`, `{"i":2}`, `{"i":3}`, `{"i":4}`}, got)
}
