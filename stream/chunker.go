// Package stream implements the upstream byte-stream pipeline: extracting
// whole JSON objects from a chunked body (Chunker), converting each object
// to an OpenAI SSE frame (Translator), and a concurrent heartbeat pump that
// keeps the client connection alive while the upstream call is in flight
// (KeepAlivePump). The chunker is new code (the teacher reconstructs from
// newline-delimited SSE in proxy/stream.go, but this upstream dialect is not
// always newline-delimited) written in the same small-stateful-scanner idiom
// the teacher uses there.
package stream

// Chunker extracts complete top-level JSON objects from an upstream byte
// stream that may be a bare concatenation of objects or a JSON array of
// them. It never blocks waiting for a delimiter: Feed returns every object
// that became complete within the bytes just appended.
type Chunker struct {
	buf      []byte
	depth    int
	start    int
	inString bool
	escape   bool
}

// NewChunker returns a ready-to-use Chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Feed appends b to the internal buffer and returns every JSON object that
// completed as a result, in input order. The buffer is trimmed after each
// call to whatever partial object is still in progress, so a well-behaved
// stream of many small objects doesn't grow the buffer without bound.
func (c *Chunker) Feed(b []byte) []string {
	base := len(c.buf)
	c.buf = append(c.buf, b...)
	out := c.scan(base, len(c.buf))
	c.trim()
	return out
}

// trim drops buffered bytes that precede the object currently being
// assembled (or the whole buffer, when nothing is in progress).
func (c *Chunker) trim() {
	if c.depth == 0 {
		c.buf = c.buf[:0]
		return
	}
	if c.start == 0 {
		return
	}
	c.buf = append(c.buf[:0], c.buf[c.start:]...)
	c.start = 0
}

// scan walks buf[from:to], updating state and collecting completed objects.
func (c *Chunker) scan(from, to int) []string {
	var out []string
	for i := from; i < to; i++ {
		ch := c.buf[i]

		if c.inString {
			switch {
			case c.escape:
				c.escape = false
			case ch == '\\':
				c.escape = true
			case ch == '"':
				c.inString = false
			}
			continue
		}

		switch ch {
		case '"':
			c.inString = true
		case '{':
			if c.depth == 0 {
				c.start = i
			}
			c.depth++
		case '}':
			if c.depth > 0 {
				c.depth--
				if c.depth == 0 {
					out = append(out, string(c.buf[c.start:i+1]))
				}
			}
		case '[', ']', ',':
			// Array delimiters outside strings carry no structural meaning
			// for object extraction; ignored per spec.
		}
	}
	return out
}

// Flush performs the end-of-stream residual scan: a well-formed stream
// leaves depth==0 and an empty tail. Anything still buffered at that point
// is a malformed residual tail and is discarded; log, if non-nil, receives
// a debug line naming its length.
func (c *Chunker) Flush(log func(format string, args ...interface{})) {
	if len(c.buf) > 0 && log != nil {
		log("discarding malformed residual stream tail (%d bytes)", len(c.buf))
	}
	c.buf = c.buf[:0]
	c.depth = 0
	c.start = 0
	c.inString = false
	c.escape = false
}
