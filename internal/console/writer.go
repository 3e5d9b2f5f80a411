package console

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewUTF8Writer returns a writer that passes valid UTF-8 through unchanged and
// replaces invalid byte sequences with U+FFFD. A multi-byte sequence split
// across writes is held back until it completes; Close flushes what remains.
func NewUTF8Writer(w io.Writer) *transform.Writer {
	return transform.NewWriter(w, unicode.UTF8.NewDecoder())
}
