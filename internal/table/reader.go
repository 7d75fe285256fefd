package table

// reader.go cleans the byte stream before it reaches encoding/csv:
//
//   - a leading UTF-8 BOM (0xEF 0xBB 0xBF) is dropped so it does not end up
//     in the first column name
//   - invalid UTF-8 bytes are replaced with '?' on the fly

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cleanReader returns r with the BOM removed and invalid UTF-8 replaced.
func cleanReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &utf8Sanitizer{src: br}
}

// utf8Sanitizer replaces each invalid UTF-8 byte with '?'. Using a single
// byte keeps the output no longer than the input.
type utf8Sanitizer struct {
	src *bufio.Reader

	// Bytes of an encoded rune that did not fit into the caller's buffer.
	pending []byte

	// Source error held back until the bytes read before it are delivered.
	err error
}

// Read implements io.Reader.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	if s.err != nil {
		if n > 0 {
			return n, nil
		}
		return 0, s.err
	}

	var enc [utf8.UTFMax]byte
	for n < len(p) {
		r, size, err := s.src.ReadRune()
		if err != nil {
			s.err = err
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		w := utf8.EncodeRune(enc[:], r)
		c := copy(p[n:], enc[:w])
		n += c
		if c < w {
			s.pending = append(s.pending[:0], enc[c:w]...)
		}
	}

	return n, nil
}
