package scrub

import (
	"bytes"
	"unicode/utf8"
)

// toValidUTF8 mirrors Python's decode(errors="replace"): invalid byte
// sequences become the Unicode replacement character rather than
// aborting the scrub pass (original_source/sdk/ghostline/scrub.py
// decodes request/response bytes leniently before pattern matching).
func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b bytes.Buffer
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
			data = data[1:]
			continue
		}
		b.WriteRune(r)
		data = data[size:]
	}
	return b.String()
}

// replaceAllLiteral replaces every non-overlapping occurrence of old
// with new in s, treating old as a literal string rather than a
// pattern.
func replaceAllLiteral(s []byte, old, new string) []byte {
	if old == "" {
		return s
	}
	return bytes.ReplaceAll(s, []byte(old), []byte(new))
}
