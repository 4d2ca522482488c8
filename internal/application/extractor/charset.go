package extractor

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var declaredEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*encoding\s*=\s*["']([^"']+)["']`)

func lookupCharset(label string) (encoding.Encoding, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, true
	case "windows-1252", "cp1252":
		return charmap.Windows1252, true
	default:
		return nil, false
	}
}

// charsetReader lets encoding/xml read the legacy single-byte encodings that some
// issuer systems still emit.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, ok := lookupCharset(label)
	if !ok {
		return nil, fmt.Errorf("unsupported charset: %s", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// normalizeEncoding re-encodes a latin-1 or cp1252 document as UTF-8 and rewrites its
// XML declaration, so the stored body can be re-parsed and saved in a text column.
func normalizeEncoding(raw []byte) ([]byte, error) {
	head := raw
	if len(head) > 256 {
		head = head[:256]
	}
	m := declaredEncoding.FindSubmatchIndex(head)
	if m == nil {
		return raw, nil
	}
	enc, ok := lookupCharset(string(head[m[2]:m[3]]))
	if !ok {
		return raw, nil
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", head[m[2]:m[3]], err)
	}

	var buf bytes.Buffer
	buf.Grow(len(decoded))
	buf.Write(decoded[:m[2]])
	buf.WriteString("UTF-8")
	buf.Write(decoded[m[3]:])
	return buf.Bytes(), nil
}
