package format

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"
	"unicode"
)

// instKeys are the timestamp fields of reblock payloads. Their values are written
// as #inst tagged literals.
var instKeys = map[string]bool{
	"createdAt": true,
	"updatedAt": true,
	"ts":        true,
}

// WriteEDN writes an EDN rendering of v. Field names come from the json tags, the
// same as the json and yaml output.
//
// Keys that are valid keywords become keywords; other keys (block attribute names
// are user supplied) stay strings. Integers are written exactly.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	x, err := decodeJSONValue(v)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := ednEncoder{pretty: pretty}
	enc.writeAny(&buf, x, 0)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// decodeJSONValue round-trips v through JSON, keeping numbers as json.Number.
func decodeJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var x any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return nil, err
	}
	return x, nil
}

type ednEncoder struct {
	pretty bool
}

func (e ednEncoder) writeAny(buf *bytes.Buffer, v any, level int) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeEDNString(buf, t)
	case json.Number:
		s := t.String()
		if _, err := t.Int64(); err != nil && !strings.ContainsAny(s, ".eE") {
			// Out of int64 range.
			s += "N"
		}
		buf.WriteString(s)
	case []any:
		e.writeSeq(buf, '[', ']', len(t), level, func(i int) {
			e.writeAny(buf, t[i], level+1)
		})
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.writeSeq(buf, '{', '}', len(keys), level, func(i int) {
			k := keys[i]
			writeEDNKey(buf, k)
			buf.WriteByte(' ')
			if s, ok := t[k].(string); ok && instKeys[k] {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					buf.WriteString("#inst ")
					writeEDNString(buf, ts.UTC().Format(time.RFC3339Nano))
					return
				}
			}
			e.writeAny(buf, t[k], level+1)
		})
	}
}

func (e ednEncoder) writeSeq(buf *bytes.Buffer, open, close byte, n, level int, item func(int)) {
	buf.WriteByte(open)
	if n == 0 {
		buf.WriteByte(close)
		return
	}
	for i := 0; i < n; i++ {
		switch {
		case e.pretty:
			buf.WriteByte('\n')
			buf.WriteString(strings.Repeat("  ", level+1))
		case i > 0:
			buf.WriteByte(' ')
		}
		item(i)
	}
	if e.pretty {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat("  ", level))
	}
	buf.WriteByte(close)
}

func writeEDNKey(buf *bytes.Buffer, k string) {
	if !isEDNKeyword(k) {
		writeEDNString(buf, k)
		return
	}
	buf.WriteByte(':')
	buf.WriteString(k)
}

// isEDNKeyword reports whether k can follow ':' as a plain keyword. Namespaced
// names such as "core/paragraph" qualify.
func isEDNKeyword(k string) bool {
	if k == "" || strings.HasPrefix(k, "/") || strings.HasSuffix(k, "/") || strings.Count(k, "/") > 1 {
		return false
	}
	for i, r := range k {
		switch {
		case unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		case strings.ContainsRune("*+!-_?.<>=/", r):
		default:
			return false
		}
	}
	return true
}

// writeEDNString quotes s using only the escapes EDN readers accept.
func writeEDNString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				buf.WriteString(`\u00`)
				buf.WriteByte("0123456789abcdef"[r>>4])
				buf.WriteByte("0123456789abcdef"[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
