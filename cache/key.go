package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/goliatone/go-call-cache/internal/cacheinfra"
)

// Path is the canonical form of a Key: one string per hop in the store.
type Path = cacheinfra.Path

// Segment is one element of a Key. It is either a raw string, used as is,
// or a structured value that is canonicalized before use.
type Segment struct {
	raw        string
	value      any
	structured bool
}

// Raw returns a segment that is used verbatim.
func Raw(s string) Segment {
	return Segment{raw: s}
}

// Structured returns a segment built from an arbitrary value. Values that are
// structurally equal produce the same path segment regardless of map or
// field ordering.
func Structured(v any) Segment {
	return Segment{value: v, structured: true}
}

// Hash returns the canonical path segment for s.
func (s Segment) Hash() string {
	if !s.structured {
		return s.raw
	}
	return Hash(s.value)
}

// Key is an ordered list of segments. A shorter key is a prefix that denotes
// every entry below it.
type Key []Segment

// NewKey builds a Key from strings, Segments and arbitrary values. Strings
// become raw segments and other values become structured segments.
func NewKey(parts ...any) Key {
	key := make(Key, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case Segment:
			key = append(key, p)
		case string:
			key = append(key, Raw(p))
		default:
			key = append(key, Structured(p))
		}
	}
	return key
}

// Path canonicalizes the key.
func (k Key) Path() Path {
	return Canonicalize(k)
}

// Canonicalize maps every segment of key to its canonical string.
func Canonicalize(key Key) Path {
	path := make(Path, len(key))
	for i, seg := range key {
		path[i] = seg.Hash()
	}
	return path
}

// Hash canonicalizes a single value. Strings are returned unchanged; any
// other value is serialized to JSON with object keys sorted at every level.
// Values JSON cannot represent fall back to their type and address.
func Hash(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fallback(v)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return fallback(v)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return fallback(v)
	}
	return buf.String()
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return writeScalar(buf, val)
	}
}

func writeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// fallback identifies values JSON cannot encode. Funcs and channels are
// only stable within a single process.
func fallback(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%s:%p", rv.Type(), v)
	default:
		return fmt.Sprintf("%#v", v)
	}
}
