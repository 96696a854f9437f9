package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Pair is one key/value entry of an Ordered mapping.
type Pair[V any] struct {
	Key   string
	Value V
}

// Ordered is a string-keyed mapping that keeps insertion
// order when encoded as a JSON object. Rankings and bin
// sequences rely on that order.
type Ordered[V any] []Pair[V]

// Get returns the value stored under key.
func (o Ordered[V]) Get(key string) (V, bool) {
	for _, p := range o {
		if p.Key == key {
			return p.Value, true
		}
	}
	var zero V
	return zero, false
}

// Keys returns the keys in order.
func (o Ordered[V]) Keys() []string {
	keys := make([]string, len(o))
	for i, p := range o {
		keys[i] = p.Key
	}
	return keys
}

// MarshalJSON encodes the mapping as a JSON object in order.
// A nil mapping encodes as {}.
func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", p.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (o *Ordered[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	out := Ordered[V]{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		out = append(out, Pair[V]{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}
