package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Route maps one predicate result to a target node id (or Exit).
type Route struct {
	Result string
	Target string
}

// ResultMapping is an ordered mapping from predicate result to target.
// It encodes as a JSON object and keeps the declared key order.
type ResultMapping []Route

// Mapping builds a ResultMapping from result/target pairs.
func Mapping(pairs ...string) ResultMapping {
	if len(pairs)%2 != 0 {
		panic("workflow: Mapping requires result/target pairs")
	}
	m := make(ResultMapping, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		m = m.With(pairs[i], pairs[i+1])
	}
	return m
}

// With returns the mapping with result routed to target. An existing result
// keeps its position and takes the new target.
func (m ResultMapping) With(result, target string) ResultMapping {
	for i, r := range m {
		if r.Result == result {
			out := append(ResultMapping(nil), m...)
			out[i].Target = target
			return out
		}
	}
	return append(m, Route{Result: result, Target: target})
}

// Lookup returns the target for a predicate result.
func (m ResultMapping) Lookup(result string) (string, bool) {
	for _, r := range m {
		if r.Result == result {
			return r.Target, true
		}
	}
	return "", false
}

// Results returns the predicate results in declared order.
func (m ResultMapping) Results() []string {
	out := make([]string, 0, len(m))
	for _, r := range m {
		out = append(out, r.Result)
	}
	return out
}

// Map returns the mapping as a plain map.
func (m ResultMapping) Map() map[string]string {
	out := make(map[string]string, len(m))
	for _, r := range m {
		out[r.Result] = r.Target
	}
	return out
}

// MarshalJSON encodes the mapping as a JSON object in declared order.
func (m ResultMapping) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Target)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (m *ResultMapping) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("result mapping must be a JSON object")
	}

	out := ResultMapping{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("result mapping key must be a string")
		}
		var target string
		if err := dec.Decode(&target); err != nil {
			return fmt.Errorf("result mapping value for %q: %w", key, err)
		}
		out = out.With(key, target)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
