package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Leak is one named mistake pattern and its current severity.
type Leak struct {
	Category string  `json:"category"`
	Name     string  `json:"leak"`
	Severity float64 `json:"severity"`
}

// ID renders the leak as "<category>.<leak>".
func (l Leak) ID() string { return l.Category + "." + l.Name }

type category struct {
	name  string
	leaks []Leak
	index map[string]int
}

// Weaknesses is a two-level ordered mapping category -> leak -> severity.
// Iteration follows insertion order, which is what makes focus selection
// deterministic when severities tie.
//
// The zero value is an empty, usable set. Copying a Weaknesses value shares
// storage; use Clone for an independent copy.
type Weaknesses struct {
	cats  []*category
	index map[string]int
}

// Clone returns an independent copy.
func (w Weaknesses) Clone() Weaknesses {
	out := Weaknesses{}
	for _, c := range w.cats {
		nc := &category{
			name:  c.name,
			leaks: append([]Leak(nil), c.leaks...),
			index: make(map[string]int, len(c.index)),
		}
		for k, v := range c.index {
			nc.index[k] = v
		}
		out.addCategory(nc)
	}
	return out
}

func (w *Weaknesses) addCategory(c *category) {
	if w.index == nil {
		w.index = make(map[string]int)
	}
	w.index[c.name] = len(w.cats)
	w.cats = append(w.cats, c)
}

func (w *Weaknesses) category(name string, create bool) *category {
	if i, ok := w.index[name]; ok {
		return w.cats[i]
	}
	if !create {
		return nil
	}
	c := &category{name: name, index: make(map[string]int)}
	w.addCategory(c)
	return c
}

// Get returns the severity for a leak and whether it exists.
func (w Weaknesses) Get(cat, leak string) (float64, bool) {
	c := w.category(cat, false)
	if c == nil {
		return 0, false
	}
	i, ok := c.index[leak]
	if !ok {
		return 0, false
	}
	return c.leaks[i].Severity, true
}

// Set stores a severity, appending the category and leak when new.
// Severities are clamped to [0, 100].
func (w *Weaknesses) Set(cat, leak string, severity float64) {
	c := w.category(cat, true)
	severity = clamp(severity, MinSeverity, MaxSeverity)
	if i, ok := c.index[leak]; ok {
		c.leaks[i].Severity = severity
		return
	}
	c.index[leak] = len(c.leaks)
	c.leaks = append(c.leaks, Leak{Category: cat, Name: leak, Severity: severity})
}

// Categories lists category names in insertion order.
func (w Weaknesses) Categories() []string {
	out := make([]string, len(w.cats))
	for i, c := range w.cats {
		out[i] = c.name
	}
	return out
}

// All flattens every leak in discovery order.
func (w Weaknesses) All() []Leak {
	var out []Leak
	for _, c := range w.cats {
		out = append(out, c.leaks...)
	}
	return out
}

// Len counts leaks across all categories.
func (w Weaknesses) Len() int {
	n := 0
	for _, c := range w.cats {
		n += len(c.leaks)
	}
	return n
}

func (w Weaknesses) scale(factor float64) {
	for _, c := range w.cats {
		for i := range c.leaks {
			v := c.leaks[i].Severity * factor
			if v < severityFloor {
				v = 0
			}
			c.leaks[i].Severity = clamp(v, MinSeverity, MaxSeverity)
		}
	}
}

// MarshalJSON writes nested objects keeping insertion order.
func (w Weaknesses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range w.cats {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, l := range c.leaks {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, l.Name); err != nil {
				return nil, err
			}
			v, err := json.Marshal(l.Severity)
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, k string) error {
	b, err := json.Marshal(k)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

// UnmarshalJSON reads nested objects, keeping the document's key order.
func (w *Weaknesses) UnmarshalJSON(data []byte) error {
	*w = Weaknesses{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		cat, err := stringToken(dec)
		if err != nil {
			return err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		w.category(cat, true)
		for dec.More() {
			leak, err := stringToken(dec)
			if err != nil {
				return err
			}
			var sev float64
			if err := dec.Decode(&sev); err != nil {
				return fmt.Errorf("weaknesses.%s.%s: %w", cat, leak, err)
			}
			w.Set(cat, leak, sev)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("weaknesses: expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("weaknesses: expected key, got %v", tok)
	}
	return s, nil
}
