package eval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gotypeset/pkg/model"
)

// Value is a value of the scripting language. The implementations are
// closed; consumers switch over the concrete types.
type Value interface {
	isValue()
}

type (
	None   struct{}
	Auto   struct{}
	Bool   bool
	Int    int64
	Float  float64
	Length model.Length
	Color  model.Color
	Str    string
	Array  []Value
)

// Content wraps a content tree as a value.
type Content struct {
	model.Content
}

// Dict is an insertion-ordered map. It is not modified after creation.
type Dict struct {
	keys []string
	vals map[string]Value
}

func (None) isValue()     {}
func (Auto) isValue()     {}
func (Bool) isValue()     {}
func (Int) isValue()      {}
func (Float) isValue()    {}
func (Length) isValue()   {}
func (Color) isValue()    {}
func (Str) isValue()      {}
func (Array) isValue()    {}
func (Content) isValue()  {}
func (*Dict) isValue()    {}
func (*Func) isValue()    {}
func (*Module) isValue()  {}

// NewDict builds a dictionary. Later duplicates overwrite earlier keys
// but keep their first position.
func NewDict(keys []string, vals []Value) *Dict {
	d := &Dict{vals: make(map[string]Value, len(keys))}
	for i, k := range keys {
		if _, ok := d.vals[k]; !ok {
			d.keys = append(d.keys, k)
		}
		d.vals[k] = vals[i]
	}
	return d
}

// Get looks up key.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string { return append([]string(nil), d.keys...) }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// With returns a copy of d with key set to v.
func (d *Dict) With(key string, v Value) *Dict {
	keys := append(d.Keys(), key)
	vals := make([]Value, 0, len(keys))
	for _, k := range d.keys {
		vals = append(vals, d.vals[k])
	}
	return NewDict(keys, append(vals, v))
}

// TypeName returns the user-facing name of the type of v.
func TypeName(v Value) string {
	switch v := v.(type) {
	case None:
		return "none"
	case Auto:
		return "auto"
	case Bool:
		return "boolean"
	case Int:
		return "integer"
	case Float:
		return "float"
	case Length:
		if v.Pt == 0 && v.Em == 0 && v.Ratio != 0 {
			return "ratio"
		}
		return "length"
	case Color:
		return "color"
	case Str:
		return "string"
	case Array:
		return "array"
	case Content:
		return "content"
	case *Dict:
		return "dictionary"
	case *Func:
		return "function"
	case *Module:
		return "module"
	}
	return "unknown"
}

// Repr formats v the way it would be written in code.
func Repr(v Value) string {
	switch v := v.(type) {
	case None:
		return "none"
	case Auto:
		return "auto"
	case Bool:
		return strconv.FormatBool(bool(v))
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Float:
		return formatFloat(float64(v))
	case Length:
		return model.Length(v).String()
	case Color:
		return fmt.Sprintf("rgb(%q)", model.Color(v).String())
	case Str:
		return strconv.Quote(string(v))
	case Array:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = Repr(item)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case Content:
		return "[" + model.PlainText(v.Content) + "]"
	case *Dict:
		if v.Len() == 0 {
			return "(:)"
		}
		parts := make([]string, 0, v.Len())
		for _, k := range v.keys {
			parts = append(parts, k+": "+Repr(v.vals[k]))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Func:
		if v.name == "" {
			return "(..) => .."
		}
		return v.name
	case *Module:
		return "<module " + v.Name + ">"
	}
	return "?"
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Display converts v into content for placement in markup.
func Display(v Value) model.Content {
	switch v := v.(type) {
	case None:
		return model.Empty()
	case Content:
		return v.Content
	case Str:
		return &model.Text{Text: string(v)}
	case Int, Float, Bool, Length, Color:
		return &model.Text{Text: Repr(v)}
	case Array:
		parts := make([]model.Content, len(v))
		for i, item := range v {
			parts[i] = Display(item)
		}
		return model.Join(parts...)
	}
	return &model.Raw{Text: Repr(v)}
}

// sortValues sorts a copy of items, failing on incomparable values.
func sortValues(items Array) (Array, error) {
	out := append(Array(nil), items...)
	var err error
	sort.SliceStable(out, func(i, j int) bool {
		c, e := compare(out[i], out[j])
		if e != nil && err == nil {
			err = e
		}
		return c < 0
	})
	return out, err
}
