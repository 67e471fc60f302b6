package eval

import (
	"fmt"
	"strings"

	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

// Arg is one call argument. Name is empty for positional arguments.
type Arg struct {
	Name  string
	Value Value
	Span  syntax.Span
}

// Args are the arguments of a call. Functions consume what they accept
// and call Finish to reject the rest.
type Args struct {
	Span  syntax.Span
	Items []Arg
}

// NewArgs builds positional arguments, mainly for tests and methods.
func NewArgs(span syntax.Span, values ...Value) *Args {
	a := &Args{Span: span}
	for _, v := range values {
		a.Items = append(a.Items, Arg{Value: v, Span: span})
	}
	return a
}

// Eat takes the next positional argument if there is one.
func (a *Args) Eat() (Value, bool) {
	for i, arg := range a.Items {
		if arg.Name == "" {
			a.Items = append(a.Items[:i:i], a.Items[i+1:]...)
			return arg.Value, true
		}
	}
	return nil, false
}

// Expect takes the next positional argument or fails naming what.
func (a *Args) Expect(what string) (Value, error) {
	if v, ok := a.Eat(); ok {
		return v, nil
	}
	return nil, fmt.Errorf("missing argument: %s", what)
}

// Named takes the argument called name. The last one wins.
func (a *Args) Named(name string) (Value, bool) {
	var found Value
	ok := false
	kept := a.Items[:0:0]
	for _, arg := range a.Items {
		if arg.Name == name {
			found, ok = arg.Value, true
			continue
		}
		kept = append(kept, arg)
	}
	a.Items = kept
	return found, ok
}

// All takes every remaining positional argument.
func (a *Args) All() []Value {
	var out []Value
	for {
		v, ok := a.Eat()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Finish fails if arguments are left.
func (a *Args) Finish() error {
	if len(a.Items) == 0 {
		return nil
	}
	arg := a.Items[0]
	if arg.Name != "" {
		return fmt.Errorf("unexpected argument: %s", arg.Name)
	}
	return fmt.Errorf("unexpected argument")
}

// Casting helpers shared by the library and methods.

func castError(want string, v Value) error {
	return fmt.Errorf("expected %s, found %s", want, TypeName(v))
}

// ToInt casts integers.
func ToInt(v Value) (int64, error) {
	if i, ok := v.(Int); ok {
		return int64(i), nil
	}
	return 0, castError("integer", v)
}

// ToFloat casts integers and floats.
func ToFloat(v Value) (float64, error) {
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	return 0, castError("float", v)
}

// ToBool casts booleans.
func ToBool(v Value) (bool, error) {
	if b, ok := v.(Bool); ok {
		return bool(b), nil
	}
	return false, castError("boolean", v)
}

// ToStr casts strings.
func ToStr(v Value) (string, error) {
	if s, ok := v.(Str); ok {
		return string(s), nil
	}
	return "", castError("string", v)
}

// ToLength casts lengths. Zero integers are allowed as a shorthand.
func ToLength(v Value) (model.Length, error) {
	switch v := v.(type) {
	case Length:
		return model.Length(v), nil
	case Int:
		if v == 0 {
			return model.Length{}, nil
		}
	}
	return model.Length{}, castError("length", v)
}

// ToAbs casts lengths without relative parts to points.
func ToAbs(v Value) (float64, error) {
	l, err := ToLength(v)
	if err != nil {
		return 0, err
	}
	if l.Em != 0 || l.Ratio != 0 {
		return 0, fmt.Errorf("expected absolute length, found %s", l)
	}
	return l.Pt, nil
}

// ToColor casts colors.
func ToColor(v Value) (model.Color, error) {
	if c, ok := v.(Color); ok {
		return model.Color(c), nil
	}
	return model.Color{}, castError("color", v)
}

// ToContent casts strings and content; other values are displayed.
func ToContent(v Value) model.Content {
	return Display(v)
}

// ToFunc casts functions.
func ToFunc(v Value) (*Func, error) {
	if f, ok := v.(*Func); ok {
		return f, nil
	}
	return nil, castError("function", v)
}

// Describe lists what a function accepts for error messages.
func Describe(types ...string) string {
	switch len(types) {
	case 0:
		return "nothing"
	case 1:
		return types[0]
	}
	return strings.Join(types[:len(types)-1], ", ") + " or " + types[len(types)-1]
}
