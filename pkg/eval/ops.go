package eval

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gotypeset/pkg/model"
)

// MaxLength bounds the strings and arrays built by repetition and joining.
const MaxLength = 1 << 24

var (
	ErrTooLarge = errors.New("value is too large")
	errTooLong  = fmt.Errorf("result is longer than %d", MaxLength)
)

// AddInt, SubInt and MulInt are integer arithmetic that reports overflow
// instead of wrapping.
func AddInt(a, b Int) (Int, error) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, ErrTooLarge
	}
	return c, nil
}

func SubInt(a, b Int) (Int, error) {
	c := a - b
	if (b > 0 && c > a) || (b < 0 && c < a) {
		return 0, ErrTooLarge
	}
	return c, nil
}

func MulInt(a, b Int) (Int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || c/b != a {
		return 0, ErrTooLarge
	}
	return c, nil
}

func mismatch(op string, a, b Value) error {
	return fmt.Errorf("cannot %s %s and %s", op, TypeName(a), TypeName(b))
}

// join concatenates the outputs of consecutive expressions.
func join(a, b Value) (Value, error) {
	switch a := a.(type) {
	case None:
		return b, nil
	case Str:
		switch b := b.(type) {
		case Str:
			if len(a)+len(b) > MaxLength {
				return nil, errTooLong
			}
			return a + b, nil
		case Content:
			return Content{model.Join(&model.Text{Text: string(a)}, b.Content)}, nil
		}
	case Array:
		if b, ok := b.(Array); ok {
			if len(a)+len(b) > MaxLength {
				return nil, errTooLong
			}
			return append(append(Array(nil), a...), b...), nil
		}
	case Content:
		switch b := b.(type) {
		case Content:
			return Content{model.Join(a.Content, b.Content)}, nil
		case Str:
			return Content{model.Join(a.Content, &model.Text{Text: string(b)})}, nil
		}
	}
	if _, ok := b.(None); ok {
		return a, nil
	}
	// Anything else is displayed as content.
	return Content{model.Join(Display(a), Display(b))}, nil
}

func neg(v Value) (Value, error) {
	switch v := v.(type) {
	case Int:
		return SubInt(0, v)
	case Float:
		return -v, nil
	case Length:
		return Length(model.Length(v).Scale(-1)), nil
	}
	return nil, fmt.Errorf("cannot apply '-' to %s", TypeName(v))
}

func pos(v Value) (Value, error) {
	switch v.(type) {
	case Int, Float, Length:
		return v, nil
	}
	return nil, fmt.Errorf("cannot apply '+' to %s", TypeName(v))
}

func not(v Value) (Value, error) {
	if b, ok := v.(Bool); ok {
		return !b, nil
	}
	return nil, fmt.Errorf("cannot apply 'not' to %s", TypeName(v))
}

func add(a, b Value) (Value, error) {
	switch a := a.(type) {
	case None:
		return b, nil
	case Int:
		switch b := b.(type) {
		case Int:
			return AddInt(a, b)
		case Float:
			return Float(a) + b, nil
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return a + Float(b), nil
		case Float:
			return a + b, nil
		}
	case Length:
		if b, ok := b.(Length); ok {
			return Length(model.Length(a).Add(model.Length(b))), nil
		}
	case Str, Content, Array:
		switch b.(type) {
		case Str, Content, Array:
			return join(a, b)
		}
	case *Dict:
		if b, ok := b.(*Dict); ok {
			out := a
			for _, k := range b.keys {
				out = out.With(k, b.vals[k])
			}
			return out, nil
		}
	}
	if _, ok := b.(None); ok {
		return a, nil
	}
	return nil, mismatch("add", a, b)
}

func sub(a, b Value) (Value, error) {
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			return SubInt(a, b)
		case Float:
			return Float(a) - b, nil
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return a - Float(b), nil
		case Float:
			return a - b, nil
		}
	case Length:
		if b, ok := b.(Length); ok {
			return Length(model.Length(a).Add(model.Length(b).Scale(-1))), nil
		}
	}
	return nil, mismatch("subtract", a, b)
}

func mul(a, b Value) (Value, error) {
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			return MulInt(a, b)
		case Float:
			return Float(a) * b, nil
		case Length:
			return Length(model.Length(b).Scale(float64(a))), nil
		case Str:
			return repeat(b, int64(a))
		case Array:
			return repeatArray(b, int64(a))
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return a * Float(b), nil
		case Float:
			return a * b, nil
		case Length:
			return Length(model.Length(b).Scale(float64(a))), nil
		}
	case Length:
		switch b := b.(type) {
		case Int:
			return Length(model.Length(a).Scale(float64(b))), nil
		case Float:
			return Length(model.Length(a).Scale(float64(b))), nil
		}
	case Str:
		if n, ok := b.(Int); ok {
			return repeat(a, int64(n))
		}
	case Array:
		if n, ok := b.(Int); ok {
			return repeatArray(a, int64(n))
		}
	}
	return nil, mismatch("multiply", a, b)
}

func repeat(s Str, n int64) (Value, error) {
	if n < 0 {
		return nil, fmt.Errorf("cannot repeat a string %d times", n)
	}
	if len(s) > 0 && n > MaxLength/int64(len(s)) {
		return nil, errTooLong
	}
	return Str(strings.Repeat(string(s), int(n))), nil
}

func repeatArray(a Array, n int64) (Value, error) {
	if n < 0 {
		return nil, fmt.Errorf("cannot repeat an array %d times", n)
	}
	if len(a) == 0 {
		return Array{}, nil
	}
	if n > MaxLength/int64(len(a)) {
		return nil, errTooLong
	}
	out := make(Array, 0, len(a)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, a...)
	}
	return out, nil
}

func div(a, b Value) (Value, error) {
	if isZero(b) {
		return nil, fmt.Errorf("cannot divide by zero")
	}
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			if a == math.MinInt64 && b == -1 {
				return nil, ErrTooLarge
			}
			if a%b == 0 {
				return a / b, nil
			}
			return Float(a) / Float(b), nil
		case Float:
			return Float(a) / b, nil
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return a / Float(b), nil
		case Float:
			return a / b, nil
		}
	case Length:
		switch b := b.(type) {
		case Int:
			return Length(model.Length(a).Scale(1 / float64(b))), nil
		case Float:
			return Length(model.Length(a).Scale(1 / float64(b))), nil
		case Length:
			x, y := model.Length(a), model.Length(b)
			if x.Em == 0 && y.Em == 0 && x.Ratio == 0 && y.Ratio == 0 {
				return Float(x.Pt / y.Pt), nil
			}
		}
	}
	return nil, mismatch("divide", a, b)
}

func isZero(v Value) bool {
	switch v := v.(type) {
	case Int:
		return v == 0
	case Float:
		return v == 0
	}
	return false
}

// equal compares values structurally. Integers and floats compare by value.
func equal(a, b Value) bool {
	switch a := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Auto:
		_, ok := b.(Auto)
		return ok
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Int:
		switch b := b.(type) {
		case Int:
			return a == b
		case Float:
			return Float(a) == b
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return a == Float(b)
		case Float:
			return a == b
		}
	case Length:
		b, ok := b.(Length)
		return ok && a == b
	case Color:
		b, ok := b.(Color)
		return ok && a == b
	case Str:
		b, ok := b.(Str)
		return ok && a == b
	case Array:
		b, ok := b.(Array)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case *Dict:
		b, ok := b.(*Dict)
		if !ok || a.Len() != b.Len() {
			return false
		}
		for _, k := range a.keys {
			bv, ok := b.vals[k]
			if !ok || !equal(a.vals[k], bv) {
				return false
			}
		}
		return true
	case Content:
		b, ok := b.(Content)
		return ok && model.Hash(a.Content) == model.Hash(b.Content)
	case *Func:
		b, ok := b.(*Func)
		return ok && a == b
	case *Module:
		b, ok := b.(*Module)
		return ok && a == b
	}
	return false
}

// compare orders two values of compatible types.
func compare(a, b Value) (int, error) {
	var x, y float64
	switch a := a.(type) {
	case Int:
		x = float64(a)
	case Float:
		x = float64(a)
	case Str:
		if b, ok := b.(Str); ok {
			return strings.Compare(string(a), string(b)), nil
		}
		return 0, mismatch("compare", a, b)
	case Length:
		other, ok := b.(Length)
		if !ok {
			return 0, mismatch("compare", a, b)
		}
		la, lb := model.Length(a), model.Length(other)
		if la.Em != 0 || lb.Em != 0 || la.Ratio != 0 || lb.Ratio != 0 {
			return 0, fmt.Errorf("cannot compare %s and %s", la, lb)
		}
		x, y = la.Pt, lb.Pt
		return cmpFloat(x, y), nil
	default:
		return 0, mismatch("compare", a, b)
	}
	switch b := b.(type) {
	case Int:
		y = float64(b)
	case Float:
		y = float64(b)
	default:
		return 0, mismatch("compare", a, b)
	}
	return cmpFloat(x, y), nil
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// contains implements the "in" operator.
func contains(item, coll Value) (bool, error) {
	switch c := coll.(type) {
	case Str:
		s, ok := item.(Str)
		if !ok {
			return false, fmt.Errorf("cannot apply 'in' to %s and string", TypeName(item))
		}
		return strings.Contains(string(c), string(s)), nil
	case Array:
		for _, v := range c {
			if equal(v, item) {
				return true, nil
			}
		}
		return false, nil
	case *Dict:
		s, ok := item.(Str)
		if !ok {
			return false, fmt.Errorf("cannot apply 'in' to %s and dictionary", TypeName(item))
		}
		_, found := c.vals[string(s)]
		return found, nil
	}
	return false, fmt.Errorf("cannot apply 'in' to %s and %s", TypeName(item), TypeName(coll))
}

// toFloat converts numbers to float64.
func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Int:
		return float64(v), true
	case Float:
		return float64(v), true
	}
	return math.NaN(), false
}
