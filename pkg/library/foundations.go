package library

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"gotypeset/pkg/eval"
	"gotypeset/pkg/model"
)

// maxRange bounds the arrays built by range.
const maxRange = 1 << 20

func defineFoundations(scope *eval.Scope) {
	define(scope, eval.NewFunc("len", lenFunc))
	define(scope, eval.NewFunc("range", rangeFunc))
	define(scope, eval.NewFunc("str", strFunc))
	define(scope, eval.NewFunc("int", intFunc))
	define(scope, eval.NewFunc("float", floatFunc))
	define(scope, eval.NewFunc("repr", func(args *eval.Args) (eval.Value, error) {
		v, err := args.Expect("value")
		if err != nil {
			return nil, err
		}
		return eval.Str(eval.Repr(v)), nil
	}))
	define(scope, eval.NewFunc("type", func(args *eval.Args) (eval.Value, error) {
		v, err := args.Expect("value")
		if err != nil {
			return nil, err
		}
		return eval.Str(eval.TypeName(v)), nil
	}))
	define(scope, eval.NewFunc("assert", assertFunc))
	define(scope, eval.NewFunc("rgb", rgbFunc))
}

func lenFunc(args *eval.Args) (eval.Value, error) {
	v, err := args.Expect("collection")
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case eval.Str:
		return eval.Int(utf8.RuneCountInString(string(v))), nil
	case eval.Array:
		return eval.Int(len(v)), nil
	case *eval.Dict:
		return eval.Int(v.Len()), nil
	}
	return nil, fmt.Errorf("expected %s, found %s", eval.Describe("string", "array", "dictionary"), eval.TypeName(v))
}

// rangeFunc implements range(end) and range(start, end, step: 1).
func rangeFunc(args *eval.Args) (eval.Value, error) {
	step := int64(1)
	if v, ok := args.Named("step"); ok {
		var err error
		if step, err = eval.ToInt(v); err != nil {
			return nil, err
		}
		if step == 0 {
			return nil, fmt.Errorf("step must not be zero")
		}
	}
	first, err := args.Expect("end")
	if err != nil {
		return nil, err
	}
	var start, end int64
	if end, err = eval.ToInt(first); err != nil {
		return nil, err
	}
	if v, ok := args.Eat(); ok {
		start = end
		if end, err = eval.ToInt(v); err != nil {
			return nil, err
		}
	}
	out := eval.Array{}
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		if len(out) >= maxRange {
			return nil, fmt.Errorf("range is too large")
		}
		out = append(out, eval.Int(i))
	}
	return out, nil
}

func strFunc(args *eval.Args) (eval.Value, error) {
	v, err := args.Expect("value")
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case eval.Str:
		return v, nil
	case eval.Int, eval.Float, eval.Length, eval.Bool:
		return eval.Str(eval.Repr(v)), nil
	case eval.Content:
		return eval.Str(model.PlainText(v.Content)), nil
	}
	return nil, fmt.Errorf("cannot convert %s to string", eval.TypeName(v))
}

func intFunc(args *eval.Args) (eval.Value, error) {
	v, err := args.Expect("value")
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case eval.Int:
		return v, nil
	case eval.Float:
		return eval.Int(math.Trunc(float64(v))), nil
	case eval.Bool:
		if v {
			return eval.Int(1), nil
		}
		return eval.Int(0), nil
	case eval.Str:
		i, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %s", string(v))
		}
		return eval.Int(i), nil
	}
	return nil, fmt.Errorf("cannot convert %s to integer", eval.TypeName(v))
}

func floatFunc(args *eval.Args) (eval.Value, error) {
	v, err := args.Expect("value")
	if err != nil {
		return nil, err
	}
	if s, ok := v.(eval.Str); ok {
		f, err := strconv.ParseFloat(string(s), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float: %s", string(s))
		}
		return eval.Float(f), nil
	}
	f, err := eval.ToFloat(v)
	if err != nil {
		return nil, err
	}
	return eval.Float(f), nil
}

func assertFunc(args *eval.Args) (eval.Value, error) {
	message := "assertion failed"
	if v, ok := args.Named("message"); ok {
		s, err := eval.ToStr(v)
		if err != nil {
			return nil, err
		}
		message = "assertion failed: " + s
	}
	v, err := args.Expect("condition")
	if err != nil {
		return nil, err
	}
	ok, err := eval.ToBool(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s", message)
	}
	return eval.None{}, nil
}

// rgbFunc accepts a hex string or three or four components, each an
// integer from 0 to 255 or a ratio.
func rgbFunc(args *eval.Args) (eval.Value, error) {
	parts := args.All()
	if len(parts) == 1 {
		s, err := eval.ToStr(parts[0])
		if err != nil {
			return nil, err
		}
		c, err := model.ParseHex(s)
		if err != nil {
			return nil, err
		}
		return eval.Color(c), nil
	}
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("expected a hex string or 3 to 4 components, found %d arguments", len(parts))
	}
	comps := [4]uint8{0, 0, 0, 255}
	for i, p := range parts {
		c, err := component(p)
		if err != nil {
			return nil, err
		}
		comps[i] = c
	}
	return eval.Color(model.Color{R: comps[0], G: comps[1], B: comps[2], A: comps[3]}), nil
}

func component(v eval.Value) (uint8, error) {
	switch v := v.(type) {
	case eval.Int:
		if v < 0 || v > 255 {
			return 0, fmt.Errorf("color component must be between 0 and 255")
		}
		return uint8(v), nil
	case eval.Length:
		l := model.Length(v)
		if l.Pt != 0 || l.Em != 0 || l.Ratio < 0 || l.Ratio > 1 {
			return 0, fmt.Errorf("color component must be between 0%% and 100%%")
		}
		return uint8(math.Round(l.Ratio * 255)), nil
	}
	return 0, fmt.Errorf("expected %s, found %s", eval.Describe("integer", "ratio"), eval.TypeName(v))
}
