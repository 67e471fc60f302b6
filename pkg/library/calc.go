package library

import (
	"fmt"
	"math"

	"gotypeset/pkg/eval"
	"gotypeset/pkg/model"
)

func calcModule() *eval.Module {
	scope := eval.NewScope()
	define(scope, eval.NewFunc("abs", calcAbs))
	define(scope, eval.NewFunc("min", extremum("min", -1)))
	define(scope, eval.NewFunc("max", extremum("max", 1)))
	define(scope, eval.NewFunc("pow", calcPow))
	define(scope, eval.NewFunc("sqrt", float1(func(f float64) (float64, error) {
		if f < 0 {
			return 0, fmt.Errorf("cannot take square root of negative number")
		}
		return math.Sqrt(f), nil
	})))
	define(scope, eval.NewFunc("floor", rounding(math.Floor)))
	define(scope, eval.NewFunc("ceil", rounding(math.Ceil)))
	define(scope, eval.NewFunc("round", calcRound))
	define(scope, eval.NewFunc("rem", calcRem))
	scope.Define("pi", eval.Float(math.Pi))
	return &eval.Module{Name: "calc", Scope: scope, Content: model.Empty()}
}

func number(args *eval.Args, what string) (eval.Value, float64, error) {
	v, err := args.Expect(what)
	if err != nil {
		return nil, 0, err
	}
	f, err := eval.ToFloat(v)
	if err != nil {
		return nil, 0, err
	}
	return v, f, nil
}

func calcAbs(args *eval.Args) (eval.Value, error) {
	v, err := args.Expect("value")
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case eval.Int:
		if v < 0 {
			return eval.SubInt(0, v)
		}
		return v, nil
	case eval.Float:
		return eval.Float(math.Abs(float64(v))), nil
	case eval.Length:
		l := model.Length(v)
		return eval.Length(model.Length{Pt: math.Abs(l.Pt), Em: math.Abs(l.Em), Ratio: math.Abs(l.Ratio)}), nil
	}
	return nil, fmt.Errorf("expected %s, found %s", eval.Describe("integer", "float", "length"), eval.TypeName(v))
}

// extremum returns the smallest (sign -1) or largest (sign 1) argument.
func extremum(name string, sign float64) eval.NativeFunc {
	return func(args *eval.Args) (eval.Value, error) {
		values := args.All()
		if len(values) == 0 {
			return nil, fmt.Errorf("%s needs at least one value", name)
		}
		best := values[0]
		bestF, err := eval.ToFloat(best)
		if err != nil {
			return nil, err
		}
		for _, v := range values[1:] {
			f, err := eval.ToFloat(v)
			if err != nil {
				return nil, err
			}
			if (f-bestF)*sign > 0 {
				best, bestF = v, f
			}
		}
		return best, nil
	}
}

func calcPow(args *eval.Args) (eval.Value, error) {
	base, bf, err := number(args, "base")
	if err != nil {
		return nil, err
	}
	exp, ef, err := number(args, "exponent")
	if err != nil {
		return nil, err
	}
	bi, bInt := base.(eval.Int)
	ei, eInt := exp.(eval.Int)
	if bInt && eInt && ei >= 0 {
		return powInt(bi, ei)
	}
	return eval.Float(math.Pow(bf, ef)), nil
}

// powInt squares and multiplies, so the loop runs once per exponent bit.
func powInt(base, exp eval.Int) (eval.Value, error) {
	out := eval.Int(1)
	for exp > 0 {
		var err error
		if exp&1 == 1 {
			if out, err = eval.MulInt(out, base); err != nil {
				return nil, err
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, err = eval.MulInt(base, base); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// toInt converts a rounded float, rejecting values outside the integer range.
func toInt(x float64) (eval.Value, error) {
	if math.IsNaN(x) || x < math.MinInt64 || x >= math.MaxInt64 {
		return nil, eval.ErrTooLarge
	}
	return eval.Int(x), nil
}

func float1(f func(float64) (float64, error)) eval.NativeFunc {
	return func(args *eval.Args) (eval.Value, error) {
		_, x, err := number(args, "value")
		if err != nil {
			return nil, err
		}
		out, err := f(x)
		if err != nil {
			return nil, err
		}
		return eval.Float(out), nil
	}
}

func rounding(f func(float64) float64) eval.NativeFunc {
	return func(args *eval.Args) (eval.Value, error) {
		v, x, err := number(args, "value")
		if err != nil {
			return nil, err
		}
		if i, ok := v.(eval.Int); ok {
			return i, nil
		}
		return toInt(f(x))
	}
}

func calcRound(args *eval.Args) (eval.Value, error) {
	digits := int64(0)
	if d, ok := args.Named("digits"); ok {
		var err error
		if digits, err = eval.ToInt(d); err != nil {
			return nil, err
		}
	}
	v, x, err := number(args, "value")
	if err != nil {
		return nil, err
	}
	if i, ok := v.(eval.Int); ok {
		return i, nil
	}
	if digits == 0 {
		return toInt(math.Round(x))
	}
	scale := math.Pow(10, float64(digits))
	return eval.Float(math.Round(x*scale) / scale), nil
}

func calcRem(args *eval.Args) (eval.Value, error) {
	a, af, err := number(args, "dividend")
	if err != nil {
		return nil, err
	}
	b, bf, err := number(args, "divisor")
	if err != nil {
		return nil, err
	}
	if bf == 0 {
		return nil, fmt.Errorf("divisor must not be zero")
	}
	ai, aInt := a.(eval.Int)
	bi, bInt := b.(eval.Int)
	if aInt && bInt {
		return ai % bi, nil
	}
	return eval.Float(math.Mod(af, bf)), nil
}
