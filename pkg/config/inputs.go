package config

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"gotypeset/pkg/eval"
)

// FromCty converts a configuration value into a document value. Whole
// numbers become integers, objects and maps become dictionaries with
// sorted keys.
func FromCty(v cty.Value) (eval.Value, error) {
	if v.IsNull() {
		return eval.None{}, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return eval.Str(v.AsString()), nil
	case ty == cty.Bool:
		return eval.Bool(v.True()), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return eval.Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return eval.Float(f), nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := eval.Array{}
		for _, el := range v.AsValueSlice() {
			ev, err := FromCty(el)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		m := v.AsValueMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]eval.Value, len(keys))
		for i, k := range keys {
			ev, err := FromCty(m[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			vals[i] = ev
		}
		return eval.NewDict(keys, vals), nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}
