package eval

import (
	"fmt"
	"strings"
)

// method calls a method on target. Mutating methods return the updated
// receiver as their second result; the caller writes it back.
func (vm *vm) method(target Value, name string, args *Args) (Value, Value, error) {
	var (
		out     Value
		updated Value
		err     error
	)
	switch t := target.(type) {
	case Str:
		out, err = strMethod(t, name, args)
	case Array:
		out, updated, err = vm.arrayMethod(t, name, args)
	case *Dict:
		out, updated, err = dictMethod(t, name, args)
	default:
		return nil, nil, fmt.Errorf("type %s has no method %s", TypeName(target), name)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := args.Finish(); err != nil {
		return nil, nil, err
	}
	return out, updated, nil
}

func noMethod(v Value, name string) error {
	return fmt.Errorf("type %s has no method %s", TypeName(v), name)
}

func expectStr(args *Args, what string) (string, error) {
	v, err := args.Expect(what)
	if err != nil {
		return "", err
	}
	return ToStr(v)
}

func expectInt(args *Args, what string) (int64, error) {
	v, err := args.Expect(what)
	if err != nil {
		return 0, err
	}
	return ToInt(v)
}

// index resolves a possibly negative index into a sequence of length n.
func index(i int64, n int, inclusiveEnd bool) (int, error) {
	limit := int64(n)
	if i < 0 {
		i += limit
	}
	if i < 0 || i > limit || (!inclusiveEnd && i == limit) {
		return 0, fmt.Errorf("index out of bounds (index: %d, len: %d)", i, n)
	}
	return int(i), nil
}

// slice reads the start and optional end arguments of a slice call.
func slice(args *Args, n int) (int, int, error) {
	s, err := expectInt(args, "start")
	if err != nil {
		return 0, 0, err
	}
	start, err := index(s, n, true)
	if err != nil {
		return 0, 0, err
	}
	end := n
	if v, ok := args.Eat(); ok {
		e, err := ToInt(v)
		if err != nil {
			return 0, 0, err
		}
		if end, err = index(e, n, true); err != nil {
			return 0, 0, err
		}
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func strMethod(s Str, name string, args *Args) (Value, error) {
	str := string(s)
	switch name {
	case "len":
		return Int(len(str)), nil
	case "upper":
		return Str(strings.ToUpper(str)), nil
	case "lower":
		return Str(strings.ToLower(str)), nil
	case "trim":
		return Str(strings.TrimSpace(str)), nil
	case "rev":
		runes := []rune(str)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return Str(string(runes)), nil
	case "contains", "starts-with", "ends-with":
		pat, err := expectStr(args, "pattern")
		if err != nil {
			return nil, err
		}
		switch name {
		case "contains":
			return Bool(strings.Contains(str, pat)), nil
		case "starts-with":
			return Bool(strings.HasPrefix(str, pat)), nil
		}
		return Bool(strings.HasSuffix(str, pat)), nil
	case "split":
		var parts []string
		if v, ok := args.Eat(); ok {
			sep, err := ToStr(v)
			if err != nil {
				return nil, err
			}
			parts = strings.Split(str, sep)
		} else {
			parts = strings.Fields(str)
		}
		out := make(Array, len(parts))
		for i, p := range parts {
			out[i] = Str(p)
		}
		return out, nil
	case "replace":
		pat, err := expectStr(args, "pattern")
		if err != nil {
			return nil, err
		}
		with, err := expectStr(args, "replacement")
		if err != nil {
			return nil, err
		}
		return Str(strings.ReplaceAll(str, pat, with)), nil
	case "slice":
		start, end, err := slice(args, len(str))
		if err != nil {
			return nil, err
		}
		return Str(str[start:end]), nil
	case "at":
		i, err := expectInt(args, "index")
		if err != nil {
			return nil, err
		}
		j, err := index(i, len(str), false)
		if err != nil {
			return nil, err
		}
		return Str(str[j : j+1]), nil
	case "first", "last":
		if str == "" {
			return nil, fmt.Errorf("string is empty")
		}
		runes := []rune(str)
		if name == "first" {
			return Str(string(runes[0])), nil
		}
		return Str(string(runes[len(runes)-1])), nil
	}
	return nil, noMethod(s, name)
}

func (vm *vm) arrayMethod(a Array, name string, args *Args) (Value, Value, error) {
	switch name {
	case "len":
		return Int(len(a)), nil, nil
	case "first", "last":
		if len(a) == 0 {
			return nil, nil, fmt.Errorf("array is empty")
		}
		if name == "first" {
			return a[0], nil, nil
		}
		return a[len(a)-1], nil, nil
	case "at":
		i, err := expectInt(args, "index")
		if err != nil {
			return nil, nil, err
		}
		j, err := index(i, len(a), false)
		if err != nil {
			return nil, nil, err
		}
		return a[j], nil, nil
	case "slice":
		start, end, err := slice(args, len(a))
		if err != nil {
			return nil, nil, err
		}
		return append(Array(nil), a[start:end]...), nil, nil
	case "contains":
		v, err := args.Expect("value")
		if err != nil {
			return nil, nil, err
		}
		found, err := contains(v, a)
		return Bool(found), nil, err
	case "push":
		v, err := args.Expect("value")
		if err != nil {
			return nil, nil, err
		}
		out := append(append(Array(nil), a...), v)
		return None{}, out, nil
	case "pop":
		if len(a) == 0 {
			return nil, nil, fmt.Errorf("array is empty")
		}
		return a[len(a)-1], append(Array(nil), a[:len(a)-1]...), nil
	case "rev":
		out := make(Array, len(a))
		for i, v := range a {
			out[len(a)-1-i] = v
		}
		return out, nil, nil
	case "sorted":
		out, err := sortValues(a)
		return out, nil, err
	case "join":
		var out Value = None{}
		var sep Value
		if v, ok := args.Eat(); ok {
			sep = v
		}
		for i, v := range a {
			var err error
			if i > 0 && sep != nil {
				if out, err = join(out, sep); err != nil {
					return nil, nil, err
				}
			}
			if out, err = join(out, v); err != nil {
				return nil, nil, err
			}
		}
		return out, nil, nil
	case "sum":
		if len(a) == 0 {
			return Int(0), nil, nil
		}
		out := a[0]
		for _, v := range a[1:] {
			var err error
			if out, err = add(out, v); err != nil {
				return nil, nil, err
			}
		}
		return out, nil, nil
	case "enumerate":
		out := make(Array, len(a))
		for i, v := range a {
			out[i] = Array{Int(i), v}
		}
		return out, nil, nil
	case "map", "filter", "find", "any", "all":
		f, err := vm.callback(args)
		if err != nil {
			return nil, nil, err
		}
		var out Array
		for _, v := range a {
			r, err := vm.call(f, NewArgs(args.Span, v))
			if err != nil {
				return nil, nil, err
			}
			if name == "map" {
				out = append(out, r)
				continue
			}
			ok, err := ToBool(r)
			if err != nil {
				return nil, nil, err
			}
			switch {
			case name == "filter" && ok:
				out = append(out, v)
			case name == "find" && ok:
				return v, nil, nil
			case name == "any" && ok:
				return Bool(true), nil, nil
			case name == "all" && !ok:
				return Bool(false), nil, nil
			}
		}
		switch name {
		case "find":
			return None{}, nil, nil
		case "any":
			return Bool(false), nil, nil
		case "all":
			return Bool(true), nil, nil
		}
		if out == nil {
			out = Array{}
		}
		return out, nil, nil
	case "fold":
		acc, err := args.Expect("initial value")
		if err != nil {
			return nil, nil, err
		}
		f, err := vm.callback(args)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range a {
			if acc, err = vm.call(f, NewArgs(args.Span, acc, v)); err != nil {
				return nil, nil, err
			}
		}
		return acc, nil, nil
	}
	return nil, nil, noMethod(a, name)
}

func (vm *vm) callback(args *Args) (*Func, error) {
	v, err := args.Expect("function")
	if err != nil {
		return nil, err
	}
	return ToFunc(v)
}

func dictMethod(d *Dict, name string, args *Args) (Value, Value, error) {
	switch name {
	case "len":
		return Int(d.Len()), nil, nil
	case "keys":
		out := make(Array, 0, d.Len())
		for _, k := range d.keys {
			out = append(out, Str(k))
		}
		return out, nil, nil
	case "values":
		out := make(Array, 0, d.Len())
		for _, k := range d.keys {
			out = append(out, d.vals[k])
		}
		return out, nil, nil
	case "pairs":
		out := make(Array, 0, d.Len())
		for _, k := range d.keys {
			out = append(out, Array{Str(k), d.vals[k]})
		}
		return out, nil, nil
	case "at":
		def, hasDef := args.Named("default")
		key, err := expectStr(args, "key")
		if err != nil {
			return nil, nil, err
		}
		if v, ok := d.Get(key); ok {
			return v, nil, nil
		}
		if hasDef {
			return def, nil, nil
		}
		return nil, nil, fmt.Errorf("dictionary does not contain key %q", key)
	case "contains":
		key, err := expectStr(args, "key")
		if err != nil {
			return nil, nil, err
		}
		_, ok := d.Get(key)
		return Bool(ok), nil, nil
	case "insert":
		key, err := expectStr(args, "key")
		if err != nil {
			return nil, nil, err
		}
		v, err := args.Expect("value")
		if err != nil {
			return nil, nil, err
		}
		return None{}, d.With(key, v), nil
	case "remove":
		key, err := expectStr(args, "key")
		if err != nil {
			return nil, nil, err
		}
		v, ok := d.Get(key)
		if !ok {
			return nil, nil, fmt.Errorf("dictionary does not contain key %q", key)
		}
		var keys []string
		var vals []Value
		for _, k := range d.keys {
			if k != key {
				keys = append(keys, k)
				vals = append(vals, d.vals[k])
			}
		}
		return v, NewDict(keys, vals), nil
	}
	return nil, nil, noMethod(d, name)
}
