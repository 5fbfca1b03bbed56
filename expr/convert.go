package expr

import (
	"errors"
	"math/big"

	"github.com/Comcast/ntta/symbols"

	"github.com/zclconf/go-cty/cty"
)

func toCty(v symbols.Value) cty.Value {
	switch v.Kind() {
	case symbols.Int:
		i, _ := v.AsInt()
		return cty.NumberIntVal(i)
	case symbols.Bool:
		b, _ := v.AsBool()
		return cty.BoolVal(b)
	case symbols.String:
		s, _ := v.AsString()
		return cty.StringVal(s)
	default:
		f, _ := v.AsReal()
		return cty.NumberFloatVal(f)
	}
}

func fromCty(v cty.Value) (symbols.Value, error) {
	if !v.IsKnown() || v.IsNull() {
		return symbols.Value{}, errors.New("no value")
	}
	switch v.Type() {
	case cty.Bool:
		return symbols.BoolVal(v.True()), nil
	case cty.String:
		return symbols.StringVal(v.AsString()), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return symbols.IntVal(i), nil
			}
		}
		f, _ := bf.Float64()
		return symbols.RealVal(f), nil
	}
	return symbols.Value{}, errors.New("unsupported result type " + v.Type().FriendlyName())
}
