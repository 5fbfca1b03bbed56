// Package symbols provides the typed values and symbol tables shared
// by every other package: guard evaluation, update application, state
// hashing and trace output all operate on a Table.
package symbols

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the type tag of a Value.
type Kind int

const (
	Int Kind = iota
	Bool
	Real
	String
	// Timer is a real that counts time.  It hashes and compares
	// like a Real but keeps its tag so that delays can be
	// computed for it.
	Timer
)

var kindNames = map[Kind]string{
	Int:    "int",
	Bool:   "bool",
	Real:   "real",
	String: "string",
	Timer:  "timer",
}

func (k Kind) String() string {
	if s, have := kindNames[k]; have {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Numeric reports whether the kind holds a number.
func (k Kind) Numeric() bool {
	return k == Int || k == Real || k == Timer
}

// ParseKind maps a type name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "int", "integer":
		return Int, nil
	case "bool", "boolean":
		return Bool, nil
	case "real", "float", "double":
		return Real, nil
	case "string", "str":
		return String, nil
	case "timer", "clock":
		return Timer, nil
	}
	return Int, fmt.Errorf("unknown symbol type %q", s)
}

// Value is an immutable typed value.
//
// The zero Value is the int 0.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

func IntVal(i int64) Value { return Value{kind: Int, i: i} }
func BoolVal(b bool) Value { return Value{kind: Bool, b: b} }
func RealVal(f float64) Value { return Value{kind: Real, f: f} }
func StringVal(s string) Value { return Value{kind: String, s: s} }
func TimerVal(ms float64) Value { return Value{kind: Timer, f: ms} }

func (v Value) Kind() Kind { return v.kind }

// AsInt returns the value as an int64.  Reals are truncated toward
// zero.  Bools are 0 or 1.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case Int:
		return v.i, nil
	case Real, Timer:
		return int64(v.f), nil
	case Bool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, errors.New("not a number: " + v.String())
}

// AsReal returns the value as a float64.
func (v Value) AsReal() (float64, error) {
	switch v.kind {
	case Int:
		return float64(v.i), nil
	case Real, Timer:
		return v.f, nil
	}
	return 0, errors.New("not a number: " + v.String())
}

func (v Value) AsBool() (bool, error) {
	if v.kind != Bool {
		return false, errors.New("not a bool: " + v.String())
	}
	return v.b, nil
}

func (v Value) AsString() (string, error) {
	if v.kind != String {
		return "", errors.New("not a string: " + v.String())
	}
	return v.s, nil
}

// Equal requires identical kinds.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Int:
		return v.i == o.i
	case Bool:
		return v.b == o.b
	case String:
		return v.s == o.s
	default:
		return v.f == o.f
	}
}

// Coerce converts v to the given kind using the assignment rules:
// numbers convert among int, real and timer (toward zero for int);
// bools and strings only convert to themselves.
func (v Value) Coerce(k Kind) (Value, error) {
	if v.kind == k {
		return v, nil
	}
	switch k {
	case Int:
		if v.kind.Numeric() {
			return IntVal(int64(v.f)), nil
		}
	case Real:
		if f, err := v.AsReal(); err == nil {
			return RealVal(f), nil
		}
	case Timer:
		if f, err := v.AsReal(); err == nil {
			return TimerVal(f), nil
		}
	}
	return v, fmt.Errorf("cannot convert %s %s to %s", v.kind, v, k)
}

func (v Value) String() string {
	switch v.kind {
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Bool:
		return strconv.FormatBool(v.b)
	case String:
		return strconv.Quote(v.s)
	case Timer:
		return strconv.FormatFloat(v.f, 'g', -1, 64) + "_ms"
	default:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	}
}

// Interface returns the plain Go value (int64, float64, bool, or
// string).
func (v Value) Interface() interface{} {
	switch v.kind {
	case Int:
		return v.i
	case Bool:
		return v.b
	case String:
		return v.s
	default:
		return v.f
	}
}

// ParseValue parses text according to a type name such as "int" or
// "real".
func ParseValue(typ, text string) (Value, error) {
	k, err := ParseKind(typ)
	if err != nil {
		return Value{}, err
	}
	text = strings.TrimSpace(text)
	switch k {
	case Int:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return IntVal(i), nil
	case Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, err
		}
		return BoolVal(b), nil
	case String:
		if s, err := strconv.Unquote(text); err == nil {
			return StringVal(s), nil
		}
		return StringVal(text), nil
	default:
		f, err := strconv.ParseFloat(strings.TrimSuffix(text, "_ms"), 64)
		if err != nil {
			return Value{}, err
		}
		if k == Timer {
			return TimerVal(f), nil
		}
		return RealVal(f), nil
	}
}

// FromInterface makes a Value from a plain value as produced by a
// JSON or YAML decoder.  Whole float64s become ints.  A map with
// "type" and "value" properties is parsed with ParseValue.
func FromInterface(x interface{}) (Value, error) {
	switch vv := x.(type) {
	case Value:
		return vv, nil
	case bool:
		return BoolVal(vv), nil
	case string:
		return StringVal(vv), nil
	case int:
		return IntVal(int64(vv)), nil
	case int64:
		return IntVal(vv), nil
	case float64:
		if vv == math.Trunc(vv) && math.Abs(vv) < 1<<53 {
			return IntVal(int64(vv)), nil
		}
		return RealVal(vv), nil
	case json.Number:
		if i, err := vv.Int64(); err == nil {
			return IntVal(i), nil
		}
		f, err := vv.Float64()
		if err != nil {
			return Value{}, err
		}
		return RealVal(f), nil
	case map[string]interface{}:
		typ, _ := vv["type"].(string)
		if typ == "" {
			return Value{}, errors.New("typed value needs a type")
		}
		return ParseValue(typ, fmt.Sprintf("%v", vv["value"]))
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[fmt.Sprintf("%v", k)] = v
		}
		return FromInterface(m)
	}
	return Value{}, fmt.Errorf("unsupported symbol value %#v (%T)", x, x)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if (v.kind == Real || v.kind == Timer) && (math.IsInf(v.f, 0) || math.IsNaN(v.f)) {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(bs []byte) error {
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		return err
	}
	y, err := FromInterface(x)
	if err != nil {
		return err
	}
	*v = y
	return nil
}

// UnmarshalYAML supports both gopkg.in/yaml.v2 and its jsccast fork.
func (v *Value) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var x interface{}
	if err := unmarshal(&x); err != nil {
		return err
	}
	y, err := FromInterface(x)
	if err != nil {
		return err
	}
	*v = y
	return nil
}

// MarshalYAML writes the plain value.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}
