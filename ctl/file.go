package ctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Comcast/ntta/expr"
	"github.com/Comcast/ntta/symbols"

	"github.com/jsccast/yaml"
)

// Entries is a list of texts.  In a file, it can be a single string,
// a list of strings, or a list of objects with a "query",
// "condition", "known", "instance", or "text" property.
type Entries []string

var entryKeys = []string{"query", "condition", "known", "instance", "text"}

func entry(x interface{}) (string, error) {
	switch vv := x.(type) {
	case string:
		return vv, nil
	case map[string]interface{}:
		for _, k := range entryKeys {
			if s, is := vv[k].(string); is {
				return s, nil
			}
		}
	case map[interface{}]interface{}:
		for _, k := range entryKeys {
			if s, is := vv[k].(string); is {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("bad entry %#v", x)
}

func (es *Entries) set(x interface{}) error {
	switch vv := x.(type) {
	case nil:
		*es = nil
	case []interface{}:
		acc := make(Entries, 0, len(vv))
		for _, y := range vv {
			s, err := entry(y)
			if err != nil {
				return err
			}
			acc = append(acc, s)
		}
		*es = acc
	default:
		s, err := entry(x)
		if err != nil {
			return err
		}
		*es = Entries{s}
	}
	return nil
}

func (es *Entries) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var x interface{}
	if err := unmarshal(&x); err != nil {
		return err
	}
	return es.set(x)
}

func (es *Entries) UnmarshalJSON(bs []byte) error {
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		return err
	}
	return es.set(x)
}

// QueryFile is the content of a query, condition, known, or instance
// file.  Any of the properties may be absent.
type QueryFile struct {
	Queries    Entries `json:"queries,omitempty" yaml:"queries,omitempty"`
	Conditions Entries `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Known      Entries `json:"known,omitempty" yaml:"known,omitempty"`
	Instances  Entries `json:"instances,omitempty" yaml:"instances,omitempty"`
}

// ParseQueryFile parses JSON or YAML.
func ParseQueryFile(bs []byte) (*QueryFile, error) {
	var f QueryFile
	if err := yaml.Unmarshal(bs, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadQueryFile reads and parses the file.
func LoadQueryFile(filename string) (*QueryFile, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	f, err := ParseQueryFile(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return f, nil
}

// Merge appends the other file's entries.
func (f *QueryFile) Merge(o *QueryFile) *QueryFile {
	if o == nil {
		return f
	}
	f.Queries = append(f.Queries, o.Queries...)
	f.Conditions = append(f.Conditions, o.Conditions...)
	f.Known = append(f.Known, o.Known...)
	f.Instances = append(f.Instances, o.Instances...)
	return f
}

// CompileAll compiles every query.  All errors are reported together.
func (c *Compiler) CompileAll(texts []string) ([]*Query, error) {
	var (
		acc  = make([]*Query, 0, len(texts))
		errs []error
	)
	for _, text := range texts {
		q, err := c.Compile(text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		acc = append(acc, q)
	}
	if 0 < len(errs) {
		return nil, errors.Join(errs...)
	}
	return acc, nil
}

// Known evaluates known-symbol declarations such as "x := 5".  A
// declaration can use the values of those before it.
func Known(decls []string) (symbols.Table, error) {
	acc := symbols.NewTable()
	for _, decl := range decls {
		us, err := expr.CompileUpdates(decl)
		if err != nil {
			return nil, err
		}
		delta, err := us.ApplySequential(acc)
		if err != nil {
			return nil, fmt.Errorf("known %q: %w", decl, err)
		}
		acc.Merge(delta)
	}
	return acc, nil
}

// Conditions compiles extra conditions.  The context tables, if
// given, must define every identifier.
func Conditions(srcs []string, context ...symbols.Table) ([]*expr.Expr, error) {
	acc := make([]*expr.Expr, 0, len(srcs))
	for _, src := range srcs {
		e, err := expr.Compile(src, context...)
		if err != nil {
			return nil, err
		}
		acc = append(acc, e)
	}
	return acc, nil
}
