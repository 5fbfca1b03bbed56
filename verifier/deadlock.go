package verifier

import (
	"fmt"
	"strings"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/expr"
	"github.com/Comcast/ntta/symbols"
)

// DeadlockReport describes a possible deadlock: an assignment under
// which no edge leaving the location is enabled.
//
// It's only possible: for real-valued unknowns the check isn't a
// proof.
type DeadlockReport struct {
	Instance string `json:"instance" yaml:"instance"`
	Location string `json:"location" yaml:"location"`

	// Witness assigns the unknown symbols.  It's empty when the
	// location has no outgoing edges or when the known symbols
	// alone suffice.
	Witness symbols.Table `json:"witness" yaml:"witness"`

	// Delay, if not nil, is how far the known timers must advance.
	Delay *float64 `json:"delay,omitempty" yaml:",omitempty"`

	// Terminal means the location has no outgoing edges.
	Terminal bool `json:"terminal,omitempty" yaml:",omitempty"`
}

func (r *DeadlockReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "possible deadlock in %s at location %s", r.Instance, r.Location)
	if r.Terminal {
		b.WriteString(" (no outgoing edges)")
	}
	fmt.Fprintf(&b, " in case %s", r.Witness)
	if r.Delay != nil {
		fmt.Fprintf(&b, " after a delay of %g", *r.Delay)
	}
	return b.String()
}

// Unknowns returns the symbols that the guards of the instances
// mention but that aren't known.  Each comes with its declared value,
// which gives its kind.
func Unknowns(net *core.Network, instances []string, known symbols.Table) (symbols.Table, error) {
	acc := symbols.NewTable()
	for _, name := range instances {
		c, err := net.Component(name)
		if err != nil {
			return nil, err
		}
		for _, e := range c.Edges {
			if e.Guard == nil {
				continue
			}
			for _, id := range e.Guard.Identifiers() {
				if known.Has(id) {
					continue
				}
				v, have := net.Lookup(id)
				if !have {
					return nil, &symbols.UndefinedSymbol{Name: id}
				}
				acc.Put(id, v)
			}
		}
	}
	return acc, nil
}

// CheckDeadlocks looks for possible deadlocks in the given instances
// (all components if none are given).
//
// For each location, the check asks whether the negations of all
// outgoing guards, together with the extra conditions, can hold at
// once.  Symbols that are known have their given values.  Other
// symbols mentioned in guards are free.
//
// Inconclusive checks are logged at trace level and otherwise
// ignored.  A location whose formula can't be evaluated (a type
// mismatch, say) is logged as an error and skipped.
func CheckDeadlocks(net *core.Network, instances []string, known symbols.Table, conditions []*expr.Expr, cfg *core.Config) ([]*DeadlockReport, error) {
	if !net.Compiled() {
		return nil, &core.NetworkNotCompiled{Network: net}
	}
	if len(instances) == 0 {
		instances = net.ComponentNames()
	}
	if known == nil {
		known = symbols.NewTable()
	}

	unknown, err := Unknowns(net, instances, known)
	if err != nil {
		return nil, err
	}
	for _, cond := range conditions {
		for _, id := range cond.Identifiers() {
			if known.Has(id) || unknown.Has(id) {
				continue
			}
			if v, have := net.Lookup(id); have {
				unknown.Put(id, v)
			}
		}
	}

	var reports []*DeadlockReport
	for _, name := range instances {
		c, _ := net.Component(name)
		for _, l := range c.LocationNames() {
			guards := c.Guards(l)
			negs := make([]*expr.Expr, 0, 1+len(guards)+len(conditions))
			negs = append(negs, expr.True)
			for _, g := range guards {
				negs = append(negs, expr.Not(g))
			}
			negs = append(negs, conditions...)
			f := expr.And(negs...)

			res, err := expr.SatCheck(f, known, unknown)
			if err != nil {
				cfg.Log().Error("deadlock check failed", "instance", name, "location", l, "error", err)
				continue
			}

			switch res.Verdict {
			case expr.Satisfiable:
				r := &DeadlockReport{
					Instance: name,
					Location: l,
					Witness:  res.Witness,
					Delay:    res.Delay,
					Terminal: len(c.Out(l)) == 0,
				}
				cfg.Log().Info(r.String())
				reports = append(reports, r)
			case expr.Inconclusive:
				cfg.Trace("deadlock check inconclusive", "instance", name, "location", l, "reason", res.Reason)
			default:
				cfg.Trace("no deadlock", "instance", name, "location", l)
			}
		}
	}
	return reports, nil
}
