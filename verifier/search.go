package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/ctl"
	"github.com/Comcast/ntta/symbols"
)

// Outcome says why a Search stopped.
type Outcome int

const (
	// Satisfied means every supported query was answered.
	Satisfied Outcome = iota

	// Exhausted means the Waiting list emptied first.
	Exhausted

	// Cancelled means the context was done first.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Satisfied:
		return "satisfied"
	case Exhausted:
		return "exhausted"
	default:
		return "cancelled"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// QueryResult is the answer to one query.
type QueryResult struct {
	Query *ctl.Query `json:"-" yaml:"-"`

	// Text is the query's source.
	Text string `json:"query" yaml:"query"`

	// Answered is false when the search ended without deciding
	// the query.
	Answered bool `json:"answered" yaml:"answered"`

	Satisfied bool `json:"satisfied" yaml:"satisfied"`

	Unsupported bool   `json:"unsupported,omitempty" yaml:",omitempty"`
	Error       string `json:"error,omitempty" yaml:",omitempty"`

	// Witness is the trace from the initial state to the state
	// that decided the query: a witness for E F, a counterexample
	// for A G.  Exhaustion decides queries without a witness.
	Witness []*core.State `json:"witness,omitempty" yaml:",omitempty"`

	// Via[i] names what produced Witness[i].
	Via []string `json:"via,omitempty" yaml:",omitempty"`

	TraceError string `json:"traceError,omitempty" yaml:",omitempty"`

	target  *ctl.Query
	negated bool
	hash    uint64
	state   *core.State
}

// Results of a Search.
type Results struct {
	Outcome  Outcome        `json:"outcome" yaml:"outcome"`
	Explored int            `json:"explored" yaml:"explored"`
	Queries  []*QueryResult `json:"queries" yaml:"queries"`
	Elapsed  time.Duration  `json:"elapsed" yaml:"elapsed"`
}

// AllSatisfied reports whether every answered query is satisfied and
// no query was left unanswered.
func (rs *Results) AllSatisfied() bool {
	for _, r := range rs.Queries {
		if !r.Answered || !r.Satisfied {
			return false
		}
	}
	return true
}

type searcher struct {
	net  *core.Network
	cfg  *core.Config
	opts *Options

	waiting *waiting
	passed  passed
	results []*QueryResult
}

// Search explores the state space of the network forward from its
// initial state until every query is answered or nothing is left to
// explore.
//
// Each step takes one state from the Waiting list according to the
// strategy, checks the unanswered queries against it, moves it to the
// Passed list, and adds its unseen successors to the Waiting list.
// Tock successors are only considered when the state wasn't itself
// reached by a tock and isn't immediate.
//
// States are identified by their hashes: two states with the same
// hash are treated as the same state (see core.State.Hash).
//
// The only errors are a *core.NondeterminismError under the Panic
// strategy and problems with the network itself.  Unsupported queries
// are reported in their results.
func Search(ctx context.Context, net *core.Network, queries []*ctl.Query, cfg *core.Config, opts *Options) (*Results, error) {
	if !net.Compiled() {
		return nil, &core.NetworkNotCompiled{Network: net}
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	s := &searcher{
		net:     net,
		cfg:     cfg,
		opts:    opts,
		waiting: newWaiting(),
		passed:  make(passed),
	}

	for _, q := range queries {
		r := &QueryResult{
			Query: q,
			Text:  q.String(),
		}
		target, negated, err := q.Reachability()
		if err != nil {
			var uq *ctl.UnsupportedQuery
			if errors.As(err, &uq) {
				cfg.Warn(core.WarnUnsupportedQuery, "query won't be answered", "query", r.Text, "error", err)
				r.Unsupported = true
			}
			r.Error = err.Error()
		}
		r.target, r.negated = target, negated
		s.results = append(s.results, r)
	}

	then := time.Now()
	outcome, err := s.run(ctx)
	if err != nil {
		return nil, err
	}

	if outcome == Exhausted {
		// Nothing reachable decided these queries.
		for _, r := range s.results {
			if r.target != nil && !r.Answered {
				r.Answered = true
				r.Satisfied = r.negated
			}
		}
	}

	if !opts.NoTrace {
		for _, r := range s.results {
			if r.hash == 0 {
				continue
			}
			states, via, err := s.trace(r.hash)
			if err != nil {
				cfg.Log().Error("trace reconstruction failed", "query", r.Text, "error", err)
				r.TraceError = err.Error()
				r.Witness = []*core.State{r.state}
				continue
			}
			r.Witness, r.Via = states, via
		}
	}

	rs := &Results{
		Outcome:  outcome,
		Explored: len(s.passed),
		Queries:  s.results,
		Elapsed:  time.Since(then),
	}
	cfg.Log().Info("search done", "outcome", outcome, "explored", rs.Explored, "elapsed", rs.Elapsed)
	return rs, nil
}

func (s *searcher) answered() bool {
	for _, r := range s.results {
		if r.target != nil && !r.Answered {
			return false
		}
	}
	return true
}

func (s *searcher) run(ctx context.Context) (Outcome, error) {
	st := s.net.InitialState()
	s.waiting.push(&record{
		state: st,
		hash:  s.opts.hashOf(st),
		via:   &core.StateChange{Via: []string{"init"}},
	})

	var last *core.State
	for 0 < s.waiting.Len() {
		if ctx.Err() != nil {
			return Cancelled, nil
		}

		r, err := s.pick(last)
		if err != nil {
			return Exhausted, err
		}
		last = r.state
		s.passed[r.hash] = r

		s.check(r)
		if s.answered() {
			return Satisfied, nil
		}

		if err := s.expand(ctx, r); err != nil {
			if ctx.Err() != nil {
				return Cancelled, nil
			}
			return Exhausted, err
		}
	}
	return Exhausted, nil
}

func (s *searcher) pick(last *core.State) (*record, error) {
	n := s.waiting.Len()
	if n == 1 {
		return s.waiting.take(0), nil
	}
	switch s.opts.Strategy {
	case Last:
		return s.waiting.take(n - 1), nil
	case Random:
		return s.waiting.take(s.opts.rand().Intn(n)), nil
	case Panic:
		return nil, &core.NondeterminismError{
			Candidates: n,
			State:      last.String(),
		}
	default:
		return s.waiting.take(0), nil
	}
}

func (s *searcher) check(r *record) {
	for _, q := range s.results {
		if q.target == nil || q.Answered {
			continue
		}
		if !s.holds(q.target, r.state) {
			continue
		}
		q.Answered = true
		q.Satisfied = !q.negated
		q.hash = r.hash
		q.state = r.state
		s.cfg.Log().Info("query answered", "query", q.Text, "satisfied", q.Satisfied, "explored", len(s.passed))
		s.cfg.Log().Debug("deciding state", "query", q.Text, "state", r.state)
	}
}

// holds evaluates a state formula.  Evaluation problems make a
// comparison false.
func (s *searcher) holds(q *ctl.Query, st *core.State) bool {
	switch q.Op {
	case ctl.OpLocation:
		if q.Component != "" {
			return st.At(q.Component) == q.Location
		}
		for _, l := range st.Locations {
			if l == q.Location {
				return true
			}
		}
		return false
	case ctl.OpDeadlock:
		dead, err := s.net.Deadlocked(s.cfg, st)
		return err == nil && dead
	case ctl.OpLiteral:
		return q.Value
	case ctl.OpNot:
		return !s.holds(q.Args[0], st)
	case ctl.OpAnd:
		return s.holds(q.Args[0], st) && s.holds(q.Args[1], st)
	case ctl.OpOr:
		return s.holds(q.Args[0], st) || s.holds(q.Args[1], st)
	case ctl.OpComparison:
		ok, err := q.Expr.Holds(st.Env()...)
		if err != nil {
			var us *symbols.UndefinedSymbol
			if errors.As(err, &us) {
				s.cfg.Trace("query mentions an undefined symbol", "query", q.Expr.Source, "symbol", us.Name)
			} else {
				s.cfg.Log().Error("query evaluation failed", "query", q.Expr.Source, "error", err)
			}
			return false
		}
		return ok
	}
	s.cfg.Log().Error("can't evaluate query node", "op", q.Op)
	return false
}

func (s *searcher) expand(ctx context.Context, r *record) error {
	st := r.state

	if !r.tocked && !s.net.Immediate(s.cfg, st) && s.net.Interesting(st) {
		changes, err := s.net.Tocks(ctx, s.cfg, st)
		if err != nil {
			return err
		}
		for _, c := range changes {
			s.add(r, c, true)
		}
	}

	changes, nds, err := s.net.Ticks(ctx, s.cfg, st)
	if err != nil {
		return err
	}
	if s.opts.Strategy == Panic && 0 < len(nds) {
		return nds[0].Error(st)
	}
	for _, c := range changes {
		s.add(r, c, false)
	}
	return nil
}

func (s *searcher) add(from *record, c *core.StateChange, tocked bool) {
	if c.Empty() {
		return
	}
	next := from.state.Apply(c)
	h := s.opts.hashOf(next)

	seen, have := s.passed[h]
	if !have {
		seen, have = s.waiting.get(h)
	}
	if have {
		if !seen.state.Equal(next) {
			s.cfg.Warn(core.WarnHashCollision, "distinct states share a hash", "hash", h, "kept", seen.state, "dropped", next)
		}
		return
	}

	s.waiting.push(&record{
		state:  next,
		hash:   h,
		pred:   from.hash,
		tocked: tocked,
		via:    c,
	})
}

// trace walks predecessors back to the initial state.
func (s *searcher) trace(h uint64) ([]*core.State, []string, error) {
	var (
		states []*core.State
		via    []string
	)
	for steps := 0; h != 0; steps++ {
		if len(s.passed) < steps {
			return nil, nil, &TraceCycle{Hash: h, Steps: steps}
		}
		r, have := s.passed[h]
		if !have {
			return nil, nil, &TraceBroken{Hash: h}
		}
		states = append(states, r.state)
		via = append(via, r.via.String())
		h = r.pred
	}
	for i, j := 0, len(states)-1; i < j; i, j = i+1, j-1 {
		states[i], states[j] = states[j], states[i]
		via[i], via[j] = via[j], via[i]
	}
	return states, via, nil
}
