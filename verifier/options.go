package verifier

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/Comcast/ntta/core"
)

// Strategy picks the next state to explore from the Waiting list.
type Strategy int

const (
	// First picks the oldest waiting state (breadth first).
	First Strategy = iota

	// Last picks the newest waiting state (depth first).
	Last

	// Random picks uniformly among waiting states.
	Random

	// Panic fails when there's more than one waiting state or
	// when a location has more than one enabled edge.
	Panic
)

var strategyNames = []string{"first", "last", "random", "panic"}

func (s Strategy) String() string {
	if 0 <= int(s) && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy accepts the names "first", "last", "random", and
// "panic" (in any case).
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range strategyNames {
		if s == name {
			return Strategy(i), nil
		}
	}
	return First, fmt.Errorf("unknown strategy %q (want one of %s)", s, strings.Join(strategyNames, ", "))
}

// Options control a Search.
type Options struct {
	Strategy Strategy

	// Rand is used by the Random strategy.  Defaults to a source
	// seeded by the clock.
	Rand *rand.Rand

	// NoTrace skips witness trace reconstruction.
	NoTrace bool

	// hash identifies states.  (*core.State).Hash if nil.
	hash func(*core.State) uint64
}

// DefaultOptions will be used by Search if the given options are
// nil.
func DefaultOptions() *Options {
	return &Options{
		Strategy: First,
	}
}

func (o *Options) hashOf(st *core.State) uint64 {
	if o.hash == nil {
		return st.Hash()
	}
	return o.hash(st)
}

func (o *Options) rand() *rand.Rand {
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o.Rand
}
