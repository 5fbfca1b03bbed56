/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"sort"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/expr"
)

// ComponentAnalysis describes the structure of one component.
type ComponentAnalysis struct {
	Locations int `json:"locations"`
	Edges     int `json:"edges"`
	Guards    int `json:"guards"`
	Updates   int `json:"updates"`

	// Terminal locations have no outgoing edges.
	Terminal []string `json:"terminal,omitempty"`

	// Unreachable locations can't be reached from the initial
	// location even if every guard held.
	Unreachable []string `json:"unreachable,omitempty"`

	Urgent         []string `json:"urgent,omitempty"`
	MissingTargets []string `json:"missingTargets,omitempty"`
}

// NetworkAnalysis describes the structure of a network.  Nothing is
// evaluated.
type NetworkAnalysis struct {
	Network    string                        `json:"network,omitempty"`
	Components map[string]*ComponentAnalysis `json:"components"`

	// Interesting are the external symbols some guard mentions.
	// Only they can make a tock matter.
	Interesting []string `json:"interesting,omitempty"`

	// Unused symbols are declared but never mentioned.
	Unused []string `json:"unused,omitempty"`

	// Undeclared names are mentioned but not declared.
	Undeclared []string `json:"undeclared,omitempty"`

	Tockers int `json:"tockers"`

	Errors []string `json:"errors,omitempty"`
}

// Analyze examines the network's structure.  The network doesn't
// need to be compiled, and problems that would prevent compilation
// are reported in Errors.
func Analyze(n *core.Network) (*NetworkAnalysis, error) {
	a := &NetworkAnalysis{
		Network:    n.Name,
		Components: make(map[string]*ComponentAnalysis, len(n.Components)),
		Tockers:    len(n.Tockers) + len(n.TockerSources),
		Errors:     make([]string, 0, 8),
	}

	var (
		mentioned   = make(map[string]bool)
		interesting = make(map[string]bool)
	)

	guardNames := func(e *core.Edge) []string {
		g := e.Guard
		if g == nil {
			var err error
			if g, err = expr.Compile(e.GuardSource); err != nil {
				a.Errors = append(a.Errors, err.Error())
				return nil
			}
		}
		return g.Identifiers()
	}

	updateNames := func(e *core.Edge) []string {
		us := e.Updates
		if us == nil {
			var err error
			if us, err = expr.CompileUpdates(e.UpdateSource); err != nil {
				a.Errors = append(a.Errors, err.Error())
				return nil
			}
		}
		acc := us.Targets()
		for _, u := range us {
			acc = append(acc, u.Expr.Identifiers()...)
		}
		return acc
	}

	for _, name := range n.ComponentNames() {
		c := n.Components[name]
		if c == nil {
			a.Errors = append(a.Errors, "empty component "+name)
			continue
		}
		ca := &ComponentAnalysis{
			Locations: len(c.Locations),
			Edges:     len(c.Edges),
		}
		a.Components[name] = ca

		var (
			out     = make(map[string]bool)
			missing = make(map[string]bool)
			next    = make(map[string][]string)
		)

		for _, e := range c.Edges {
			if e == nil {
				continue
			}
			out[e.Source] = true
			next[e.Source] = append(next[e.Source], e.Target)
			for _, l := range []string{e.Source, e.Target} {
				if _, have := c.Locations[l]; !have {
					missing[l] = true
				}
			}

			if e.GuardSource != "" || (e.Guard != nil && !e.Guard.IsTrue()) {
				ca.Guards++
				for _, id := range guardNames(e) {
					mentioned[id] = true
					if n.External.Has(id) && !n.Symbols.Has(id) {
						interesting[id] = true
					}
				}
			}
			if e.UpdateSource != "" || 0 < len(e.Updates) {
				ca.Updates++
				for _, id := range updateNames(e) {
					mentioned[id] = true
				}
			}
		}

		for l, loc := range c.Locations {
			if !out[l] {
				ca.Terminal = append(ca.Terminal, l)
			}
			if loc != nil && loc.Urgent {
				ca.Urgent = append(ca.Urgent, l)
			}
		}

		if _, have := c.Locations[c.Initial]; !have {
			a.Errors = append(a.Errors, "component "+name+" has no initial location "+c.Initial)
		} else {
			reached := map[string]bool{c.Initial: true}
			pending := []string{c.Initial}
			for 0 < len(pending) {
				l := pending[0]
				pending = pending[1:]
				for _, m := range next[l] {
					if !reached[m] {
						reached[m] = true
						pending = append(pending, m)
					}
				}
			}
			for l := range c.Locations {
				if !reached[l] {
					ca.Unreachable = append(ca.Unreachable, l)
				}
			}
		}

		ca.MissingTargets = keysToStringSlice(missing)
		sort.Strings(ca.Terminal)
		sort.Strings(ca.Urgent)
		sort.Strings(ca.Unreachable)
	}

	declared := make(map[string]bool)
	for _, name := range n.Symbols.Keys() {
		declared[name] = true
	}
	for _, name := range n.External.Keys() {
		declared[name] = true
	}

	a.Interesting = keysToStringSlice(interesting)
	a.Unused = keysToStringSlice(diffKeys(declared, mentioned))
	a.Undeclared = keysToStringSlice(diffKeys(mentioned, declared))

	return a, nil
}

// keysToStringSlice returns the sorted keys.  Optionally, it can add a
// default value if the map is empty.
func keysToStringSlice(m map[string]bool, defaultValue ...string) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)

	if len(list) == 0 && len(defaultValue) > 0 {
		return []string{defaultValue[0]}
	}

	return list
}

// diffKeys identifies the keys present in 'all' but not in 'used'.
func diffKeys(all map[string]bool, used map[string]bool) map[string]bool {
	diff := make(map[string]bool)
	for key := range all {
		if _, found := used[key]; !found {
			diff[key] = true
		}
	}
	return diff
}
