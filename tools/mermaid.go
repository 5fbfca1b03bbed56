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
	"fmt"
	"io"
	"strings"

	. "github.com/Comcast/ntta/core"
)

type MermaidOpts struct {
	// ShowLabels will result in edge labels with the guard and
	// update.
	ShowLabels bool `json:"showLabels"`

	// UrgentFill is the fill color of urgent locations.
	UrgentFill string `json:"urgentFill,omitempty"`

	// CurrentFill is the fill color of the locations of the state
	// given to Mermaid.
	CurrentFill string `json:"currentFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given network with a subgraph for each component.
func Mermaid(n *Network, w io.Writer, opts *MermaidOpts, st *State) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowLabels:  true,
			UrgentFill:  "#bcf2db",
			CurrentFill: "#f98b8b",
		}
	}

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[string]string)
	num := 0

	node := func(cname, lname string) string {
		key := cname + "." + lname
		if nid, already := nids[key]; already {
			return nid
		}
		num++
		nid := fmt.Sprintf("n%d", num)
		nids[key] = nid
		return nid
	}

	for _, cname := range n.ComponentNames() {
		c := n.Components[cname]
		if c == nil {
			return fmt.Errorf("empty component %s", cname)
		}

		fmt.Fprintf(w, "  subgraph %s\n", cname)
		for _, lname := range c.LocationNames() {
			nid := node(cname, lname)
			if lname == c.Initial {
				fmt.Fprintf(w, "    %s([\"%s\"])\n", nid, lname)
			} else {
				fmt.Fprintf(w, "    %s(\"%s\")\n", nid, lname)
			}
			fill := ""
			if l := c.Locations[lname]; l != nil && l.Urgent {
				fill = opts.UrgentFill
			}
			if st != nil && st.At(cname) == lname && opts.CurrentFill != "" {
				fill = opts.CurrentFill
			}
			if fill != "" {
				fmt.Fprintf(w, "    style %s fill:%s\n", nid, fill)
			}
		}

		for _, e := range c.Edges {
			label := ""
			if opts.ShowLabels && (e.GuardSource != "" || e.UpdateSource != "") {
				s := edgeLabel(e)
				s = strings.Replace(s, `"`, `'`, -1)
				label = fmt.Sprintf(`-- "<pre>%s</pre>"`, s)
			}
			fmt.Fprintf(w, "    %s %s --> %s\n", node(cname, e.Source), label, node(cname, e.Target))
		}
		fmt.Fprintf(w, "  end\n")
	}

	_, err := fmt.Fprintf(w, "\n")
	return err
}
