package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	. "github.com/Comcast/ntta/core"

	"gopkg.in/yaml.v2"
)

// edgeLabel renders the guard and update of an edge as YAML.
func edgeLabel(e *Edge) string {
	m := yaml.MapSlice{{Key: "id", Value: e.Id}}
	if e.GuardSource != "" {
		m = append(m, yaml.MapItem{Key: "guard", Value: e.GuardSource})
	}
	if e.UpdateSource != "" {
		m = append(m, yaml.MapItem{Key: "update", Value: e.UpdateSource})
	}
	bs, err := yaml.Marshal(m)
	if err != nil {
		return err.Error()
	}
	return strings.TrimRight(string(bs), "\n")
}

func htmlEscape(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}

// nodeId makes a dot identifier for a location.
func nodeId(component, location string) string {
	return `"` + escape(component+"."+location) + `"`
}

// Dot makes a Graphviz dot file for the given network with a cluster
// for each component.
//
// If the state isn't nil, its locations are drawn in red.
func Dot(n *Network, w io.Writer, st *State) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	for i, cname := range n.ComponentNames() {
		c := n.Components[cname]
		if c == nil {
			return fmt.Errorf("empty component %s", cname)
		}

		fmt.Fprintf(w, "  subgraph cluster_%d {\n    label=\"%s\"\n", i, escape(cname))

		out := make(map[string]bool)
		for _, e := range c.Edges {
			out[e.Source] = true
		}

		for _, lname := range c.LocationNames() {
			l := c.Locations[lname]
			label := htmlEscape(lname)
			if l != nil && l.Doc != "" {
				doc := l.Doc
				if 40 < len(doc) {
					period := strings.Index(doc, ". ")
					if 0 < period {
						doc = doc[0 : period+1]
					}
				}
				label += "<BR/><FONT POINT-SIZE='8'>" + htmlEscape(doc) + "</FONT>"
			}
			fillcolor := "#99ddc8"
			color := "black"
			style := "filled"
			if l != nil && l.Urgent {
				fillcolor = "#2d93ad"
			}
			if st != nil && st.At(cname) == lname {
				color = "red"
				fillcolor = "#f98b8b"
			}
			if lname == c.Initial {
				style += ",bold"
			}
			if !out[lname] {
				style += ",dashed"
			}
			fmt.Fprintf(w, "    %s [style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
				nodeId(cname, lname), style, color, fillcolor, label)
		}

		for _, e := range c.Edges {
			label := htmlEscape(edgeLabel(e))
			label = `<FONT POINT-SIZE="8">` +
				strings.Replace(label+"\n", "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
			fmt.Fprintf(w, "    %s -> %s [ label = <%s> ]\n",
				nodeId(cname, e.Source), nodeId(cname, e.Target), label)
		}

		fmt.Fprintf(w, "  }\n")
	}

	_, err := fmt.Fprintf(w, "}\n")
	return err
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(n *Network, basename string, st *State) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(n, dotfile, st); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err := dotfile.Close(); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-Gstart=1", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

func escape(s string) string {
	return strings.Replace(s, `"`, `\"`, -1)
}
