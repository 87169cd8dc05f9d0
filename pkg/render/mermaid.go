package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ritzau/codegraph/pkg/model"
)

// nodeClasses maps component types to the Mermaid classDef they use
var nodeClasses = map[model.ComponentType]string{
	model.ComponentModule:    "module",
	model.ComponentClass:     "class",
	model.ComponentInterface: "interface",
	model.ComponentFunction:  "function",
	model.ComponentMethod:    "method",
}

var classDefs = []string{
	"classDef module fill:#cfe2f3,stroke:#1155cc,stroke-width:2px",
	"classDef class fill:#d9ead3,stroke:#38761d,stroke-width:2px",
	"classDef interface fill:#d9ead3,stroke:#38761d,stroke-dasharray:4",
	"classDef function fill:#fff2cc,stroke:#bf9000,stroke-width:2px",
	"classDef method fill:#d5a6bd,stroke:#733d77,stroke-width:2px",
	"classDef external fill:#eeeeee,stroke:#999999,stroke-dasharray:4",
}

// arrow returns the Mermaid flowchart arrow for a relationship type
func arrow(typ model.RelationshipType) string {
	switch typ {
	case model.RelationshipImports:
		return "-->"
	case model.RelationshipContains:
		return "==>"
	case model.RelationshipInherits:
		return "-.->|inherits|"
	case model.RelationshipCalls:
		return "-->|calls|"
	default:
		return "-->|" + escapeLabel(string(typ)) + "|"
	}
}

// WriteMermaid writes d as Mermaid source. Class diagrams become a
// classDiagram; every other kind a top-down flowchart. With fenced set the
// output is wrapped in a markdown code fence.
func WriteMermaid(w io.Writer, d *Diagram, fenced bool) error {
	bw := bufio.NewWriter(w)
	if fenced {
		fmt.Fprintln(bw, "```mermaid")
	}

	if d.Kind == KindClass {
		writeClassDiagram(bw, d)
	} else {
		writeFlowchart(bw, d)
	}

	if fenced {
		fmt.Fprintln(bw, "```")
	}
	return bw.Flush()
}

func writeFlowchart(w io.Writer, d *Diagram) {
	fmt.Fprintln(w, "graph TD")

	ids := make(map[string]string, len(d.Nodes))
	for i, n := range d.Nodes {
		ids[n.ID] = fmt.Sprintf("n%d", i)
	}

	for _, n := range d.Nodes {
		class := nodeClasses[n.Type]
		if n.External {
			class = "external"
		}
		line := fmt.Sprintf("    %s[\"%s\"]", ids[n.ID], escapeLabel(n.Label))
		if class != "" {
			line += ":::" + class
		}
		fmt.Fprintln(w, line)
	}

	for _, e := range d.Edges {
		fmt.Fprintf(w, "    %s %s %s\n", ids[e.Source], arrow(e.Type), ids[e.Target])
	}

	if len(d.Nodes) > 0 {
		io.WriteString(w, "    %% Styling\n")
		for _, def := range classDefs {
			fmt.Fprintln(w, "    "+def)
		}
	}
}

func writeClassDiagram(w io.Writer, d *Diagram) {
	fmt.Fprintln(w, "classDiagram")

	// Class names must be identifiers and unique within the diagram
	names := make(map[string]string)
	used := make(map[string]int)
	methods := make(map[string][]string)
	var classes []Node
	for _, n := range d.Nodes {
		switch n.Type {
		case model.ComponentClass, model.ComponentInterface:
			name := SanitizeID(n.Name)
			used[name]++
			if used[name] > 1 {
				name = fmt.Sprintf("%s_%d", name, used[name])
			}
			names[n.ID] = name
			classes = append(classes, n)
		case model.ComponentMethod:
			if n.Parent != "" {
				methods[n.Parent] = append(methods[n.Parent], n.Name)
			}
		}
	}

	for _, c := range classes {
		fmt.Fprintf(w, "    class %s {\n", names[c.ID])
		if c.Type == model.ComponentInterface {
			fmt.Fprintln(w, "        <<interface>>")
		}
		for _, m := range methods[c.ID] {
			fmt.Fprintf(w, "        +%s()\n", SanitizeID(m))
		}
		fmt.Fprintln(w, "    }")
	}

	for _, e := range d.Edges {
		if e.Type != model.RelationshipInherits {
			continue
		}
		child, okChild := names[e.Source]
		parent, okParent := names[e.Target]
		if okChild && okParent {
			fmt.Fprintf(w, "    %s --|> %s\n", child, parent)
		}
	}
}

// SanitizeID replaces every character Mermaid does not accept in an
// identifier with an underscore
func SanitizeID(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// escapeLabel makes a label safe inside a quoted Mermaid node label
func escapeLabel(s string) string {
	return strings.NewReplacer(
		`"`, "#quot;",
		"<", "#lt;",
		">", "#gt;",
		"\n", " ",
	).Replace(s)
}
