package output

import (
	"fmt"
	"strings"

	"github.com/ritzau/codegraph/pkg/inspect"
)

func (p *Printer) snippet(s *inspect.Snippet) {
	switch {
	case s.FilePath == "":
		faint.Fprintf(p.w, "# %s\n", s.Name)
	case s.EndLine > s.StartLine:
		faint.Fprintf(p.w, "# %s:%d-%d\n", s.FilePath, s.StartLine, s.EndLine)
	default:
		faint.Fprintf(p.w, "# %s:%d\n", s.FilePath, s.StartLine)
	}
	fmt.Fprint(p.w, s.Code)
	if !strings.HasSuffix(s.Code, "\n") {
		fmt.Fprintln(p.w)
	}
}

func (p *Printer) callHierarchy(h *inspect.CallHierarchy) {
	title := h.Name
	if h.Signature != "" {
		title = h.Signature
	}
	bold.Fprintf(p.w, "Call hierarchy of %s\n", title)
	p.refs("Calls", "->", h.Calls)
	p.refs("Called by", "<-", h.CalledBy)
}

func (p *Printer) inheritance(h *inspect.InheritanceHierarchy) {
	bold.Fprintf(p.w, "Inheritance of %s\n", h.Name)
	p.refs("Inherits from", "->", h.InheritsFrom)
	p.refs("Inherited by", "<-", h.InheritedBy)
	p.refs("Ancestors", "^", h.Ancestors)
	p.refs("Descendants", "v", h.Descendants)
}

func (p *Printer) references(r *inspect.References) {
	bold.Fprintf(p.w, "References to %s\n", r.Name)
	p.refs("Imported by", "<-", r.Imports)
	p.refs("Called by", "<-", r.Calls)
	p.refs("Inherited by", "<-", r.Inherits)
	p.refs("Contained in", "<-", r.Contains)
}

func (p *Printer) refs(title, arrow string, refs []inspect.Ref) {
	cyan.Fprintf(p.w, "  %s (%d)\n", title, len(refs))
	for _, r := range refs {
		fmt.Fprintf(p.w, "    %s %s %s", arrow, r.Type, r.Name)
		if len(r.LineNumbers) > 0 {
			lines := make([]string, len(r.LineNumbers))
			for i, n := range r.LineNumbers {
				lines[i] = fmt.Sprint(n)
			}
			faint.Fprintf(p.w, "  line %s", strings.Join(lines, ","))
		}
		faint.Fprintf(p.w, "  %s\n", r.ID)
	}
}
