package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// pyFile is the syntax-level summary of one Python file
type pyFile struct {
	docstring string
	imports   []pyImport
	classes   []pyClass
	functions []pyFunction
}

type pyImport struct {
	module string
	level  int // leading dots of a relative import
	names  []string
	alias  string
	line   int
}

type pyClass struct {
	name       string
	bases      []string
	decorators []string
	docstring  string
	line       int
	endLine    int
	methods    []pyFunction
}

type pyFunction struct {
	name       string
	params     []string
	decorators []string
	docstring  string
	line       int
	endLine    int
	async      bool
	calls      []pyCall
}

// pyCall is a call site inside a function body: receiver is empty for f(),
// "self" for self.f() and the receiver expression otherwise
type pyCall struct {
	receiver string
	name     string
	line     int
}

// parsePython parses content and summarizes the definitions it declares.
// Any syntax error fails the whole file.
func parsePython(ctx context.Context, content []byte) (*pyFile, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: empty syntax tree", ErrSyntax)
	}
	if root.HasError() {
		return nil, &syntaxError{line: firstErrorLine(root)}
	}

	w := &walker{content: content}
	return w.module(root), nil
}

type syntaxError struct {
	line int
}

func (e *syntaxError) Error() string {
	return ErrSyntax.Error()
}

func (e *syntaxError) Unwrap() error {
	return ErrSyntax
}

func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return line(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstErrorLine(child)
		}
	}
	return line(n)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

type walker struct {
	content []byte
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *walker) module(root *sitter.Node) *pyFile {
	f := &pyFile{docstring: w.docstring(root)}

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		def, decorators := w.unwrapDecorated(child)
		switch def.Type() {
		case "class_definition":
			if cls, ok := w.class(def, decorators); ok {
				f.classes = append(f.classes, cls)
			}
		case "function_definition":
			if fn, ok := w.function(def, decorators); ok {
				f.functions = append(f.functions, fn)
			}
		}
	}

	w.collectImports(root, f)
	return f
}

// unwrapDecorated returns the definition inside a decorated_definition
// together with its decorator names
func (w *walker) unwrapDecorated(n *sitter.Node) (*sitter.Node, []string) {
	if n.Type() != "decorated_definition" {
		return n, nil
	}

	var decorators []string
	def := n
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "decorator":
			if name := w.decoratorName(child); name != "" {
				decorators = append(decorators, name)
			}
		case "class_definition", "function_definition":
			def = child
		}
	}
	return def, decorators
}

func (w *walker) decoratorName(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "identifier", "attribute":
			return w.text(child)
		case "call":
			if fn := child.ChildByFieldName("function"); fn != nil {
				return w.text(fn)
			}
		}
	}
	return ""
}

func (w *walker) class(n *sitter.Node, decorators []string) (pyClass, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return pyClass{}, false
	}

	cls := pyClass{
		name:       w.text(nameNode),
		decorators: decorators,
		line:       line(n),
		endLine:    endLine(n),
	}

	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			// keyword arguments such as metaclass= are not bases
			if arg.Type() == "identifier" || arg.Type() == "attribute" {
				cls.bases = append(cls.bases, w.text(arg))
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return cls, true
	}
	cls.docstring = w.docstring(body)

	for i := 0; i < int(body.ChildCount()); i++ {
		def, decs := w.unwrapDecorated(body.Child(i))
		if def.Type() != "function_definition" {
			continue
		}
		if method, ok := w.function(def, decs); ok {
			cls.methods = append(cls.methods, method)
		}
	}

	return cls, true
}

func (w *walker) function(n *sitter.Node, decorators []string) (pyFunction, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return pyFunction{}, false
	}

	fn := pyFunction{
		name:       w.text(nameNode),
		decorators: decorators,
		line:       line(n),
		endLine:    endLine(n),
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			fn.async = true
			break
		}
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			if name := w.parameterName(params.NamedChild(i)); name != "" {
				fn.params = append(fn.params, name)
			}
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		fn.docstring = w.docstring(body)
		w.collectCalls(body, &fn)
	}

	return fn, true
}

func (w *walker) parameterName(n *sitter.Node) string {
	switch n.Type() {
	case "comment", "keyword_separator", "positional_separator":
		return ""
	case "identifier":
		return w.text(n)
	}

	// typed, default and splat parameters: keep the declared name with any
	// star prefix, drop annotation and default value
	text := w.text(n)
	if i := strings.IndexAny(text, ":="); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// collectCalls records call sites in a function body. Nested functions and
// lambdas are attributed to the enclosing function.
func (w *walker) collectCalls(n *sitter.Node, fn *pyFunction) {
	if n.Type() == "class_definition" {
		return
	}
	if n.Type() == "call" {
		if call, ok := w.call(n); ok {
			fn.calls = append(fn.calls, call)
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.collectCalls(n.NamedChild(i), fn)
	}
}

func (w *walker) call(n *sitter.Node) (pyCall, bool) {
	target := n.ChildByFieldName("function")
	if target == nil {
		return pyCall{}, false
	}

	switch target.Type() {
	case "identifier":
		return pyCall{name: w.text(target), line: line(n)}, true
	case "attribute":
		object := target.ChildByFieldName("object")
		attr := target.ChildByFieldName("attribute")
		if object == nil || attr == nil {
			return pyCall{}, false
		}
		return pyCall{receiver: w.text(object), name: w.text(attr), line: line(n)}, true
	}
	return pyCall{}, false
}

// collectImports walks the whole tree so imports nested in functions,
// conditionals and try blocks are found too
func (w *walker) collectImports(n *sitter.Node, f *pyFile) {
	switch n.Type() {
	case "import_statement":
		f.imports = append(f.imports, w.importStatement(n)...)
		return
	case "import_from_statement":
		if imp, ok := w.importFrom(n); ok {
			f.imports = append(f.imports, imp)
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.collectImports(n.NamedChild(i), f)
	}
}

// importStatement handles "import a, b.c as d"
func (w *walker) importStatement(n *sitter.Node) []pyImport {
	var imports []pyImport
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			imports = append(imports, pyImport{module: w.text(child), line: line(n)})
		case "aliased_import":
			imp := pyImport{line: line(n)}
			if name := child.ChildByFieldName("name"); name != nil {
				imp.module = w.text(name)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				imp.alias = w.text(alias)
			}
			if imp.module != "" {
				imports = append(imports, imp)
			}
		}
	}
	return imports
}

// importFrom handles "from a.b import c, d as e" and relative forms
func (w *walker) importFrom(n *sitter.Node) (pyImport, bool) {
	imp := pyImport{line: line(n)}

	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return imp, false
	}
	text := w.text(moduleNode)
	imp.module = strings.TrimLeft(text, ".")
	imp.level = len(text) - len(imp.module)

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.StartByte() == moduleNode.StartByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			imp.names = append(imp.names, w.text(child))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				imp.names = append(imp.names, w.text(name))
			}
		case "wildcard_import":
			imp.names = append(imp.names, "*")
		}
	}

	return imp, imp.module != "" || imp.level > 0
}

// docstring returns the leading string literal of a module or block
func (w *walker) docstring(body *sitter.Node) string {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			return ""
		}
		str := stmt.NamedChild(0)
		if str.Type() != "string" {
			return ""
		}
		return cleanDocstring(w.text(str))
	}
	return ""
}

func cleanDocstring(raw string) string {
	raw = strings.TrimLeft(raw, "rRuUbB")
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, quote) && strings.HasSuffix(raw, quote) && len(raw) >= 2*len(quote) {
			raw = raw[len(quote) : len(raw)-len(quote)]
			break
		}
	}
	return strings.TrimSpace(raw)
}
