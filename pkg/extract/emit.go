package extract

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ritzau/codegraph/pkg/model"
)

type emitter struct {
	*Extractor
	result *Result
	path   string

	module    *model.Component
	functions map[string]*model.Component            // module-level functions by name
	methods   map[string]map[string]*model.Component // class ID -> method name -> method
	byMethod  map[string][]*model.Component          // method name -> methods across classes in this file
}

func (em *emitter) emit(f *pyFile) error {
	em.functions = make(map[string]*model.Component)
	em.methods = make(map[string]map[string]*model.Component)
	em.byMethod = make(map[string][]*model.Component)

	em.emitModule(f)

	type pending struct {
		fn     pyFunction
		caller *model.Component
		class  *model.Component
	}
	var bodies []pending

	for _, cls := range f.classes {
		class, err := em.emitClass(cls)
		if err != nil {
			return err
		}
		for _, m := range cls.methods {
			method, err := em.emitFunction(m, class)
			if err != nil {
				return err
			}
			bodies = append(bodies, pending{fn: m, caller: method, class: class})
		}
	}

	for _, fn := range f.functions {
		function, err := em.emitFunction(fn, nil)
		if err != nil {
			return err
		}
		bodies = append(bodies, pending{fn: fn, caller: function})
	}

	for _, imp := range f.imports {
		if err := em.emitImport(imp); err != nil {
			return err
		}
	}

	if em.calls {
		for _, b := range bodies {
			if err := em.emitCalls(b.fn, b.caller, b.class); err != nil {
				return err
			}
		}
	}

	return nil
}

func (em *emitter) add(c *model.Component) {
	if c.FilePath != "" && c.Type != model.ComponentModule {
		key := IdentityKey(c)
		if id, ok := em.previous[key]; ok {
			c.ID = id
			delete(em.previous, key)
		}
	}
	em.graph.AddComponent(c)
	em.result.Components = append(em.result.Components, c)
}

func (em *emitter) relate(source, target *model.Component, typ model.RelationshipType, meta model.RelationshipMetadata) error {
	r := model.NewRelationship(source.ID, target.ID, typ)
	r.Metadata = meta
	if err := em.graph.AddRelationship(r); err != nil {
		return err
	}
	em.result.Relationships = append(em.result.Relationships, r)
	return nil
}

// emitModule creates the file's module component. A placeholder created
// earlier by an import of this module, or left behind when the file was last
// cleared, is promoted in place so existing imports edges land on the real
// module.
func (em *emitter) emitModule(f *pyFile) {
	stem := strings.TrimSuffix(filepath.Base(em.path), filepath.Ext(em.path))
	qualified := ModuleName(em.root, em.path)

	name := stem
	if stem == "__init__" {
		name = packageLabel(qualified, em.path)
	}

	var module *model.Component
	if existing := em.placeholder(qualified, name); existing != nil {
		promoted := *existing
		module = &promoted
	} else {
		module = model.NewComponent(name, model.ComponentModule)
	}

	module.Name = name
	module.FilePath = em.path
	module.LineNumber = 1
	module.Metadata = model.ComponentMetadata{
		Path:          em.path,
		QualifiedName: qualified,
		Docstring:     f.docstring,
	}

	em.module = module
	em.result.Module = module
	em.add(module)
}

// packageLabel names an __init__.py module after its package
func packageLabel(qualified, path string) string {
	if qualified != "" && qualified != "__init__" {
		return qualified[strings.LastIndex(qualified, ".")+1:]
	}
	if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
		return dir
	}
	return "__init__"
}

// placeholder finds an import placeholder for the module being emitted. A
// match on the dotted name wins over one on the plain name, and a plain name
// match is only taken when the placeholder does not claim another package.
func (em *emitter) placeholder(qualified, name string) *model.Component {
	var byName *model.Component
	for _, c := range em.graph.ComponentsByType(model.ComponentModule) {
		if !c.Metadata.Imported {
			continue
		}
		switch {
		case c.Metadata.QualifiedName == qualified || c.Name == qualified:
			return c
		case byName == nil && c.Name == name && (c.Metadata.QualifiedName == "" || c.Metadata.QualifiedName == name):
			byName = c
		}
	}
	return byName
}

func (em *emitter) emitClass(cls pyClass) (*model.Component, error) {
	class := model.NewComponent(cls.name, model.ComponentClass)
	class.FilePath = em.path
	class.LineNumber = cls.line
	class.Metadata = model.ComponentMetadata{
		QualifiedName: cls.name,
		Docstring:     cls.docstring,
		ModuleID:      em.module.ID,
		Bases:         cls.bases,
		Decorators:    cls.decorators,
		LineEnd:       cls.endLine,
	}
	em.add(class)

	if err := em.relate(em.module, class, model.RelationshipContains, model.RelationshipMetadata{}); err != nil {
		return nil, err
	}

	for _, base := range cls.bases {
		target := em.resolveBase(base, class.ID)
		if target == nil {
			class.Metadata.UnresolvedBases = append(class.Metadata.UnresolvedBases, base)
			em.result.Unresolved = append(em.result.Unresolved, Unresolved{
				Kind: "base", Name: base, Line: cls.line, ComponentID: class.ID,
			})
			continue
		}
		if err := em.relate(class, target, model.RelationshipInherits, model.RelationshipMetadata{LineNumbers: []int{cls.line}}); err != nil {
			return nil, err
		}
	}

	return class, nil
}

// resolveBase finds a known class or interface named base, preferring one
// declared in the same file. Dotted bases fall back to their last segment.
func (em *emitter) resolveBase(base, self string) *model.Component {
	names := []string{base}
	if i := strings.LastIndex(base, "."); i >= 0 {
		names = append(names, base[i+1:])
	}

	for _, name := range names {
		var match *model.Component
		for _, c := range em.graph.ComponentsByName(name) {
			if c.ID == self || (c.Type != model.ComponentClass && c.Type != model.ComponentInterface) {
				continue
			}
			if c.FilePath == em.path {
				return c
			}
			if match == nil {
				match = c
			}
		}
		if match != nil {
			return match
		}
	}
	return nil
}

// emitFunction creates a function, or a method when class is set, contained
// by its lexical parent
func (em *emitter) emitFunction(fn pyFunction, class *model.Component) (*model.Component, error) {
	typ := model.ComponentFunction
	parent := em.module
	qualified := fn.name
	if class != nil {
		typ = model.ComponentMethod
		parent = class
		qualified = class.Name + "." + fn.name
	}

	c := model.NewComponent(fn.name, typ)
	c.FilePath = em.path
	c.LineNumber = fn.line
	c.Metadata = model.ComponentMetadata{
		QualifiedName: qualified,
		Docstring:     fn.docstring,
		ModuleID:      em.module.ID,
		Decorators:    fn.decorators,
		Parameters:    fn.params,
		LineEnd:       fn.endLine,
		Async:         fn.async,
	}
	if class != nil {
		c.Metadata.ClassID = class.ID
	}
	em.add(c)

	if class != nil {
		if em.methods[class.ID] == nil {
			em.methods[class.ID] = make(map[string]*model.Component)
		}
		em.methods[class.ID][fn.name] = c
		em.byMethod[fn.name] = append(em.byMethod[fn.name], c)
	} else {
		em.functions[fn.name] = c
	}

	if err := em.relate(parent, c, model.RelationshipContains, model.RelationshipMetadata{}); err != nil {
		return nil, err
	}
	return c, nil
}

func (em *emitter) emitImport(imp pyImport) error {
	meta := model.RelationshipMetadata{
		LineNumbers: []int{imp.line},
		Names:       imp.names,
		Alias:       imp.alias,
	}
	if imp.level == 0 {
		return em.importModule(imp.module, meta)
	}

	base := em.packageName(imp.level)
	if imp.module != "" {
		if base == "" {
			return em.importModule(imp.module, meta)
		}
		return em.importModule(base+"."+imp.module, meta, imp.module)
	}

	// from . import a, b: submodules get an edge of their own, anything else
	// is an attribute of the package
	var attrs []string
	for _, name := range imp.names {
		if name != "*" && (base == "" || em.isSubmodule(imp.level, base, name)) {
			sub := model.RelationshipMetadata{LineNumbers: []int{imp.line}}
			if err := em.importModule(joinModule(base, name), sub); err != nil {
				return err
			}
			continue
		}
		attrs = append(attrs, name)
	}
	if len(attrs) == 0 || base == "" {
		return nil
	}
	meta.Names = attrs
	return em.importModule(base, meta)
}

// importModule links the file's module to the module called name, trying
// fallbacks before creating a placeholder
func (em *emitter) importModule(name string, meta model.RelationshipMetadata, fallbacks ...string) error {
	target := em.resolveModule(name)
	for _, fallback := range fallbacks {
		if target != nil {
			break
		}
		target = em.resolveModule(fallback)
	}
	if target == nil {
		target = model.NewComponent(name, model.ComponentModule)
		target.Metadata.QualifiedName = name
		target.Metadata.Imported = true
		em.add(target)
	}
	if target.ID == em.module.ID {
		return nil
	}
	return em.relate(em.module, target, model.RelationshipImports, meta)
}

// packageName returns the dotted package a relative import with the given
// number of leading dots starts from, or "" above the analysis root
func (em *emitter) packageName(level int) string {
	var parts []string
	if q := em.module.Metadata.QualifiedName; q != "" && q != "__init__" {
		parts = strings.Split(q, ".")
	}
	if filepath.Base(em.path) != "__init__.py" && len(parts) > 0 {
		parts = parts[:len(parts)-1]
	}
	up := level - 1
	if up > len(parts) {
		return ""
	}
	return strings.Join(parts[:len(parts)-up], ".")
}

// isSubmodule reports whether name in "from . import name" is a module of
// the package rather than an attribute defined in its __init__.py
func (em *emitter) isSubmodule(level int, base, name string) bool {
	if em.moduleByQualifiedName(base+"."+name) != nil {
		return true
	}
	dir := filepath.Dir(em.path)
	for range level - 1 {
		dir = filepath.Dir(dir)
	}
	for _, candidate := range []string{
		filepath.Join(dir, name+".py"),
		filepath.Join(dir, name, "__init__.py"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return true
		}
	}
	return false
}

func joinModule(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

// resolveModule finds a module component by dotted name, then by plain name
func (em *emitter) resolveModule(name string) *model.Component {
	if c := em.moduleByQualifiedName(name); c != nil {
		return c
	}
	for _, c := range em.graph.ComponentsByName(name) {
		if c.Type == model.ComponentModule {
			return c
		}
	}
	return nil
}

func (em *emitter) moduleByQualifiedName(name string) *model.Component {
	for _, c := range em.graph.ComponentsByType(model.ComponentModule) {
		if c.Metadata.QualifiedName == name {
			return c
		}
	}
	return nil
}

// emitCalls links a function body's call sites to functions and methods
// declared in the same file. One edge is emitted per callee, carrying every
// line the callee is called from.
func (em *emitter) emitCalls(fn pyFunction, caller, class *model.Component) error {
	var order []*model.Component
	lines := make(map[string][]int)

	for _, call := range fn.calls {
		callee := em.resolveCall(call, class)
		if callee == nil {
			continue
		}
		if _, seen := lines[callee.ID]; !seen {
			order = append(order, callee)
		}
		if !slices.Contains(lines[callee.ID], call.line) {
			lines[callee.ID] = append(lines[callee.ID], call.line)
		}
	}

	for _, callee := range order {
		if err := em.relate(caller, callee, model.RelationshipCalls, model.RelationshipMetadata{LineNumbers: lines[callee.ID]}); err != nil {
			return err
		}
	}
	return nil
}

func (em *emitter) resolveCall(call pyCall, class *model.Component) *model.Component {
	switch {
	case call.receiver == "":
		return em.functions[call.name]
	case (call.receiver == "self" || call.receiver == "cls") && class != nil:
		if m := em.methods[class.ID][call.name]; m != nil {
			return m
		}
	}

	// obj.name(): only link when the method name is unambiguous in this file
	if candidates := em.byMethod[call.name]; len(candidates) == 1 {
		return candidates[0]
	}
	return nil
}
