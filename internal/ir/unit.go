package ir

// TypeInfo carries just enough type shape for the operator catalogue to
// decide applicability: whether a return type is boolean, void, or a
// nullable reference type.
type TypeInfo struct {
	Name     string
	Nullable bool
}

// IsBoolean reports whether t denotes Go's bool or an equivalent host type.
func (t TypeInfo) IsBoolean() bool {
	return t.Name == "bool" || t.Name == "Boolean"
}

// Param is one formal parameter of a FuncDecl.
type Param struct {
	Name string
	Type TypeInfo
}

// FuncDecl is a single function or method declaration, the unit that
// suppressed-declaration pragmas and target filters operate on.
type FuncDecl struct {
	Name       string
	Owner      string // fully qualified containing compilation unit
	Params     []Param
	ReturnType TypeInfo
	Body       *Block
	Suppressed bool // carries the class/function suppression marker
	Loc        SourceLocation
}

func (n *FuncDecl) Location() SourceLocation { return n.Loc }
func (n *FuncDecl) Clone() Node {
	c := *n
	c.Params = append([]Param(nil), n.Params...)
	c.Body = n.Body.Clone().(*Block)
	return &c
}

// CompilationUnit is the top-level container a FuncDecl's Owner field
// names. It groups the functions that share one per-owner point-id counter
// (spec.md §3).
type CompilationUnit struct {
	Name         string
	File         string // source path read once for comment-pragma suppression
	Funcs        []*FuncDecl
	TargetMarked bool // carries the mutation-target marker; required for transformation
	Loc          SourceLocation
}

func (n *CompilationUnit) Location() SourceLocation { return n.Loc }
func (n *CompilationUnit) Clone() Node {
	c := *n
	c.Funcs = make([]*FuncDecl, len(n.Funcs))
	for i, f := range n.Funcs {
		c.Funcs[i] = f.Clone().(*FuncDecl)
	}
	return &c
}
