package ir

// Scope is where a tag is declared in the source project.
type Scope string

const (
	ScopeController Scope = "controller"
	ScopeProgram    Scope = "program"
)

// TagKind mirrors the source project's tag kinds.
type TagKind string

const (
	KindBase     TagKind = "base"
	KindAlias    TagKind = "alias"
	KindProduced TagKind = "produced"
	KindConsumed TagKind = "consumed"
)

// Tag is a variable declaration.
type Tag struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`            // ST type name (BOOL, DINT, TON, user struct...)
	Dim   int     `json:"dim,omitempty"`   // array length; 0 for scalars
	Scope Scope   `json:"scope"`           // controller | program
	Kind  TagKind `json:"kind"`            // base | alias | produced | consumed
	Init  *Lit    `json:"init,omitempty"`  // optional initial value
	Alias string  `json:"alias,omitempty"` // alias target for KindAlias
	Note  string  `json:"note,omitempty"`  // description carried into emitted comments
}

// Member is one field of a user-defined structure.
type Member struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Dim  int    `json:"dim,omitempty"`
}

// TypeDecl is a user-defined structure type.
type TypeDecl struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// POUKind distinguishes user-defined program organization units.
type POUKind string

const (
	POUFunction      POUKind = "function"
	POUFunctionBlock POUKind = "function_block"
)

// VarSection is the declaration section a POU variable lives in.
type VarSection string

const (
	VarInput  VarSection = "input"
	VarOutput VarSection = "output"
	VarInOut  VarSection = "in_out"
	VarLocal  VarSection = "local"
)

// Var is a POU-local variable declaration.
type Var struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Dim     int        `json:"dim,omitempty"`
	Section VarSection `json:"section"`
	Init    *Lit       `json:"init,omitempty"`
}

// POU is a user-defined function or function block (an add-on instruction
// on the source side).
type POU struct {
	Name       string  `json:"name"`
	Kind       POUKind `json:"kind"`
	ReturnType string  `json:"return_type,omitempty"`
	Vars       []Var   `json:"vars"`
	Body       []Stmt  `json:"-"`
}

// Program is a complete translation unit: the statements of one merged
// program plus every declaration it closes over.
type Program struct {
	Name  string     `json:"name"`
	Tags  []Tag      `json:"tags"`
	Types []TypeDecl `json:"types"`
	POUs  []POU      `json:"pous"`
	Body  []Stmt     `json:"-"`
}

// Tag returns the tag declared with the given name (case-insensitive).
func (p *Program) Tag(name string) (*Tag, bool) {
	for i := range p.Tags {
		if EqualFold(p.Tags[i].Name, name) {
			return &p.Tags[i], true
		}
	}
	return nil, false
}

// Type returns the structure type declared with the given name.
func (p *Program) Type(name string) (*TypeDecl, bool) {
	for i := range p.Types {
		if EqualFold(p.Types[i].Name, name) {
			return &p.Types[i], true
		}
	}
	return nil, false
}

// POU returns the function or function block with the given name.
func (p *Program) POU(name string) (*POU, bool) {
	for i := range p.POUs {
		if EqualFold(p.POUs[i].Name, name) {
			return &p.POUs[i], true
		}
	}
	return nil, false
}

// Member returns the member with the given name.
func (t *TypeDecl) Member(name string) (*Member, bool) {
	for i := range t.Members {
		if EqualFold(t.Members[i].Name, name) {
			return &t.Members[i], true
		}
	}
	return nil, false
}
