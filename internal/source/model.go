package source

import (
	"strings"

	"github.com/roach88/l5xst/internal/ir"
)

// RoutineKind is the language a routine is written in.
type RoutineKind string

const (
	RoutineRLL RoutineKind = "RLL"
	RoutineFBD RoutineKind = "FBD"
	RoutineST  RoutineKind = "ST"
)

// Controller is one loaded project (a Program Unit).
type Controller struct {
	// Index is the 1-based position of the controller in the input set.
	Index    int
	Name     string
	Tags     []Tag // controller scope
	Types    []DataType
	AOIs     []AOI
	Modules  []string
	Programs []Program
}

// Tag is a declared variable.
type Tag struct {
	Name        string
	Type        string // vendor data type name
	Dim         int
	Scope       ir.Scope
	Kind        ir.TagKind
	Alias       string
	Init        string
	Description string
	Message     *Message
}

// Message holds the configuration of a MESSAGE tag.
type Message struct {
	Write  bool
	Path   string // connection path
	Local  string // local element
	Remote string // remote element
}

// DataType is a user-defined structure.
type DataType struct {
	Name    string
	Members []Member
}

// Member is one DataType field.
type Member struct {
	Name string
	Type string
	Dim  int
}

// ParamUsage is the direction of an AOI parameter.
type ParamUsage string

const (
	UsageInput  ParamUsage = "Input"
	UsageOutput ParamUsage = "Output"
	UsageInOut  ParamUsage = "InOut"
	UsageLocal  ParamUsage = "Local"
)

// Param is an add-on instruction parameter or local tag.
type Param struct {
	Name  string
	Type  string
	Dim   int
	Usage ParamUsage
}

// AOI is an add-on instruction (a user-defined function block).
type AOI struct {
	Name     string
	Params   []Param
	Routines []Routine
}

// Param returns the parameter named name (case-insensitive).
func (a *AOI) Param(name string) (*Param, bool) {
	for i := range a.Params {
		if strings.EqualFold(a.Params[i].Name, name) {
			return &a.Params[i], true
		}
	}
	return nil, false
}

// Program is a container of routines.
type Program struct {
	Name        string
	MainRoutine string
	Tags        []Tag // program scope
	Routines    []Routine
}

// Routine returns the routine named name (case-insensitive).
func (p *Program) Routine(name string) (*Routine, bool) {
	for i := range p.Routines {
		if strings.EqualFold(p.Routines[i].Name, name) {
			return &p.Routines[i], true
		}
	}
	return nil, false
}

// Routine is a unit of logic in one language.
type Routine struct {
	Name   string
	Kind   RoutineKind
	Rungs  []Rung
	Sheets []*Sheet
	ST     string
}

// Rung is one ladder rung. Network is nil when the text could not be
// parsed; ParseErr then says why.
type Rung struct {
	Number   int
	Text     string
	Comment  string
	Network  Series
	ParseErr error
}

// Tag returns the controller-scope tag named name.
func (c *Controller) Tag(name string) (*Tag, bool) {
	return findTag(c.Tags, name)
}

// DataType returns the user data type named name.
func (c *Controller) DataType(name string) (*DataType, bool) {
	for i := range c.Types {
		if strings.EqualFold(c.Types[i].Name, name) {
			return &c.Types[i], true
		}
	}
	return nil, false
}

// AOI returns the add-on instruction named name.
func (c *Controller) AOI(name string) (*AOI, bool) {
	for i := range c.AOIs {
		if strings.EqualFold(c.AOIs[i].Name, name) {
			return &c.AOIs[i], true
		}
	}
	return nil, false
}

// IsModule reports whether name is a declared module.
func (c *Controller) IsModule(name string) bool {
	for _, m := range c.Modules {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

// Lookup resolves a tag the way a routine of program p sees it: program
// scope first, then controller scope. p may be nil.
func (c *Controller) Lookup(p *Program, name string) (*Tag, bool) {
	if p != nil {
		if t, ok := findTag(p.Tags, name); ok {
			return t, true
		}
	}
	return c.Tag(name)
}

func findTag(tags []Tag, name string) (*Tag, bool) {
	for i := range tags {
		if strings.EqualFold(tags[i].Name, name) {
			return &tags[i], true
		}
	}
	return nil, false
}
