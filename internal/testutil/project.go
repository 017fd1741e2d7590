package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/l5x"
)

// MainProgram and MainRoutine are the names Project gives the program and
// routine that hold the logic.
const (
	MainProgram = "MainProgram"
	MainRoutine = "MainRoutine"
)

// Project builds a one-program controller document.
//
//	doc := testutil.NewProject("Line1").
//		Tag("Start", "BOOL").
//		Tag("Motor", "BOOL").
//		Rungs("XIC(Start)OTE(Motor);").
//		Content()
type Project struct {
	c l5x.Content
}

// NewProject starts a document for the named controller.
func NewProject(controller string) *Project {
	p := &Project{c: l5x.Content{
		SchemaRevision: "1.0",
		TargetName:     controller,
		TargetType:     "Controller",
		Controller: l5x.Controller{
			Name:     controller,
			Programs: []l5x.Program{{Name: MainProgram, MainRoutineName: MainRoutine}},
			Tasks: []l5x.Task{{
				Name:      "MainTask",
				Type:      "CONTINUOUS",
				Scheduled: []l5x.ScheduledProgram{{Name: MainProgram}},
			}},
		},
	}}
	return p
}

func (p *Project) program() *l5x.Program {
	return &p.c.Controller.Programs[0]
}

// Tag adds a controller-scope base tag.
func (p *Project) Tag(name, typ string) *Project {
	p.c.Controller.Tags = append(p.c.Controller.Tags, l5x.Tag{Name: name, TagType: "Base", DataType: typ})
	return p
}

// TagInit adds a controller-scope base tag with an initial value.
func (p *Project) TagInit(name, typ, value string) *Project {
	p.c.Controller.Tags = append(p.c.Controller.Tags, l5x.Tag{
		Name:     name,
		TagType:  "Base",
		DataType: typ,
		Data:     []l5x.Data{{Format: "L5K", Text: value}},
	})
	return p
}

// Array adds a controller-scope array tag.
func (p *Project) Array(name, typ, dim string) *Project {
	p.c.Controller.Tags = append(p.c.Controller.Tags, l5x.Tag{Name: name, TagType: "Base", DataType: typ, Dimensions: dim})
	return p
}

// ProgramTag adds a program-scope base tag.
func (p *Project) ProgramTag(name, typ string) *Project {
	prog := p.program()
	prog.Tags = append(prog.Tags, l5x.Tag{Name: name, TagType: "Base", DataType: typ})
	return p
}

// Alias adds a controller-scope alias tag.
func (p *Project) Alias(name, target string) *Project {
	p.c.Controller.Tags = append(p.c.Controller.Tags, l5x.Tag{Name: name, TagType: "Alias", AliasFor: target})
	return p
}

// Message adds a MESSAGE tag that writes (or reads) local to remote over
// path.
func (p *Project) Message(name string, write bool, path, local, remote string) *Project {
	kind := "CIP Data Table Read"
	if write {
		kind = "CIP Data Table Write"
	}
	p.c.Controller.Tags = append(p.c.Controller.Tags, l5x.Tag{
		Name:     name,
		TagType:  "Base",
		DataType: "MESSAGE",
		Data: []l5x.Data{{Format: "Message", Message: &l5x.MessageParameters{
			MessageType:    kind,
			ConnectionPath: path,
			LocalElement:   local,
			RemoteElement:  remote,
		}}},
	})
	return p
}

// Type adds a user structure. Members are "Name:TYPE" pairs.
func (p *Project) Type(name string, members ...string) *Project {
	dt := l5x.DataType{Name: name, Family: "NoFamily", Class: "User"}
	for _, m := range members {
		n, typ, _ := strings.Cut(m, ":")
		dt.Members = append(dt.Members, l5x.Member{Name: n, DataType: typ})
	}
	p.c.Controller.DataTypes = append(p.c.Controller.DataTypes, dt)
	return p
}

// Module declares an I/O module.
func (p *Project) Module(name string) *Project {
	p.c.Controller.Modules = append(p.c.Controller.Modules, l5x.Module{Name: name})
	return p
}

// Rungs makes the main routine a ladder routine holding rungs.
func (p *Project) Rungs(rungs ...string) *Project {
	r := l5x.Routine{Name: MainRoutine, Type: "RLL", RLL: &l5x.RLLContent{}}
	for i, text := range rungs {
		r.RLL.Rungs = append(r.RLL.Rungs, l5x.Rung{Number: i, Type: "N", Text: l5x.Text{Value: text}})
	}
	return p.routine(r)
}

// Subroutine adds a ladder routine other than the main one.
func (p *Project) Subroutine(name string, rungs ...string) *Project {
	r := l5x.Routine{Name: name, Type: "RLL", RLL: &l5x.RLLContent{}}
	for i, text := range rungs {
		r.RLL.Rungs = append(r.RLL.Rungs, l5x.Rung{Number: i, Type: "N", Text: l5x.Text{Value: text}})
	}
	prog := p.program()
	prog.Routines = append(prog.Routines, r)
	return p
}

// Text makes the main routine an ST routine holding lines.
func (p *Project) Text(lines ...string) *Project {
	r := l5x.Routine{Name: MainRoutine, Type: "ST", ST: &l5x.STContent{}}
	for i, line := range lines {
		r.ST.Lines = append(r.ST.Lines, l5x.Line{Number: i, Text: line})
	}
	return p.routine(r)
}

func (p *Project) routine(r l5x.Routine) *Project {
	prog := p.program()
	for i := range prog.Routines {
		if prog.Routines[i].Name == r.Name {
			prog.Routines[i] = r
			return p
		}
	}
	prog.Routines = append([]l5x.Routine{r}, prog.Routines...)
	return p
}

// Content returns the built document. Later builder calls modify it.
func (p *Project) Content() *l5x.Content {
	return &p.c
}

// WriteFile encodes the document to dir/name and returns the path.
func (p *Project) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	data, err := l5x.Marshal(&p.c)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
