package l5x

import (
	"encoding/xml"
)

// Content is the document root.
type Content struct {
	XMLName          xml.Name   `xml:"RSLogix5000Content"`
	SchemaRevision   string     `xml:"SchemaRevision,attr,omitempty"`
	SoftwareRevision string     `xml:"SoftwareRevision,attr,omitempty"`
	TargetName       string     `xml:"TargetName,attr,omitempty"`
	TargetType       string     `xml:"TargetType,attr,omitempty"`
	ContainsContext  string     `xml:"ContainsContext,attr,omitempty"`
	Controller       Controller `xml:"Controller"`
}

// Controller holds one controller's project.
type Controller struct {
	Use           string     `xml:"Use,attr,omitempty"`
	Name          string     `xml:"Name,attr"`
	ProcessorType string     `xml:"ProcessorType,attr,omitempty"`
	MajorRev      string     `xml:"MajorRev,attr,omitempty"`
	MinorRev      string     `xml:"MinorRev,attr,omitempty"`
	DataTypes     []DataType `xml:"DataTypes>DataType"`
	Modules       []Module   `xml:"Modules>Module"`
	AOIs          []AOIDef   `xml:"AddOnInstructionDefinitions>AddOnInstructionDefinition"`
	Tags          []Tag      `xml:"Tags>Tag"`
	Programs      []Program  `xml:"Programs>Program"`
	Tasks         []Task     `xml:"Tasks>Task"`
}

// DataType is a user-defined structure.
type DataType struct {
	Name        string   `xml:"Name,attr"`
	Family      string   `xml:"Family,attr,omitempty"`
	Class       string   `xml:"Class,attr,omitempty"`
	Description *Text    `xml:"Description,omitempty"`
	Members     []Member `xml:"Members>Member"`
}

// Member is a field of a DataType.
type Member struct {
	Name      string `xml:"Name,attr"`
	DataType  string `xml:"DataType,attr"`
	Dimension int    `xml:"Dimension,attr"`
	Radix     string `xml:"Radix,attr,omitempty"`
	Hidden    bool   `xml:"Hidden,attr,omitempty"`
	Target    string `xml:"Target,attr,omitempty"`
	BitNumber string `xml:"BitNumber,attr,omitempty"`
}

// Module is an I/O or communication module.
type Module struct {
	Name          string `xml:"Name,attr"`
	CatalogNumber string `xml:"CatalogNumber,attr,omitempty"`
	ParentModule  string `xml:"ParentModule,attr,omitempty"`
}

// AOIDef is an add-on instruction definition.
type AOIDef struct {
	Name        string      `xml:"Name,attr"`
	Revision    string      `xml:"Revision,attr,omitempty"`
	Description *Text       `xml:"Description,omitempty"`
	Parameters  []Parameter `xml:"Parameters>Parameter"`
	LocalTags   []LocalTag  `xml:"LocalTags>LocalTag"`
	Routines    []Routine   `xml:"Routines>Routine"`
}

// Parameter is an add-on instruction parameter.
type Parameter struct {
	Name      string `xml:"Name,attr"`
	TagType   string `xml:"TagType,attr,omitempty"`
	DataType  string `xml:"DataType,attr"`
	Usage     string `xml:"Usage,attr"` // Input | Output | InOut
	Dimension int    `xml:"Dimension,attr,omitempty"`
	Required  bool   `xml:"Required,attr,omitempty"`
	Visible   bool   `xml:"Visible,attr,omitempty"`
}

// LocalTag is an add-on instruction local variable.
type LocalTag struct {
	Name      string `xml:"Name,attr"`
	DataType  string `xml:"DataType,attr"`
	Dimension int    `xml:"Dimension,attr,omitempty"`
	Data      []Data `xml:"Data,omitempty"`
}

// Tag is a controller- or program-scope variable.
type Tag struct {
	Name           string `xml:"Name,attr"`
	TagType        string `xml:"TagType,attr,omitempty"` // Base | Alias | Produced | Consumed
	DataType       string `xml:"DataType,attr,omitempty"`
	Dimensions     string `xml:"Dimensions,attr,omitempty"`
	AliasFor       string `xml:"AliasFor,attr,omitempty"`
	Radix          string `xml:"Radix,attr,omitempty"`
	Constant       bool   `xml:"Constant,attr,omitempty"`
	ExternalAccess string `xml:"ExternalAccess,attr,omitempty"`
	Description    *Text  `xml:"Description,omitempty"`
	Data           []Data `xml:"Data,omitempty"`
}

// Data holds a tag value in one of several formats.
type Data struct {
	Format  string             `xml:"Format,attr,omitempty"`
	Text    string             `xml:",cdata"`
	Message *MessageParameters `xml:"MessageParameters,omitempty"`
}

// MessageParameters configures a MESSAGE tag.
type MessageParameters struct {
	MessageType     string `xml:"MessageType,attr"` // "CIP Data Table Read" | "CIP Data Table Write"
	RequestedLength int    `xml:"RequestedLength,attr,omitempty"`
	ConnectionPath  string `xml:"ConnectionPath,attr,omitempty"`
	LocalElement    string `xml:"LocalElement,attr,omitempty"`
	RemoteElement   string `xml:"RemoteElement,attr,omitempty"`
	DestinationTag  string `xml:"DestinationTag,attr,omitempty"`
}

// Program is a container of routines and program-scope tags.
type Program struct {
	Name            string    `xml:"Name,attr"`
	MainRoutineName string    `xml:"MainRoutineName,attr,omitempty"`
	Disabled        bool      `xml:"Disabled,attr,omitempty"`
	Tags            []Tag     `xml:"Tags>Tag"`
	Routines        []Routine `xml:"Routines>Routine"`
}

// Routine is one unit of logic.
type Routine struct {
	Name string      `xml:"Name,attr"`
	Type string      `xml:"Type,attr"` // RLL | FBD | ST
	RLL  *RLLContent `xml:"RLLContent,omitempty"`
	FBD  *FBDContent `xml:"FBDContent,omitempty"`
	ST   *STContent  `xml:"STContent,omitempty"`
}

// RLLContent holds ladder rungs.
type RLLContent struct {
	Rungs []Rung `xml:"Rung"`
}

// Rung is one ladder rung in neutral text form.
type Rung struct {
	Number  int    `xml:"Number,attr"`
	Type    string `xml:"Type,attr,omitempty"`
	Comment *Text  `xml:"Comment,omitempty"`
	Text    Text   `xml:"Text"`
}

// FBDContent holds function block diagram sheets.
type FBDContent struct {
	SheetSize        string  `xml:"SheetSize,attr,omitempty"`
	SheetOrientation string  `xml:"SheetOrientation,attr,omitempty"`
	Sheets           []Sheet `xml:"Sheet"`
}

// STContent holds structured text lines.
type STContent struct {
	Lines []Line `xml:"Line"`
}

// Line is one ST source line.
type Line struct {
	Number int    `xml:"Number,attr"`
	Text   string `xml:",cdata"`
}

// Text is a CDATA-wrapped text element.
type Text struct {
	Value string `xml:",cdata"`
}

// Task schedules programs.
type Task struct {
	Name      string             `xml:"Name,attr"`
	Type      string             `xml:"Type,attr,omitempty"`
	Rate      string             `xml:"Rate,attr,omitempty"`
	Priority  int                `xml:"Priority,attr,omitempty"`
	Watchdog  int                `xml:"Watchdog,attr,omitempty"`
	Scheduled []ScheduledProgram `xml:"ScheduledPrograms>ScheduledProgram"`
}

// ScheduledProgram names a program run by a task.
type ScheduledProgram struct {
	Name string `xml:"Name,attr"`
}
