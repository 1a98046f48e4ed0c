// Package metadata provides the catalog entities referenced by the language
// object model and the Catalog abstraction connectors use to look them up.
package metadata

import (
	"strings"

	"github.com/txn2/fedquery/pkg/datatype"
)

// Table is a catalog table or view.
type Table struct {
	Schema       string
	Name         string
	NameInSource string
	Columns      []*Column
	Updatable    bool
	Cardinality  int64
	Properties   map[string]string
}

// FullName returns schema.name, or name when no schema is set.
func (t *Table) FullName() string {
	return qualify(t.Schema, t.Name)
}

// SourceName returns the name used when pushing commands to the source.
func (t *Table) SourceName() string {
	if t.NameInSource != "" {
		return t.NameInSource
	}
	return t.Name
}

// Column finds a column by case-insensitive name.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// AddColumn appends a column and links it back to t.
func (t *Table) AddColumn(c *Column) *Column {
	c.Parent = t
	c.Position = len(t.Columns) + 1
	t.Columns = append(t.Columns, c)
	return c
}

// Column is a table or result-set column.
type Column struct {
	Name         string
	NameInSource string
	Type         datatype.Type
	Nullable     bool
	Position     int
	Description  string
	Parent       *Table
}

// SourceName returns the name used when pushing commands to the source.
func (c *Column) SourceName() string {
	if c.NameInSource != "" {
		return c.NameInSource
	}
	return c.Name
}

// FullName returns the parent-qualified column name.
func (c *Column) FullName() string {
	if c.Parent == nil {
		return c.Name
	}
	return c.Parent.FullName() + "." + c.Name
}

// Direction is the direction of a procedure parameter.
type Direction int

// Parameter directions.
const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionInOut
	DirectionReturn
)

// String returns the SQL keyword for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionInOut:
		return "INOUT"
	case DirectionReturn:
		return "RETURN"
	default:
		return "IN"
	}
}

// Procedure is a stored procedure exposed by a source.
type Procedure struct {
	Schema       string
	Name         string
	NameInSource string
	Parameters   []*ProcedureParameter
	ResultSet    []*Column
	UpdateCount  int
}

// FullName returns schema.name, or name when no schema is set.
func (p *Procedure) FullName() string {
	return qualify(p.Schema, p.Name)
}

// SourceName returns the name used when pushing commands to the source.
func (p *Procedure) SourceName() string {
	if p.NameInSource != "" {
		return p.NameInSource
	}
	return p.Name
}

// AddParameter appends a parameter and links it back to p.
func (p *Procedure) AddParameter(param *ProcedureParameter) *ProcedureParameter {
	param.Procedure = p
	param.Position = len(p.Parameters) + 1
	p.Parameters = append(p.Parameters, param)
	return param
}

// DeclaredParameterCount returns the number of parameters, excluding the
// return value.
func (p *Procedure) DeclaredParameterCount() int {
	n := 0
	for _, param := range p.Parameters {
		if param.Direction != DirectionReturn {
			n++
		}
	}
	return n
}

// ReturnParameter returns the return-value parameter, if declared.
func (p *Procedure) ReturnParameter() *ProcedureParameter {
	for _, param := range p.Parameters {
		if param.Direction == DirectionReturn {
			return param
		}
	}
	return nil
}

// ProcedureParameter is a declared procedure parameter.
type ProcedureParameter struct {
	Name         string
	NameInSource string
	Type         datatype.Type
	Direction    Direction
	Position     int
	Procedure    *Procedure
}

// SourceName returns the name used when pushing commands to the source.
func (p *ProcedureParameter) SourceName() string {
	if p.NameInSource != "" {
		return p.NameInSource
	}
	return p.Name
}

func qualify(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
