package query

import (
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/metadata"
)

// Expression is a resolved value expression.
type Expression interface {
	expression()
}

// GroupSymbol names a table. Definition is the catalog name when Name is
// an alias.
type GroupSymbol struct {
	Name       string
	Definition string
	Metadata   *metadata.Table
}

// CatalogName returns the name to resolve in the catalog.
func (g *GroupSymbol) CatalogName() string {
	if g.Definition != "" {
		return g.Definition
	}
	return g.Name
}

// IsAliased reports whether the group is an alias of a catalog table.
func (g *GroupSymbol) IsAliased() bool {
	return g.Definition != ""
}

// ElementSymbol is a column of a group. Group is nil for columns of inline
// views referenced by bare name.
type ElementSymbol struct {
	Group    *GroupSymbol
	Name     string
	Metadata *metadata.Column
	Type     datatype.Type
}

func (*ElementSymbol) expression() {}

// Constant is a literal value.
type Constant struct {
	Value       any
	Type        datatype.Type
	Bindable    bool
	Multivalued bool
}

func (*Constant) expression() {}

// Function is a scalar function or operator.
type Function struct {
	Name string
	Args []Expression
	Type datatype.Type
}

func (*Function) expression() {}

// AggregateSymbol is an aggregate call. COUNT with no Args is COUNT(*).
type AggregateSymbol struct {
	Name     string
	Distinct bool
	Args     []Expression
	Filter   Criteria
	OrderBy  *OrderBy
	Type     datatype.Type
}

func (*AggregateSymbol) expression() {}

// Array is an array value.
type Array struct {
	ComponentType datatype.Type
	Elements      []Expression
}

func (*Array) expression() {}

// SearchedCase is CASE WHEN. When and Then are parallel.
type SearchedCase struct {
	When []Criteria
	Then []Expression
	Else Expression
	Type datatype.Type
}

func (*SearchedCase) expression() {}

// ScalarSubquery is a single-valued subquery.
type ScalarSubquery struct {
	Command QueryCommand
}

func (*ScalarSubquery) expression() {}

// WindowFunction is an aggregate over a window.
type WindowFunction struct {
	Function    *AggregateSymbol
	PartitionBy []Expression
	OrderBy     *OrderBy
}

func (*WindowFunction) expression() {}

// Reference is a bind position filled from the command's parameter rows
// or a dependent value set.
type Reference struct {
	Index            int
	Type             datatype.Type
	DependentValueID string
}

func (*Reference) expression() {}

// AliasSymbol names a select item.
type AliasSymbol struct {
	Name   string
	Symbol Expression
}

func (*AliasSymbol) expression() {}
