package lom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/fedquery/pkg/datatype"
)

func eq(col string, v int32) *Comparison {
	return NewComparison(
		&ColumnReference{Name: col, DataType: datatype.Integer},
		EQ,
		NewLiteral(v, datatype.Integer),
	)
}

func TestSeparateCriteriaByAnd(t *testing.T) {
	aOrB := NewAndOr(eq("a", 1), Or, eq("b", 2))
	c := eq("c", 3)
	d := eq("d", 4)
	crit := NewAndOr(NewAndOr(aOrB, And, c), And, d)

	parts := SeparateCriteriaByAnd(crit)
	require.Len(t, parts, 3)
	assert.Same(t, aOrB, parts[0])
	assert.Same(t, c, parts[1])
	assert.Same(t, d, parts[2])
	assert.Equal(t, "a = 1 OR b = 2", SQLString(parts[0]))
	assert.Equal(t, "c = 3", SQLString(parts[1]))
	assert.Equal(t, "d = 4", SQLString(parts[2]))
}

func TestSeparateCriteriaByAnd_RightNested(t *testing.T) {
	crit := NewAndOr(eq("a", 1), And, NewAndOr(eq("b", 2), And, eq("c", 3)))
	parts := SeparateCriteriaByAnd(crit)
	require.Len(t, parts, 3)
	assert.Equal(t, "b = 2", SQLString(parts[1]))
}

func TestSeparateCriteriaByAnd_Single(t *testing.T) {
	or := NewAndOr(eq("a", 1), Or, eq("b", 2))
	assert.Equal(t, []Condition{or}, SeparateCriteriaByAnd(or))
	assert.Empty(t, SeparateCriteriaByAnd(nil))
}

func TestCombineCriteria(t *testing.T) {
	a, b := eq("a", 1), eq("b", 2)
	assert.Nil(t, CombineCriteria(nil, nil))
	assert.Same(t, a, CombineCriteria(a, nil))
	assert.Same(t, b, CombineCriteria(nil, b))

	combined := CombineCriteria(a, b)
	assert.Equal(t, "a = 1 AND b = 2", SQLString(combined))

	all := CombineCriteriaList([]Condition{a, b, eq("c", 3)})
	assert.Len(t, SeparateCriteriaByAnd(all), 3)
	assert.Nil(t, CombineCriteriaList(nil))
}
