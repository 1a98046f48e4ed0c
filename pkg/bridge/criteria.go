package bridge

import (
	"fmt"
	"strings"

	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/query"
)

var comparisonOperators = map[string]lom.ComparisonOperator{
	"=":  lom.EQ,
	"<>": lom.NE,
	"!=": lom.NE,
	"<":  lom.LT,
	"<=": lom.LE,
	">":  lom.GT,
	">=": lom.GE,
}

func comparisonOperator(op string) (lom.ComparisonOperator, error) {
	o, ok := comparisonOperators[op]
	if !ok {
		return 0, fmt.Errorf("comparison operator %q: %w", op, ErrUnsupported)
	}
	return o, nil
}

func (tr *translation) optionalCriteria(c query.Criteria) (lom.Condition, error) {
	if c == nil {
		return nil, nil
	}
	return tr.criteria(c)
}

func (tr *translation) criteria(c query.Criteria) (lom.Condition, error) {
	switch x := c.(type) {
	case *query.CompareCriteria:
		return tr.compare(x)
	case *query.CompoundCriteria:
		return tr.compound(x)
	case *query.MatchCriteria:
		return tr.match(x)
	case *query.SetCriteria:
		left, err := tr.expression(x.Expression)
		if err != nil {
			return nil, err
		}
		values, err := tr.expressions(x.Values)
		if err != nil {
			return nil, err
		}
		return &lom.In{Left: left, Expressions: values, Negated: x.Negated}, nil
	case *query.IsNullCriteria:
		expr, err := tr.expression(x.Expression)
		if err != nil {
			return nil, err
		}
		return &lom.IsNull{Expression: expr, Negated: x.Negated}, nil
	case *query.IsDistinctCriteria:
		left, err := tr.expression(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := tr.expression(x.Right)
		if err != nil {
			return nil, err
		}
		return &lom.IsDistinct{Left: left, Right: right, Negated: x.Negated}, nil
	case *query.BetweenCriteria:
		return tr.between(x)
	case *query.SubqueryCompareCriteria:
		return tr.subqueryCompare(x)
	case *query.SubquerySetCriteria:
		left, err := tr.expression(x.Expression)
		if err != nil {
			return nil, err
		}
		sub, err := tr.queryCommand(x.Command)
		if err != nil {
			return nil, err
		}
		return &lom.SubqueryIn{Left: left, Negated: x.Negated, Subquery: sub}, nil
	case *query.ExistsCriteria:
		sub, err := tr.queryCommand(x.Command)
		if err != nil {
			return nil, err
		}
		var cond lom.Condition = &lom.Exists{Subquery: sub}
		if x.Negated {
			cond = &lom.Not{Condition: cond}
		}
		return cond, nil
	case *query.NotCriteria:
		inner, err := tr.criteria(x.Criteria)
		if err != nil {
			return nil, err
		}
		return &lom.Not{Condition: inner}, nil
	default:
		return nil, fmt.Errorf("criteria %T: %w", c, ErrUnsupported)
	}
}

func (tr *translation) compare(c *query.CompareCriteria) (lom.Condition, error) {
	op, err := comparisonOperator(c.Operator)
	if err != nil {
		return nil, err
	}
	left, err := tr.expression(c.Left)
	if err != nil {
		return nil, err
	}
	right, err := tr.expression(c.Right)
	if err != nil {
		return nil, err
	}
	return lom.NewComparison(left, op, right), nil
}

// compound folds n-ary criteria into left-deep binary AndOr nodes.
func (tr *translation) compound(c *query.CompoundCriteria) (lom.Condition, error) {
	var op lom.AndOrOperator
	switch strings.ToUpper(c.Operator) {
	case "AND":
		op = lom.And
	case "OR":
		op = lom.Or
	default:
		return nil, fmt.Errorf("compound operator %q: %w", c.Operator, ErrUnsupported)
	}
	if len(c.Criteria) == 0 {
		return nil, fmt.Errorf("empty %s criteria: %w", c.Operator, ErrUnsupported)
	}

	var result lom.Condition
	for _, part := range c.Criteria {
		cond, err := tr.criteria(part)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = cond
			continue
		}
		result = lom.NewAndOr(result, op, cond)
	}
	return result, nil
}

func (tr *translation) match(m *query.MatchCriteria) (lom.Condition, error) {
	left, err := tr.expression(m.Left)
	if err != nil {
		return nil, err
	}
	pattern, err := tr.expression(m.Right)
	if err != nil {
		return nil, err
	}
	like := &lom.Like{Left: left, Pattern: pattern, Escape: m.Escape, Negated: m.Negated}
	switch strings.ToUpper(m.Mode) {
	case "", "LIKE":
		like.Mode = lom.MatchLike
	case "SIMILAR":
		like.Mode = lom.MatchSimilar
	case "REGEX":
		like.Mode = lom.MatchRegex
	default:
		return nil, fmt.Errorf("match mode %q: %w", m.Mode, ErrUnsupported)
	}
	return like, nil
}

// between expands x BETWEEN a AND b to x >= a AND x <= b, and the negated
// form to x < a OR x > b. The tested expression is translated once per side.
func (tr *translation) between(b *query.BetweenCriteria) (lom.Condition, error) {
	lowerOp, joinOp, upperOp := lom.GE, lom.And, lom.LE
	if b.Negated {
		lowerOp, joinOp, upperOp = lom.LT, lom.Or, lom.GT
	}

	lowerExpr, err := tr.expression(b.Expression)
	if err != nil {
		return nil, err
	}
	lower, err := tr.expression(b.Lower)
	if err != nil {
		return nil, err
	}
	upperExpr, err := tr.expression(b.Expression)
	if err != nil {
		return nil, err
	}
	upper, err := tr.expression(b.Upper)
	if err != nil {
		return nil, err
	}
	return lom.NewAndOr(
		lom.NewComparison(lowerExpr, lowerOp, lower),
		joinOp,
		lom.NewComparison(upperExpr, upperOp, upper),
	), nil
}

func (tr *translation) subqueryCompare(s *query.SubqueryCompareCriteria) (lom.Condition, error) {
	op, err := comparisonOperator(s.Operator)
	if err != nil {
		return nil, err
	}
	var quantifier lom.Quantifier
	switch strings.ToUpper(s.Quantifier) {
	case "SOME", "ANY":
		quantifier = lom.Some
	case "ALL":
		quantifier = lom.All
	default:
		return nil, fmt.Errorf("quantifier %q: %w", s.Quantifier, ErrUnsupported)
	}
	left, err := tr.expression(s.Left)
	if err != nil {
		return nil, err
	}
	sub, err := tr.queryCommand(s.Command)
	if err != nil {
		return nil, err
	}
	return &lom.SubqueryComparison{Left: left, Operator: op, Quantifier: quantifier, Subquery: sub}, nil
}
