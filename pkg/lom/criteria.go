package lom

// SeparateCriteriaByAnd flattens nested AND conditions into their conjuncts,
// left to right. Any other condition, including OR, is a single conjunct.
func SeparateCriteriaByAnd(c Condition) []Condition {
	var out []Condition
	separate(c, &out)
	return out
}

func separate(c Condition, out *[]Condition) {
	if c == nil {
		return
	}
	if a, ok := c.(*AndOr); ok && a.Operator == And {
		separate(a.Left, out)
		separate(a.Right, out)
		return
	}
	*out = append(*out, c)
}

// CombineCriteria joins two conditions with AND. A nil side yields the other.
func CombineCriteria(primary, additional Condition) Condition {
	switch {
	case primary == nil:
		return additional
	case additional == nil:
		return primary
	default:
		return NewAndOr(primary, And, additional)
	}
}

// CombineCriteriaList joins conditions with AND, left-deep. It returns nil
// for an empty list.
func CombineCriteriaList(conditions []Condition) Condition {
	var result Condition
	for _, c := range conditions {
		result = CombineCriteria(result, c)
	}
	return result
}
