package postgres

import (
	"fmt"
	"strings"
)

// selectQuery accumulates a SELECT with positional arguments.
type selectQuery struct {
	base    string
	conds   []string
	args    []any
	groupBy string
	orderBy string
}

func newSelect(base string) *selectQuery {
	return &selectQuery{base: base}
}

// where adds a condition; each "?" in cond is bound to the next argument.
func (q *selectQuery) where(cond string, args ...any) *selectQuery {
	for _, a := range args {
		q.args = append(q.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(q.args)), 1)
	}
	q.conds = append(q.conds, cond)
	return q
}

// whereIf adds the condition only when value is non-empty.
func (q *selectQuery) whereIf(cond string, value string) *selectQuery {
	if value == "" {
		return q
	}
	return q.where(cond, value)
}

func (q *selectQuery) group(by string) *selectQuery {
	q.groupBy = by
	return q
}

func (q *selectQuery) order(by string) *selectQuery {
	q.orderBy = by
	return q
}

func (q *selectQuery) build() (string, []any) {
	var sb strings.Builder
	sb.WriteString(q.base)
	if len(q.conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.conds, " AND "))
	}
	if q.groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(q.groupBy)
	}
	if q.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
	}
	return sb.String(), q.args
}
