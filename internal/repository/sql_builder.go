package repository

import (
	"fmt"
	"strings"
)

// predicates accumulates AND-ed WHERE conditions with positional arguments.
type predicates struct {
	conds []string
	args  []interface{}
}

// bind appends v and returns its placeholder.
func (p *predicates) bind(v interface{}) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

// add appends a condition.
func (p *predicates) add(cond string) {
	p.conds = append(p.conds, cond)
}

// where renders " WHERE ..." or "" when empty.
func (p *predicates) where() string {
	if len(p.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.conds, " AND ")
}

// page renders LIMIT/OFFSET for a 1-based page.
func page(page, size int) string {
	page, size = normalizePage(page, size)
	return fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
}
