package repository

import (
	"fmt"
	"math"
	"strings"
)

// predicate accumulates AND-combined SQL conditions whose values are always bound
// as positional parameters. Only compile-time column names reach the SQL text.
type predicate struct {
	clauses []string
	args    []any
}

// bind appends a value and returns its placeholder.
func (p *predicate) bind(value any) string {
	p.args = append(p.args, value)
	return fmt.Sprintf("$%d", len(p.args))
}

// and adds a condition built from placeholders returned by bind.
func (p *predicate) and(clause string) {
	p.clauses = append(p.clauses, clause)
}

// where renders the WHERE clause, or an empty string when no conditions exist.
func (p *predicate) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// SortField names an orderable issue attribute.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByTitle     SortField = "title"
	SortByPriority  SortField = "priority"
	SortByStatus    SortField = "status"
	SortBySeverity  SortField = "severity"
)

var sortColumns = map[SortField]string{
	SortByCreatedAt: "i.created_at",
	SortByUpdatedAt: "i.updated_at",
	SortByTitle:     "i.title",
	SortByPriority:  "i.priority",
	SortByStatus:    "i.status",
	SortBySeverity:  "i.severity",
}

// SortOrder is the ordering direction.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Sort selects ordering for issue listings.
type Sort struct {
	Field SortField
	Order SortOrder
}

// ParseSort normalizes client input. Unknown fields fall back to created_at,
// unknown directions to descending.
func ParseSort(field, order string) Sort {
	s := Sort{Field: SortField(strings.ToLower(strings.TrimSpace(field))), Order: SortOrder(strings.ToUpper(strings.TrimSpace(order)))}
	if _, ok := sortColumns[s.Field]; !ok {
		s.Field = SortByCreatedAt
	}
	if s.Order != SortAsc && s.Order != SortDesc {
		s.Order = SortDesc
	}
	return s
}

// orderBy renders the ORDER BY clause from the allow-list; issue_id breaks ties.
func (s Sort) orderBy() string {
	normalized := ParseSort(string(s.Field), string(s.Order))
	column := sortColumns[normalized.Field]
	return fmt.Sprintf(" ORDER BY %s %s, i.issue_id %s", column, normalized.Order, normalized.Order)
}

// Page is a 1-indexed page request.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPageNumber keeps Offset from overflowing at any page size.
	MaxPageNumber = math.MaxInt/MaxPageSize + 1
)

// Normalize clamps page number and size to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Number > MaxPageNumber {
		p.Number = MaxPageNumber
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Size
}

// TotalPages returns ceil(total/size).
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching term as a literal substring.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
