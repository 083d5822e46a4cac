package models

import (
	"strings"
	"unicode/utf8"
)

// DetailState classifies how complete a record's detail row is.
type DetailState string

const (
	DetailMissing DetailState = "MISSING"
	DetailEmpty   DetailState = "EMPTY"
	DetailExists  DetailState = "EXISTS"
)

// Valid reports whether s is one of the three states.
func (s DetailState) Valid() bool {
	return s == DetailMissing || s == DetailEmpty || s == DetailExists
}

// ClassifyDetail derives the state from row presence and the first name column.
func ClassifyDetail(present bool, firstName *string) DetailState {
	switch {
	case !present:
		return DetailMissing
	case firstName == nil || strings.TrimSpace(*firstName) == "":
		return DetailEmpty
	default:
		return DetailExists
	}
}

// DisplayName renders "Last, First M." for complete details and falls back to
// the primary table's name otherwise.
func DisplayName(state DetailState, first, middle, last *string, fallback string) string {
	if state != DetailExists {
		return strings.TrimSpace(fallback)
	}
	f, m, l := trimmed(first), trimmed(middle), trimmed(last)

	var b strings.Builder
	if l != "" {
		b.WriteString(l)
		b.WriteString(", ")
	}
	b.WriteString(f)
	if m != "" {
		r, _ := utf8.DecodeRuneInString(m)
		b.WriteByte(' ')
		b.WriteString(strings.ToUpper(string(r)))
		b.WriteByte('.')
	}
	return b.String()
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	Status      string
	Search      string
	DetailState DetailState
	UserID      *string
	Page        int
	PageSize    int
}

// Normalize clamps paging to page >= 1 and 1..100 rows, default 20.
func (f *RecordFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	f.Search = strings.TrimSpace(f.Search)
}

// Offset returns the row offset for the current page.
func (f RecordFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// WriteResult reports the outcome of a register or update.
type WriteResult struct {
	ID            int64   `json:"id"`
	ControlNumber *string `json:"control_number,omitempty"`
	DetailCreated bool    `json:"detail_created"`
}
