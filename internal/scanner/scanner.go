package scanner

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"NoticeHub/internal/domain"
)

// Parser captures a single board-layout strategy. Variants differ only
// in pagination stride, page-URL construction, row selection, and how
// the view link is derived from a row.
type Parser interface {
	Kind() string
	// Step is the page-index stride between consecutive list pages.
	Step() int
	PageURL(baseURL string, pageIdx int) string
	// FixedRows returns pinned rows shown on every page.
	FixedRows(doc *goquery.Document) *goquery.Selection
	// GeneralRows returns the ordinary listing rows in DOM order.
	GeneralRows(doc *goquery.Document) *goquery.Selection
	// ParseRow decodes one row into a Notice. A failure is row-level:
	// the caller logs it with the row markup and moves on.
	ParseRow(row *goquery.Selection, fixed bool, baseURL string) (domain.Notice, error)
	// DetailDate extracts the posted date from a detail-page document.
	// Empty means the page carries no recognizable date.
	DetailDate(doc *goquery.Document) string
}

// Registry keeps a mapping from parser kinds to their implementations.
// It is consulted once at startup when sources are bound to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[string]Parser{}}
}

// Register adds or replaces a parser implementation.
func (r *Registry) Register(p Parser) {
	if r.parsers == nil {
		r.parsers = map[string]Parser{}
	}
	r.parsers[p.Kind()] = p
}

// Resolve returns a parser by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Parser, error) {
	if p, ok := r.parsers[kind]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("parser %s is not registered", kind)
}
