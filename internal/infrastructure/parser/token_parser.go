package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/scanner"
)

// noTokenExpr matches the article id embedded in javascript-style hrefs
// such as goView(no:'1234') or href="...no=1234".
var noTokenExpr = regexp.MustCompile(`(?i)\bno\b\s*[:=]\s*['"]?(\d+)['"]?`)

// TokenParser handles boards whose rows do not link the detail page
// directly: the article id is an embedded no: token, and the view URL is
// produced by rewriting the List endpoint to its View counterpart.
type TokenParser struct{}

var _ scanner.Parser = (*TokenParser)(nil)

func NewTokenParser() *TokenParser { return &TokenParser{} }

func (p *TokenParser) Kind() string { return "token" }

func (p *TokenParser) Step() int { return 1 }

func (p *TokenParser) PageURL(baseURL string, pageIdx int) string {
	return joinQuery(baseURL, "page="+strconv.Itoa(pageIdx+1))
}

func (p *TokenParser) FixedRows(doc *goquery.Document) *goquery.Selection {
	return defaultFixedRows(doc)
}

func (p *TokenParser) GeneralRows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table tbody tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Find("td a").Length() > 0
	})
}

func (p *TokenParser) ParseRow(row *goquery.Selection, fixed bool, baseURL string) (domain.Notice, error) {
	cols := row.Find("td")
	if cols.Length() <= 2 {
		return domain.Notice{}, rowError(p.Kind(), "row has too few columns")
	}
	a := cols.Eq(2).Find("a").First()
	if a.Length() == 0 {
		return domain.Notice{}, rowError(p.Kind(), "missing <a> element")
	}

	href := a.AttrOr("href", "")
	m := noTokenExpr.FindStringSubmatch(href)
	if m == nil {
		return domain.Notice{}, rowError(p.Kind(), "cannot extract article no from href: "+href)
	}

	viewBase := baseURL
	if strings.Contains(viewBase, "List") {
		viewBase = strings.Replace(viewBase, "List", "View", 1)
	}

	label := textAt(cols, 0)
	if fixed {
		label = domain.PinnedLabel
	}

	return domain.Notice{
		SequenceLabel: label,
		Category:      textAt(cols, 1),
		Title:         trimmedText(a),
		Department:    "none",
		Date:          textAt(cols, 3),
		Link:          joinQuery(viewBase, "no="+m[1]),
	}, nil
}

func (p *TokenParser) DetailDate(doc *goquery.Document) string {
	return defaultDetailDate(doc)
}
