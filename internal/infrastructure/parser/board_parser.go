package parser

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/scanner"
)

// BoardParser handles bbs-style boards paginated one page at a time
// (?page=N, 1-based). The detail link is the row's own VIEW anchor,
// carried as a relative path with the article id in the num parameter.
type BoardParser struct{}

var _ scanner.Parser = (*BoardParser)(nil)

func NewBoardParser() *BoardParser { return &BoardParser{} }

func (p *BoardParser) Kind() string { return "board" }

func (p *BoardParser) Step() int { return 1 }

func (p *BoardParser) PageURL(baseURL string, pageIdx int) string {
	return joinQuery(baseURL, "page="+strconv.Itoa(pageIdx+1))
}

func (p *BoardParser) FixedRows(doc *goquery.Document) *goquery.Selection {
	return defaultFixedRows(doc)
}

// GeneralRows keeps only real article rows: those holding a VIEW link.
func (p *BoardParser) GeneralRows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Find("td.responsive03 a[href*='mode=VIEW']").Length() > 0
	})
}

func (p *BoardParser) ParseRow(row *goquery.Selection, fixed bool, baseURL string) (domain.Notice, error) {
	a := row.Find("td.responsive03 a[href*='mode=VIEW']").First()
	if a.Length() == 0 {
		return domain.Notice{}, rowError(p.Kind(), "missing VIEW link")
	}

	href := a.AttrOr("href", "")
	if queryParam(href, "num") == "" {
		return domain.Notice{}, rowError(p.Kind(), "cannot extract num from href: "+href)
	}

	label := trimmedText(row.Find("td.responsive01").First())
	if fixed {
		label = domain.PinnedLabel
	}

	author := trimmedText(row.Find("td.responsive04").First())
	if author == "" {
		author = "none"
	}

	return domain.Notice{
		SequenceLabel: label,
		Category:      "none",
		Title:         trimmedText(a),
		Department:    author,
		Date:          trimmedText(row.Find("td.responsive05").First()),
		Link:          absolutize(baseURL, href),
	}, nil
}

func (p *BoardParser) DetailDate(doc *goquery.Document) string {
	return defaultDetailDate(doc)
}
