package parser

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/scanner"
)

const offsetPageLimit = 10

// OffsetParser handles the portal boards paginated by an article offset
// (?mode=list&articleLimit=10&article.offset=N). Pinned rows carry the
// b-top-box class; the article id sits in the articleNo query parameter.
type OffsetParser struct{}

var _ scanner.Parser = (*OffsetParser)(nil)

func NewOffsetParser() *OffsetParser { return &OffsetParser{} }

func (p *OffsetParser) Kind() string { return "offset" }

func (p *OffsetParser) Step() int { return offsetPageLimit }

func (p *OffsetParser) PageURL(baseURL string, pageIdx int) string {
	return joinQuery(baseURL, "mode=list&articleLimit="+strconv.Itoa(offsetPageLimit)+
		"&article.offset="+strconv.Itoa(pageIdx))
}

func (p *OffsetParser) FixedRows(doc *goquery.Document) *goquery.Selection {
	return defaultFixedRows(doc)
}

func (p *OffsetParser) GeneralRows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table tbody tr").Not(".b-top-box").FilterFunction(
		func(_ int, row *goquery.Selection) bool {
			// colspan rows are "no results" placeholders, not articles
			return row.Find("td[colspan]").Length() == 0
		})
}

func (p *OffsetParser) ParseRow(row *goquery.Selection, fixed bool, baseURL string) (domain.Notice, error) {
	cols := row.Find("td")
	a := row.Find("td a").First()
	if a.Length() == 0 {
		return domain.Notice{}, rowError(p.Kind(), "missing <a> element")
	}

	href := a.AttrOr("href", "")
	articleNo := queryParam(href, "articleNo")
	if articleNo == "" {
		return domain.Notice{}, rowError(p.Kind(), "cannot extract articleNo from href: "+href)
	}

	label := textAt(cols, 0)
	if fixed {
		label = domain.PinnedLabel
	}

	return domain.Notice{
		SequenceLabel: label,
		Category:      textAt(cols, 1),
		Title:         trimmedText(a),
		Department:    textAt(cols, 4),
		Date:          textAt(cols, 5),
		Link:          joinQuery(baseURL, "mode=view&articleNo="+articleNo),
	}, nil
}

func (p *OffsetParser) DetailDate(doc *goquery.Document) string {
	return defaultDetailDate(doc)
}
