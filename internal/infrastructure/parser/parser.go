package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Shared helpers and the default selectors common to the portal-style
// boards. Each concrete parser overrides only what its board does
// differently.

func defaultFixedRows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table tbody tr.b-top-box")
}

func defaultDetailDate(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("li.b-date-box span").Last().Text())
}

// joinQuery appends a query fragment with the right separator.
func joinQuery(baseURL, fragment string) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + fragment
}

// absolutize resolves a (possibly relative) href against the list URL.
func absolutize(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// queryParam extracts one query parameter from an href, tolerating
// relative paths and malformed escapes the way board markup produces them.
func queryParam(href, key string) string {
	if u, err := url.Parse(href); err == nil {
		if v := u.Query().Get(key); v != "" {
			return v
		}
	}
	i := strings.Index(href, key+"=")
	if i < 0 {
		return ""
	}
	v := href[i+len(key)+1:]
	if j := strings.IndexAny(v, "&#"); j >= 0 {
		v = v[:j]
	}
	return v
}

func trimmedText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func textAt(cols *goquery.Selection, idx int) string {
	if cols.Length() <= idx {
		return ""
	}
	return strings.TrimSpace(cols.Eq(idx).Text())
}

func rowError(kind, msg string) error {
	return fmt.Errorf("%s: %s", kind, msg)
}
