package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/fanout"
	"NoticeHub/internal/keyword"
	"NoticeHub/internal/ports"
	"NoticeHub/internal/scanner"
)

const (
	fetchAttempts = 4
	backoffBase   = 600 * time.Millisecond
	backoffCap    = 6 * time.Second
	backoffJitter = 0.4

	// a source with no records created inside this window is re-walked
	// from scratch
	staleWindow = 7 * 24 * time.Hour

	incrementalPageCap  = 5
	emptyPageLimit      = 2
	incrementalDupLimit = 2
	fullLoadDupLimit    = 5
	pageSafetyCap       = 50

	unknownDate = "Unknown"
)

// Source describes one configured institutional board.
type Source struct {
	Type   string
	URL    string
	Parser scanner.Parser
	// DetailDate marks boards whose listing rows carry no usable date;
	// each record's detail page is fetched once to fill it.
	DetailDate bool
	// PageSize is the expected full-page row count used by the
	// full-load last-page heuristic. Zero derives it from the stride.
	PageSize int
}

// FetchError marks a source tick aborted because page retries were
// exhausted. The sweep driver re-attempts such sources once.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: retries exhausted: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// OrchestratorDeps wires all driven adapters into the scrape orchestrator.
type OrchestratorDeps struct {
	Fetcher   ports.DocumentFetcher
	Notices   ports.NoticeRepository
	Persister *Persister
	Tagger    *keyword.Tagger
	Resolver  *fanout.Resolver
	Logger    *slog.Logger
}

// Orchestrator drives one source's paginated fetch loop: load-mode
// decision, pagination, termination, retry, then persistence, tagging
// and fanout for everything that turned out new or changed.
type Orchestrator struct {
	fetcher   ports.DocumentFetcher
	notices   ports.NoticeRepository
	persister *Persister
	tagger    *keyword.Tagger
	resolver  *fanout.Resolver
	logger    *slog.Logger
	sleep     func(time.Duration)
	now       func() time.Time
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		fetcher:   deps.Fetcher,
		notices:   deps.Notices,
		persister: deps.Persister,
		tagger:    deps.Tagger,
		resolver:  deps.Resolver,
		logger:    deps.Logger,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// RunOnce executes one full tick for a source. It is the core's sole
// externally callable scrape entry point.
func (o *Orchestrator) RunOnce(ctx context.Context, src Source) error {
	fullLoad, err := o.decideFullLoad(ctx, src.Type)
	if err != nil {
		return fmt.Errorf("decide load mode for %s: %w", src.Type, err)
	}
	o.logger.Debug("tick start", "type", src.Type, "fullLoad", fullLoad)

	var scraped []domain.Notice

	doc, err := o.fetchWithRetry(ctx, src.URL)
	if err != nil {
		return err
	}
	o.collectFixedRows(src, doc, &scraped)

	if err := o.walkPages(ctx, src, fullLoad, &scraped); err != nil {
		return err
	}

	if src.DetailDate {
		for i := range scraped {
			scraped[i].Date = o.fetchPostedDate(ctx, src, scraped[i].Link)
		}
	}

	saved := o.persister.Persist(ctx, scraped)
	o.logger.Debug("tick persisted", "type", src.Type, "scraped", len(scraped), "newOrUpdated", len(saved))

	for i := range saved {
		o.tagAndNotify(ctx, &saved[i])
	}

	return nil
}

// decideFullLoad: full when the sourceType has never been seen, or when
// nothing was created inside the staleness window.
func (o *Orchestrator) decideFullLoad(ctx context.Context, sourceType string) (bool, error) {
	exists, err := o.notices.ExistsBySourceType(ctx, sourceType)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	recent, err := o.notices.CountBySourceTypeCreatedAfter(ctx, sourceType, o.now().Add(-staleWindow))
	if err != nil {
		return false, err
	}
	return recent == 0, nil
}

func (o *Orchestrator) collectFixedRows(src Source, doc *goquery.Document, acc *[]domain.Notice) {
	src.Parser.FixedRows(doc).Each(func(_ int, row *goquery.Selection) {
		n, err := src.Parser.ParseRow(row, true, src.URL)
		if err != nil {
			o.logRowFailure(src.Type, row, err)
			return
		}
		n.SourceType = src.Type
		*acc = append(*acc, n)
	})
}

// walkPages loops over general pages at the parser's stride, evaluating
// the termination policy after every page.
func (o *Orchestrator) walkPages(ctx context.Context, src Source, fullLoad bool, acc *[]domain.Notice) error {
	expected := src.PageSize
	if expected == 0 {
		expected = src.Parser.Step()
		if expected == 1 {
			expected = 10
		}
	}

	pageIdx, pagesFetched := 0, 0
	emptyStreak, dupStreak := 0, 0

	for {
		pagedURL := src.Parser.PageURL(src.URL, pageIdx)
		doc, err := o.fetchWithRetry(ctx, pagedURL)
		if err != nil {
			return err
		}

		rows := src.Parser.GeneralRows(doc)
		total := rows.Length()
		novel, dups := o.collectGeneralRows(ctx, src, rows, acc)
		o.logger.Debug("page scraped", "type", src.Type, "pageIdx", pageIdx,
			"rows", total, "novel", novel, "duplicates", dups)

		pagesFetched++
		pageIdx += src.Parser.Step()

		if total == 0 {
			emptyStreak++
		} else {
			emptyStreak = 0
			if novel == 0 && dups > 0 {
				dupStreak++
			} else {
				dupStreak = 0
			}
		}

		switch {
		case pagesFetched >= pageSafetyCap:
			o.logger.Warn("page cap reached", "type", src.Type, "pages", pagesFetched)
			return nil
		case emptyStreak >= emptyPageLimit:
			o.logger.Debug("end of listing", "type", src.Type, "pageIdx", pageIdx)
			return nil
		case !fullLoad && pagesFetched >= incrementalPageCap:
			o.logger.Debug("incremental lookback bound reached", "type", src.Type)
			return nil
		case !fullLoad && dupStreak >= incrementalDupLimit:
			o.logger.Debug("nothing new to find", "type", src.Type)
			return nil
		case fullLoad && dupStreak >= fullLoadDupLimit:
			o.logger.Debug("full-load duplicate safety net hit", "type", src.Type)
			return nil
		case fullLoad && total > 0 && total < expected:
			o.logger.Debug("last page detected", "type", src.Type, "rows", total, "expected", expected)
			return nil
		}
	}
}

// collectGeneralRows decodes one page's rows in DOM order. Rows already
// stored by link count as duplicates and are not accumulated; decode
// failures are skipped and count as neither.
func (o *Orchestrator) collectGeneralRows(ctx context.Context, src Source, rows *goquery.Selection, acc *[]domain.Notice) (novel, dups int) {
	rows.Each(func(_ int, row *goquery.Selection) {
		n, err := src.Parser.ParseRow(row, false, src.URL)
		if err != nil {
			o.logRowFailure(src.Type, row, err)
			return
		}
		n.SourceType = src.Type

		exists, err := o.notices.ExistsByLink(ctx, n.Link)
		if err != nil {
			// persistence will dedup anyway; keep the row
			o.logger.Warn("duplicate check failed", "link", n.Link, "error", err)
			exists = false
		}
		if exists {
			dups++
			return
		}
		*acc = append(*acc, n)
		novel++
	})
	return novel, dups
}

// fetchPostedDate fetches a record's detail page once; any failure falls
// back to the placeholder rather than blocking persistence.
func (o *Orchestrator) fetchPostedDate(ctx context.Context, src Source, link string) string {
	doc, err := o.fetcher.Fetch(ctx, link)
	if err != nil {
		o.logger.Warn("posted-date lookup failed", "link", link, "error", err)
		return unknownDate
	}
	if d := src.Parser.DetailDate(doc); d != "" {
		return d
	}
	return unknownDate
}

// tagAndNotify runs tagging and fanout for one saved record, isolated so
// a failure never blocks the remaining records.
func (o *Orchestrator) tagAndNotify(ctx context.Context, n *domain.Notice) {
	tagged, err := o.tagger.Tag(ctx, n)
	if err != nil {
		o.logger.Error("tagging failed", "link", n.Link, "error", err)
		return
	}
	if err := o.resolver.Notify(ctx, n, tagged); err != nil {
		o.logger.Error("fanout failed", "link", n.Link, "error", err)
	}
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if attempt > 1 {
			o.sleep(backoffDelay(attempt - 1))
		}
		doc, err := o.fetcher.Fetch(ctx, url)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		o.logger.Warn("fetch failed", "url", url, "attempt", attempt, "error", err)
	}
	return nil, &FetchError{URL: url, Err: lastErr}
}

// backoffDelay grows exponentially from the base up to the cap, minus up
// to 40% jitter so parallel source runs do not synchronize their retries.
func backoffDelay(retry int) time.Duration {
	d := backoffBase << (retry - 1)
	if d > backoffCap {
		d = backoffCap
	}
	return d - time.Duration(rand.Float64()*backoffJitter*float64(d))
}

func (o *Orchestrator) logRowFailure(sourceType string, row *goquery.Selection, err error) {
	markup, _ := goquery.OuterHtml(row)
	o.logger.Warn("row decode failed", "type", sourceType, "error", err, "row", markup)
}
