package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/fanout"
	"NoticeHub/internal/keyword"
	"NoticeHub/internal/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher serves canned pages by URL. A handler takes priority when
// set; URLs with neither a page nor a handler read as empty listings.
type fakeFetcher struct {
	pages   map[string]string
	handler func(url string) (string, error)
	fails   map[string]int
	calls   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, fails: map[string]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	f.calls = append(f.calls, url)
	if f.fails[url] > 0 {
		f.fails[url]--
		return nil, errors.New("connection reset")
	}

	html := `<table><tbody></tbody></table>`
	if f.handler != nil {
		h, err := f.handler(url)
		if err != nil {
			return nil, err
		}
		html = h
	} else if page, ok := f.pages[url]; ok {
		html = page
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

var _ ports.DocumentFetcher = (*fakeFetcher)(nil)

type memNotices struct {
	byLink  map[string]domain.Notice
	tags    map[uuid.UUID][]int64
	inserts int
	updates int
	// hideNextLookup simulates losing an insert race: FindByLink misses
	// once while the row is already stored.
	hideNextLookup bool
}

func newMemNotices() *memNotices {
	return &memNotices{byLink: map[string]domain.Notice{}, tags: map[uuid.UUID][]int64{}}
}

func (r *memNotices) seed(n domain.Notice) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.byLink[n.Link] = n
}

func (r *memNotices) FindByLink(_ context.Context, link string) (*domain.Notice, error) {
	if r.hideNextLookup {
		r.hideNextLookup = false
		return nil, nil
	}
	if n, ok := r.byLink[link]; ok {
		return &n, nil
	}
	return nil, nil
}

func (r *memNotices) Insert(_ context.Context, n *domain.Notice) error {
	if _, ok := r.byLink[n.Link]; ok {
		return ports.ErrDuplicateLink
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.byLink[n.Link] = *n
	r.inserts++
	return nil
}

func (r *memNotices) Update(_ context.Context, n *domain.Notice) error {
	if _, ok := r.byLink[n.Link]; !ok {
		return fmt.Errorf("update of unknown link %s", n.Link)
	}
	r.byLink[n.Link] = *n
	r.updates++
	return nil
}

func (r *memNotices) ExistsByLink(_ context.Context, link string) (bool, error) {
	_, ok := r.byLink[link]
	return ok, nil
}

func (r *memNotices) ExistsBySourceType(_ context.Context, sourceType string) (bool, error) {
	for _, n := range r.byLink {
		if n.SourceType == sourceType {
			return true, nil
		}
	}
	return false, nil
}

func (r *memNotices) CountBySourceTypeCreatedAfter(_ context.Context, sourceType string, after time.Time) (int, error) {
	count := 0
	for _, n := range r.byLink {
		if n.SourceType == sourceType && n.CreatedAt.After(after) {
			count++
		}
	}
	return count, nil
}

func (r *memNotices) ReplaceKeywords(_ context.Context, noticeID uuid.UUID, keywordIDs []int64) error {
	r.tags[noticeID] = append([]int64(nil), keywordIDs...)
	return nil
}

func (r *memNotices) All(_ context.Context) ([]domain.Notice, error) {
	var out []domain.Notice
	for _, n := range r.byLink {
		out = append(out, n)
	}
	return out, nil
}

var _ ports.NoticeRepository = (*memNotices)(nil)

type memKeywords struct {
	nextID   int64
	keywords map[int64]domain.Keyword
}

func newMemKeywords() *memKeywords {
	return &memKeywords{nextID: 1, keywords: map[int64]domain.Keyword{}}
}

func (r *memKeywords) addGlobal(phrase string) int64 {
	id := r.nextID
	r.nextID++
	r.keywords[id] = domain.Keyword{ID: id, Phrase: phrase, Scope: domain.ScopeGlobal}
	return id
}

func (r *memKeywords) FindByID(_ context.Context, id int64) (*domain.Keyword, error) {
	if k, ok := r.keywords[id]; ok {
		return &k, nil
	}
	return nil, nil
}

func (r *memKeywords) FindByScope(_ context.Context, scope domain.Scope) ([]domain.Keyword, error) {
	var out []domain.Keyword
	for _, k := range r.keywords {
		if k.Scope == scope {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *memKeywords) FindByOwner(context.Context, int64) ([]domain.Keyword, error) {
	return nil, nil
}

func (r *memKeywords) ExistsByScopeAndPhrase(context.Context, domain.Scope, string) (bool, error) {
	return false, nil
}

func (r *memKeywords) Insert(_ context.Context, k *domain.Keyword) error {
	k.ID = r.nextID
	r.nextID++
	r.keywords[k.ID] = *k
	return nil
}

func (r *memKeywords) Delete(_ context.Context, id int64) error {
	delete(r.keywords, id)
	return nil
}

var _ ports.KeywordRepository = (*memKeywords)(nil)

type memPrefs struct {
	byMode map[domain.Mode][]int64
}

func (r *memPrefs) Mode(context.Context, int64, string) (domain.Mode, error) {
	return domain.ModeNone, nil
}

func (r *memPrefs) SetMode(context.Context, int64, string, domain.Mode) error { return nil }

func (r *memPrefs) UserIDsByTypeAndMode(_ context.Context, _ string, mode domain.Mode) ([]int64, error) {
	if r.byMode == nil {
		return nil, nil
	}
	return r.byMode[mode], nil
}

var _ ports.PreferenceRepository = (*memPrefs)(nil)

type memLinks struct {
	globalSubs map[int64][]int64
	personal   map[int64][]domain.Keyword
}

func (r *memLinks) Add(context.Context, *domain.SubscriptionKeywordLink) error { return nil }

func (r *memLinks) Remove(context.Context, int64, string, int64) error { return nil }

func (r *memLinks) FindByUserAndType(context.Context, int64, string) ([]domain.SubscriptionKeywordLink, error) {
	return nil, nil
}

func (r *memLinks) LinkedKeywords(_ context.Context, userID int64, _ string) ([]domain.Keyword, error) {
	return r.personal[userID], nil
}

func (r *memLinks) UserIDsByTypeAndKeywordIDs(_ context.Context, _ string, keywordIDs []int64) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	for _, kid := range keywordIDs {
		for _, uid := range r.globalSubs[kid] {
			if !seen[uid] {
				seen[uid] = true
				out = append(out, uid)
			}
		}
	}
	return out, nil
}

func (r *memLinks) ExistsByKeyword(context.Context, int64) (bool, error) { return false, nil }

var _ ports.KeywordLinkRepository = (*memLinks)(nil)

type sentPush struct {
	Channel string
	Payload domain.PushPayload
}

type recordingGateway struct {
	sent []sentPush
}

func (g *recordingGateway) SendToChannel(_ context.Context, channelID string, payload domain.PushPayload) error {
	g.sent = append(g.sent, sentPush{Channel: channelID, Payload: payload})
	return nil
}

var _ ports.NotificationGateway = (*recordingGateway)(nil)

// harness assembles an orchestrator over purely in-memory collaborators.
type harness struct {
	fetcher      *fakeFetcher
	notices      *memNotices
	keywords     *memKeywords
	prefs        *memPrefs
	links        *memLinks
	gateway      *recordingGateway
	orchestrator *Orchestrator
	slept        []time.Duration
}

func newHarness() *harness {
	h := &harness{
		fetcher:  newFakeFetcher(),
		notices:  newMemNotices(),
		keywords: newMemKeywords(),
		prefs:    &memPrefs{},
		links:    &memLinks{},
		gateway:  &recordingGateway{},
	}

	cache := keyword.NewGlobalCache(h.keywords)
	tagger := keyword.NewTagger(h.notices, cache, testLogger())
	resolver := fanout.NewResolver(h.prefs, h.links, h.gateway, testLogger())
	persister := NewPersister(h.notices, testLogger())

	h.orchestrator = NewOrchestrator(OrchestratorDeps{
		Fetcher:   h.fetcher,
		Notices:   h.notices,
		Persister: persister,
		Tagger:    tagger,
		Resolver:  resolver,
		Logger:    testLogger(),
	})
	h.orchestrator.sleep = func(d time.Duration) { h.slept = append(h.slept, d) }
	return h
}
