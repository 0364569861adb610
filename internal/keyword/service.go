package keyword

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/ports"
)

// Service owns keyword CRUD, the GLOBAL seed, and per-(user, sourceType)
// subscription management. All validation rules surface as ConflictError
// values; the boundary layer translates them.
type Service struct {
	keywords ports.KeywordRepository
	links    ports.KeywordLinkRepository
	prefs    ports.PreferenceRepository
	cache    *GlobalCache
	logger   *slog.Logger
}

func NewService(keywords ports.KeywordRepository, links ports.KeywordLinkRepository,
	prefs ports.PreferenceRepository, cache *GlobalCache, logger *slog.Logger) *Service {
	return &Service{keywords: keywords, links: links, prefs: prefs, cache: cache, logger: logger}
}

// SeedGlobals inserts configured GLOBAL phrases that are not stored yet.
func (s *Service) SeedGlobals(ctx context.Context, phrases []string) error {
	seeded := 0
	seen := map[string]struct{}{}
	for _, raw := range phrases {
		phrase := strings.TrimSpace(raw)
		if phrase == "" {
			continue
		}
		if _, dup := seen[Normalize(phrase)]; dup {
			continue
		}
		seen[Normalize(phrase)] = struct{}{}

		exists, err := s.keywords.ExistsByScopeAndPhrase(ctx, domain.ScopeGlobal, phrase)
		if err != nil {
			return fmt.Errorf("check global %q: %w", phrase, err)
		}
		if exists {
			continue
		}
		if err := s.keywords.Insert(ctx, &domain.Keyword{Phrase: phrase, Scope: domain.ScopeGlobal}); err != nil {
			return fmt.Errorf("seed global %q: %w", phrase, err)
		}
		seeded++
	}
	if seeded > 0 {
		s.cache.Invalidate()
		s.logger.Info("seeded global keywords", "count", seeded)
	}
	return nil
}

// CreatePersonal adds a PERSONAL keyword for the owner. The normalized
// phrase must not collide with any GLOBAL phrase nor with another
// keyword of the same owner.
func (s *Service) CreatePersonal(ctx context.Context, ownerID int64, phrase string) (*domain.Keyword, error) {
	trimmed := strings.TrimSpace(phrase)
	normed := Normalize(phrase)
	if normed == "" {
		return nil, fmt.Errorf("empty keyword phrase")
	}

	globals, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range globals {
		if g.Norm == normed {
			return nil, conflict(ReasonConflictsWithGlobal, "phrase conflicts with a global keyword")
		}
	}

	owned, err := s.keywords.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned keywords: %w", err)
	}
	for _, k := range owned {
		if Normalize(k.Phrase) == normed {
			return nil, conflict(ReasonDuplicatePersonal, "phrase already exists for this user")
		}
	}

	k := &domain.Keyword{Phrase: trimmed, Scope: domain.ScopePersonal, OwnerID: ownerID}
	if err := s.keywords.Insert(ctx, k); err != nil {
		return nil, fmt.Errorf("insert keyword: %w", err)
	}
	return k, nil
}

// DeletePersonal removes an owner's PERSONAL keyword unless a
// subscription link still references it. GLOBAL keywords are never
// deletable through this path.
func (s *Service) DeletePersonal(ctx context.Context, ownerID, keywordID int64) error {
	k, err := s.keywords.FindByID(ctx, keywordID)
	if err != nil {
		return fmt.Errorf("find keyword: %w", err)
	}
	if k == nil {
		return fmt.Errorf("keyword %d not found", keywordID)
	}
	if k.Scope == domain.ScopeGlobal {
		return conflict(ReasonGlobalImmutable, "global keywords cannot be deleted")
	}
	if k.OwnerID != ownerID {
		return conflict(ReasonNotOwner, "keyword belongs to another user")
	}

	inUse, err := s.links.ExistsByKeyword(ctx, keywordID)
	if err != nil {
		return fmt.Errorf("check links: %w", err)
	}
	if inUse {
		return conflict(ReasonKeywordInUse, "keyword is referenced by a subscription")
	}

	return s.keywords.Delete(ctx, keywordID)
}

// ListForUser returns the GLOBAL list plus the user's own keywords.
func (s *Service) ListForUser(ctx context.Context, ownerID int64) ([]domain.Keyword, error) {
	globals, err := s.keywords.FindByScope(ctx, domain.ScopeGlobal)
	if err != nil {
		return nil, fmt.Errorf("list globals: %w", err)
	}
	owned, err := s.keywords.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned: %w", err)
	}
	return append(globals, owned...), nil
}

// Mode reports the user's subscription mode for a sourceType.
func (s *Service) Mode(ctx context.Context, userID int64, sourceType string) (domain.Mode, error) {
	return s.prefs.Mode(ctx, userID, sourceType)
}

// SetMode stores the user's subscription mode for a sourceType.
func (s *Service) SetMode(ctx context.Context, userID int64, sourceType string, mode domain.Mode) error {
	switch mode {
	case domain.ModeAll, domain.ModeKeyword, domain.ModeNone:
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return s.prefs.SetMode(ctx, userID, sourceType, mode)
}

// AddLink subscribes the user to a keyword under a sourceType. PERSONAL
// keywords can only be linked by their owner. Re-adding an existing link
// is a no-op.
func (s *Service) AddLink(ctx context.Context, userID int64, sourceType string, keywordID int64) error {
	k, err := s.keywords.FindByID(ctx, keywordID)
	if err != nil {
		return fmt.Errorf("find keyword: %w", err)
	}
	if k == nil {
		return fmt.Errorf("keyword %d not found", keywordID)
	}
	if k.Scope == domain.ScopePersonal && k.OwnerID != userID {
		return conflict(ReasonNotOwner, "personal keywords can only be linked by their owner")
	}
	return s.links.Add(ctx, &domain.SubscriptionKeywordLink{
		UserID:     userID,
		SourceType: sourceType,
		KeywordID:  keywordID,
	})
}

// RemoveLink drops a keyword subscription.
func (s *Service) RemoveLink(ctx context.Context, userID int64, sourceType string, keywordID int64) error {
	return s.links.Remove(ctx, userID, sourceType, keywordID)
}

// Links lists the user's keyword subscriptions for a sourceType.
func (s *Service) Links(ctx context.Context, userID int64, sourceType string) ([]domain.SubscriptionKeywordLink, error) {
	return s.links.FindByUserAndType(ctx, userID, sourceType)
}
