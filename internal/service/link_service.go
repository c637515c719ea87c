package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/cache"
	"github.com/snupai/shortlink/internal/filter"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/repository"
	"github.com/snupai/shortlink/internal/utils"
)

const (
	minSlugLen = 2
	maxSlugLen = 64

	minAutoSlugLen    = 3
	maxAutoSlugLen    = 8
	attemptsPerLength = 12
	// insert retries when an allocated slug loses the race to another writer
	maxAutoInsertAttempts = 3

	minExpiry = time.Minute
	maxExpiry = 5 * 365 * 24 * time.Hour

	maxClickLimit = 1_000_000

	// matches the width of the url column
	maxURLLen = 2048
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CreateLinkInput carries the caller supplied fields of a new link.
// An empty Slug asks for an auto-generated one.
type CreateLinkInput struct {
	URL       string
	Slug      string
	ExpiresAt *time.Time
	MaxClicks *float64
}

// PublicLink is the unauthenticated view of a link; it never carries the owner
type PublicLink struct {
	Slug      string     `json:"slug"`
	URL       string     `json:"url"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
	MaxClicks *int64     `json:"maxClicks"`
}

// LinkService owns link documents: slug allocation, validation and lookup
type LinkService struct {
	links  *repository.LinkRepository
	clicks *repository.ClickRepository
	cache  *cache.RedisCache
	bloom  *filter.BloomFilter
	log    zerolog.Logger
	clock  Clock
}

// NewLinkService creates a new link service instance. cache and bloom may be nil.
func NewLinkService(links *repository.LinkRepository, clicks *repository.ClickRepository,
	cache *cache.RedisCache, bloom *filter.BloomFilter, log zerolog.Logger) *LinkService {
	return &LinkService{
		links:  links,
		clicks: clicks,
		cache:  cache,
		bloom:  bloom,
		log:    log,
	}
}

// SetClock replaces the time source
func (s *LinkService) SetClock(c Clock) { s.clock = c }

// Create validates input and stores a new link for ownerID
func (s *LinkService) Create(ctx context.Context, ownerID int64, in CreateLinkInput) (*model.Link, error) {
	now := s.clock.now()

	target, err := NormalizeURL(in.URL)
	if err != nil {
		return nil, err
	}
	expiresAt, err := validateExpiry(in.ExpiresAt, now)
	if err != nil {
		return nil, err
	}
	maxClicks, err := validateClickLimit(in.MaxClicks)
	if err != nil {
		return nil, err
	}

	link := &model.Link{
		URL:       target,
		OwnerID:   ownerID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		MaxClicks: maxClicks,
	}

	if slug := strings.TrimSpace(in.Slug); slug != "" {
		err = s.createWithSlug(ctx, link, slug)
	} else {
		err = s.createWithGeneratedSlug(ctx, link)
	}
	if err != nil {
		return nil, err
	}

	if s.bloom != nil {
		s.bloom.Add(link.Slug)
	}
	return link, nil
}

func (s *LinkService) createWithSlug(ctx context.Context, link *model.Link, slug string) error {
	if len(slug) < minSlugLen || len(slug) > maxSlugLen || !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}

	exists, err := s.links.SlugExists(ctx, slug)
	if err != nil {
		return err
	}
	if exists {
		return ErrSlugTaken
	}

	// the unique index settles races the existence check cannot see
	link.Slug = slug
	if err := s.links.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

func (s *LinkService) createWithGeneratedSlug(ctx context.Context, link *model.Link) error {
	for attempt := 0; attempt < maxAutoInsertAttempts; attempt++ {
		slug, err := allocateSlug(ctx, s.slugTaken)
		if err != nil {
			return err
		}

		link.ID = 0
		link.Slug = slug
		err = s.links.Create(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		s.log.Debug().Str("slug", slug).Msg("generated slug lost insert race, retrying")
	}
	return ErrSlugGenerationExhausted
}

// slugTaken treats a bloom hit as taken and otherwise asks the store
func (s *LinkService) slugTaken(ctx context.Context, slug string) (bool, error) {
	if s.bloom != nil && s.bloom.Test(slug) {
		return true, nil
	}
	return s.links.SlugExists(ctx, slug)
}

// allocateSlug draws candidates of increasing length until taken reports
// one free. Each length gets a fixed number of draws before escalating.
func allocateSlug(ctx context.Context, taken func(context.Context, string) (bool, error)) (string, error) {
	for length := minAutoSlugLen; length <= maxAutoSlugLen; length++ {
		for i := 0; i < attemptsPerLength; i++ {
			candidate, err := utils.RandomString(utils.SlugAlphabet, length)
			if err != nil {
				return "", fmt.Errorf("failed to generate slug: %w", err)
			}
			busy, err := taken(ctx, candidate)
			if err != nil {
				return "", err
			}
			if !busy {
				return candidate, nil
			}
		}
	}
	return "", ErrSlugGenerationExhausted
}

// GetBySlug resolves a slug for the redirect path; nil when unknown.
// Links without a click cap are served from the cache when possible, capped
// links always come from the store so the live counter is seen.
func (s *LinkService) GetBySlug(ctx context.Context, slug string) (*model.Link, error) {
	if s.cache != nil {
		cached, err := s.cache.GetLink(ctx, slug)
		if err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("link cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	link, err := s.links.GetBySlug(ctx, slug)
	if err != nil || link == nil {
		return nil, err
	}

	if s.cache != nil && link.MaxClicks == nil {
		if err := s.cache.SetLink(ctx, link); err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("link cache write failed")
		}
	}
	return link, nil
}

// LookupPublic returns the owner-free view of a link
func (s *LinkService) LookupPublic(ctx context.Context, slug string) (*PublicLink, error) {
	link, err := s.links.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return &PublicLink{
		Slug:      link.Slug,
		URL:       link.URL,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
		MaxClicks: link.MaxClicks,
	}, nil
}

// ListForOwner returns every link of ownerID, newest first
func (s *LinkService) ListForOwner(ctx context.Context, ownerID int64) ([]model.Link, error) {
	return s.links.ListByOwner(ctx, ownerID)
}

// GetOwned returns a link only when ownerID owns it
func (s *LinkService) GetOwned(ctx context.Context, ownerID, linkID int64) (*model.Link, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil || link.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return link, nil
}

// Delete removes a link owned by ownerID together with its click events
func (s *LinkService) Delete(ctx context.Context, ownerID, linkID int64) error {
	link, err := s.GetOwned(ctx, ownerID, linkID)
	if err != nil {
		return err
	}
	return s.remove(ctx, link)
}

// DeleteAsAdmin removes any link together with its click events
func (s *LinkService) DeleteAsAdmin(ctx context.Context, linkID int64) error {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if link == nil {
		return ErrNotFound
	}
	return s.remove(ctx, link)
}

// DeleteAllForOwner removes every link of ownerID and returns how many went
func (s *LinkService) DeleteAllForOwner(ctx context.Context, ownerID int64) (int, error) {
	links, err := s.links.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	for i := range links {
		if err := s.remove(ctx, &links[i]); err != nil {
			return i, err
		}
	}
	return len(links), nil
}

// remove deletes events before the link so a failed cascade can be re-run
func (s *LinkService) remove(ctx context.Context, link *model.Link) error {
	if _, err := s.clicks.DeleteByLink(ctx, link.ID); err != nil {
		return err
	}
	if _, err := s.links.Delete(ctx, link.ID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, link.Slug); err != nil {
			s.log.Warn().Err(err).Str("slug", link.Slug).Msg("link cache invalidation failed")
		}
	}
	return nil
}

// InitBloomFilter loads every allocated slug into the bloom filter
func (s *LinkService) InitBloomFilter(ctx context.Context) error {
	if s.bloom == nil {
		return nil
	}
	slugs, err := s.links.GetAllSlugs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get all slugs: %w", err)
	}

	s.bloom.AddBatch(slugs)
	s.log.Info().Int("slugs", len(slugs)).Uint32("estimated", s.bloom.Count()).Msg("bloom filter initialized")
	return nil
}

// NormalizeURL accepts absolute http(s) URLs and returns their canonical form
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" || parsed.Hostname() == "" {
		return "", ErrInvalidURL
	}
	parsed.Scheme = scheme
	normalized := parsed.String()
	if len(normalized) > maxURLLen {
		return "", ErrInvalidURL
	}
	return normalized, nil
}

func validateExpiry(expiresAt *time.Time, now time.Time) (*time.Time, error) {
	if expiresAt == nil {
		return nil, nil
	}
	at := expiresAt.UTC().Truncate(time.Millisecond)
	if at.Before(now.Add(minExpiry)) || at.After(now.Add(maxExpiry)) {
		return nil, ErrInvalidExpiry
	}
	return &at, nil
}

func validateClickLimit(maxClicks *float64) (*int64, error) {
	if maxClicks == nil {
		return nil, nil
	}
	v := *maxClicks
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < 1 || v > maxClickLimit {
		return nil, ErrInvalidClickLimit
	}
	n := int64(v)
	return &n, nil
}
