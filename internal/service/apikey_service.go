package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/ratelimit"
	"github.com/snupai/shortlink/internal/repository"
	"github.com/snupai/shortlink/internal/utils"
)

const (
	// KeyPrefix marks secrets issued by this service
	KeyPrefix    = "snp_"
	keySecretLen = 32
	maxKeyName   = 64
)

// GatewayConfig configures the keyed creation path
type GatewayConfig struct {
	BaseURL     string
	BurstLimit  int
	BurstWindow time.Duration
}

// APICreateResult is returned to API callers after a successful creation
type APICreateResult struct {
	ID                 int64  `json:"id,string"`
	Slug               string `json:"slug"`
	URL                string `json:"url"`
	ShortURL           string `json:"shortUrl"`
	RateLimitRemaining int    `json:"rateLimitRemaining"`
	RateLimitLimit     int    `json:"-"`
}

// KeyInfo is the listable metadata of a key; the secret is never included
type KeyInfo struct {
	ID         int64      `json:"id,string"`
	Name       string     `json:"name"`
	Identifier string     `json:"identifier"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
}

// CreatedKey carries the secret exactly once
type CreatedKey struct {
	KeyInfo
	Secret string `json:"secret"`
}

// APIKeyService authenticates API keys, orchestrates keyed link creation
// and manages an owner's keys
type APIKeyService struct {
	keys     *repository.APIKeyRepository
	accounts *repository.AccountRepository
	records  *repository.RateLimitRepository
	burst    ratelimit.Limiter
	quota    *QuotaService
	links    *LinkService
	cfg      GatewayConfig
	log      zerolog.Logger
	clock    Clock
}

// NewAPIKeyService creates a new API key service instance
func NewAPIKeyService(
	keys *repository.APIKeyRepository,
	accounts *repository.AccountRepository,
	records *repository.RateLimitRepository,
	burst ratelimit.Limiter,
	quota *QuotaService,
	links *LinkService,
	cfg GatewayConfig,
	log zerolog.Logger,
) *APIKeyService {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &APIKeyService{
		keys:     keys,
		accounts: accounts,
		records:  records,
		burst:    burst,
		quota:    quota,
		links:    links,
		cfg:      cfg,
		log:      log,
	}
}

// SetClock replaces the time source
func (s *APIKeyService) SetClock(c Clock) { s.clock = c }

// HashKey returns the stored digest of a raw secret
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves an active key. Malformed, unknown and inactive keys
// all fail with ErrInvalidAPIKey.
func (s *APIKeyService) Authenticate(ctx context.Context, raw string) (*model.APIKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidAPIKey
	}
	key, err := s.keys.GetByHash(ctx, HashKey(raw))
	if err != nil {
		return nil, err
	}
	if key == nil || !key.IsActive {
		return nil, ErrInvalidAPIKey
	}
	return key, nil
}

// CreateViaAPI runs the keyed creation path: authenticate, suspension,
// burst limit, quota, then the link itself
func (s *APIKeyService) CreateViaAPI(ctx context.Context, raw string, in CreateLinkInput) (*APICreateResult, error) {
	key, err := s.Authenticate(ctx, raw)
	if err != nil {
		return nil, err
	}

	owner, err := s.accounts.GetByID(ctx, key.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrInvalidAPIKey
	}
	if owner.Banned {
		return nil, ErrAccountSuspended
	}

	remaining, err := s.checkBurst(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := s.quota.Check(ctx, owner); err != nil {
		return nil, err
	}

	link, err := s.links.Create(ctx, owner.ID, in)
	if err != nil {
		return nil, err
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID, s.clock.now()); err != nil {
		s.log.Warn().Err(err).Int64("key_id", key.ID).Msg("failed to update key last used")
	}

	return &APICreateResult{
		ID:                 link.ID,
		Slug:               link.Slug,
		URL:                link.URL,
		ShortURL:           s.cfg.BaseURL + "/" + link.Slug,
		RateLimitRemaining: remaining,
		RateLimitLimit:     s.cfg.BurstLimit,
	}, nil
}

// checkBurst returns the remaining burst capacity. Limiter failures are
// logged and the request is let through.
func (s *APIKeyService) checkBurst(ctx context.Context, key *model.APIKey) (int, error) {
	d, err := s.burst.CheckAndRecord(ctx, burstSubject(key.ID))
	if err != nil {
		s.log.Warn().Err(err).Int64("key_id", key.ID).Msg("rate limiter unavailable, failing open")
		return s.cfg.BurstLimit - 1, nil
	}
	if !d.Allowed {
		return 0, &LimitError{
			Kind:    ErrRateLimitExceeded,
			Limit:   d.Limit,
			Window:  s.cfg.BurstWindow,
			ResetAt: d.ResetAt,
		}
	}
	return d.Remaining, nil
}

func burstSubject(keyID int64) string {
	return strconv.FormatInt(keyID, 10)
}

// CreateKey issues a new key for ownerID and returns its secret once
func (s *APIKeyService) CreateKey(ctx context.Context, ownerID int64, name string) (*CreatedKey, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > maxKeyName {
		return nil, ErrInvalidKeyName
	}

	random, err := utils.RandomString(utils.Base62Alphabet, keySecretLen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	secret := KeyPrefix + random

	key := &model.APIKey{
		OwnerID:   ownerID,
		KeyHash:   HashKey(secret),
		Name:      name,
		IsActive:  true,
		CreatedAt: s.clock.now(),
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, err
	}

	s.log.Info().Int64("account_id", ownerID).Int64("key_id", key.ID).Msg("api key created")
	return &CreatedKey{KeyInfo: keyInfo(key), Secret: secret}, nil
}

// ListKeys returns the metadata of ownerID's keys
func (s *APIKeyService) ListKeys(ctx context.Context, ownerID int64) ([]KeyInfo, error) {
	keys, err := s.keys.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	infos := make([]KeyInfo, 0, len(keys))
	for i := range keys {
		infos = append(infos, keyInfo(&keys[i]))
	}
	return infos, nil
}

// SetActive toggles a key owned by ownerID
func (s *APIKeyService) SetActive(ctx context.Context, ownerID, keyID int64, active bool) error {
	if _, err := s.owned(ctx, ownerID, keyID); err != nil {
		return err
	}
	return s.keys.SetActive(ctx, keyID, active)
}

// DeleteKey removes a key owned by ownerID and its burst window
func (s *APIKeyService) DeleteKey(ctx context.Context, ownerID, keyID int64) error {
	if _, err := s.owned(ctx, ownerID, keyID); err != nil {
		return err
	}
	if err := s.records.DeleteSubjects(ctx, []string{burstSubject(keyID)}); err != nil {
		return err
	}
	return s.keys.Delete(ctx, keyID)
}

// DeleteAllForOwner removes every key of ownerID with its rate-limit records
func (s *APIKeyService) DeleteAllForOwner(ctx context.Context, ownerID int64) error {
	ids, err := s.keys.ListIDsByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	subjects := make([]string, 0, len(ids))
	for _, id := range ids {
		subjects = append(subjects, burstSubject(id))
	}
	if err := s.records.DeleteSubjects(ctx, subjects); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.keys.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *APIKeyService) owned(ctx context.Context, ownerID, keyID int64) (*model.APIKey, error) {
	key, err := s.keys.GetByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key == nil || key.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return key, nil
}

func keyInfo(k *model.APIKey) KeyInfo {
	return KeyInfo{
		ID:         k.ID,
		Name:       k.Name,
		Identifier: k.Identifier(),
		IsActive:   k.IsActive,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
	}
}
