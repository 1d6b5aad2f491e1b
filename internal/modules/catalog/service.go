package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"roomclean/internal/domain"
	"roomclean/internal/repository"
)

var ErrPackageNotFound = errors.New("package not found")

const (
	activePackagesKey = "roomclean:catalog:packages"
	defaultCacheTTL   = 5 * time.Minute
)

type PackageStore interface {
	Get(ctx context.Context, id int64) (*domain.CleaningPackage, error)
	ListActive(ctx context.Context) ([]*domain.CleaningPackage, error)
}

// Service serves the public package list. When a redis client is given the
// active list is cached; a cache failure falls back to the store.
type Service struct {
	store PackageStore
	cache redis.Cmdable
	ttl   time.Duration
	log   *zap.Logger
}

func NewService(store PackageStore, cache redis.Cmdable, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cache: cache, ttl: defaultCacheTTL, log: log}
}

func (s *Service) ListActive(ctx context.Context) ([]*domain.CleaningPackage, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, activePackagesKey).Bytes()
		switch {
		case err == nil:
			var cached []*domain.CleaningPackage
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		case !errors.Is(err, redis.Nil):
			s.log.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	pkgs, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(pkgs); err == nil {
			if err := s.cache.Set(ctx, activePackagesKey, raw, s.ttl).Err(); err != nil {
				s.log.Warn("catalog cache write failed", zap.Error(err))
			}
		}
	}
	return pkgs, nil
}

// Get returns an active package with its extras.
func (s *Service) Get(ctx context.Context, id int64) (*domain.CleaningPackage, error) {
	pkg, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, ErrPackageNotFound
	}
	return pkg, nil
}

// Invalidate drops the cached list after the catalog changes.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, activePackagesKey).Err()
}
