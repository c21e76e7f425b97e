package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/studypace/studypace/internal/profile"
	"github.com/studypace/studypace/store/cache"
)

// ErrConcurrentUpdate is returned by UpdateCard when the row's version no
// longer matches the version the caller read. The caller re-reads and
// retries; two racing ratings must both land, in some order.
var ErrConcurrentUpdate = errors.New("store: concurrent card update")

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Caches
	courseCache   *cache.Cache // cache for courses by uid
	questionCache *cache.Cache // cache for questions by id
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	// Default cache settings
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
		OnEviction:      nil,
	}

	store := &Store{
		driver:        driver,
		profile:       profile,
		cacheConfig:   cacheConfig,
		courseCache:   cache.New(cacheConfig),
		questionCache: cache.New(cacheConfig),
	}

	return store
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	// Stop all cache cleanup goroutines
	s.courseCache.Close()
	s.questionCache.Close()

	return s.driver.Close()
}

// Ping verifies the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.GetDB().PingContext(ctx)
}

func questionCacheKey(id int32) string {
	return fmt.Sprintf("question/%d", id)
}
