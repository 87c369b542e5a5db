package pagecache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultPrewarmConcurrency = 4

// Prewarm fills keys with at most concurrency fills in flight. Failures
// are logged and joined into the returned error; they do not stop the
// remaining keys. It returns the number of pages stored.
func (c *Cache) Prewarm(ctx context.Context, keys []string, ttl time.Duration, concurrency int, fillFor func(key string) FillFunc) (int, error) {
	if concurrency <= 0 {
		concurrency = DefaultPrewarmConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu   sync.Mutex
		ok   int
		errs []error
	)
	for _, key := range keys {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, _, err := c.Get(gctx, key, ttl, fillFor(key))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				c.logger.Warn(gctx, "prewarm failed", "key", key, "err", err)
				return nil
			}
			ok++
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return ok, errors.Join(errs...)
}
