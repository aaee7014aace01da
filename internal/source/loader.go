package source

import (
	"context"
	"fmt"
	"image"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Cache holds decoded assets. A reference is either ready, failed, or
// not requested yet; failed references stay failed until reloaded.
type Cache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	failed map[string]error
}

func NewCache() *Cache {
	return &Cache{
		images: make(map[string]image.Image),
		failed: make(map[string]error),
	}
}

func (c *Cache) Get(ref string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[ref]
	return img, ok
}

// Err returns the decode failure recorded for ref, if any.
func (c *Cache) Err(ref string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failed[ref]
}

// Settled reports whether every ref has either decoded or failed.
func (c *Cache) Settled(refs []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range refs {
		_, ok := c.images[r]
		_, bad := c.failed[r]
		if !ok && !bad {
			return false
		}
	}
	return true
}

// Put stores an already decoded image, e.g. one produced in memory.
func (c *Cache) Put(ref string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[ref] = img
	delete(c.failed, ref)
}

func (c *Cache) fail(ref string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.images, ref)
	c.failed[ref] = err
}

// Report summarizes one Load call.
type Report struct {
	Loaded int
	Failed map[string]error
}

// Loaded is called once per decoded asset with its pixel size.
type Loaded func(ref string, width, height int)

// Loader decodes references concurrently into a Cache.
type Loader struct {
	Decoder *Decoder
	Cache   *Cache
	Workers int
}

func NewLoader(cache *Cache, workers int) *Loader {
	if workers <= 0 {
		workers = 1
	}
	return &Loader{Decoder: NewDecoder(), Cache: cache, Workers: workers}
}

// Load decodes every ref not yet in the cache. A failing asset is marked
// failed and reported; it never stops the others. Only ctx cancellation
// returns an error.
func (l *Loader) Load(ctx context.Context, refs []string, onLoaded Loaded) (Report, error) {
	rep := Report{Failed: make(map[string]error)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.Workers)

	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		if _, ok := l.Cache.Get(ref); ok {
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := l.Decoder.Decode(ref)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				err = fmt.Errorf("asset %s: %w", ref, err)
				l.Cache.fail(ref, err)
				rep.Failed[ref] = err
				return nil
			}
			l.Cache.Put(ref, img)
			rep.Loaded++
			if onLoaded != nil {
				b := img.Bounds()
				onLoaded(ref, b.Dx(), b.Dy())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return rep, err
	}
	return rep, nil
}
