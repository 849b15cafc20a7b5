// -----------------------------------------------------------------------
// Page Cache - Rasterized page images kept in the temp directory across runs
// -----------------------------------------------------------------------

package pagecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
)

// ErrStemCollision is returned when two distinct sources map to the same cache stem
var ErrStemCollision = errors.New("cache stem already claimed by another source")

// Cache maps (stem, dpi, page) to image files in one directory. Population of a stem
// is serialized; lookups after population need no coordination.
type Cache struct {
	dir        string
	dpi        int
	format     string
	ext        string
	rasterizer interfaces.Rasterizer
	logger     arbor.ILogger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	owners map[string]string

	invocations atomic.Int64
}

// NewCache creates a page cache over dir
func NewCache(dir string, dpi int, format string, rasterizer interfaces.Rasterizer, logger arbor.ILogger) *Cache {
	return &Cache{
		dir:        dir,
		dpi:        dpi,
		format:     format,
		ext:        models.RasterExt(format),
		rasterizer: rasterizer,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
		owners:     make(map[string]string),
	}
}

// Invocations returns how many times the rasterizer has been called
func (c *Cache) Invocations() int {
	return int(c.invocations.Load())
}

// Claim reserves the stem of sourcePath for this run. A second, different source
// with the same stem would read the first one's pages, so it is refused.
func (c *Cache) Claim(sourcePath string) error {
	stem := models.SourceStem(sourcePath)

	c.mu.Lock()
	defer c.mu.Unlock()

	if owner, ok := c.owners[stem]; ok && owner != sourcePath {
		return fmt.Errorf("%w: %q is used by %s", ErrStemCollision, stem, owner)
	}
	c.owners[stem] = sourcePath
	return nil
}

func (c *Cache) stemLock(stem string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[stem]
	if !ok {
		l = &sync.Mutex{}
		c.locks[stem] = l
	}
	return l
}

// Scan lists the cached pages of a stem at the cache's dpi and format
func (c *Cache) Scan(stem string) (map[int]string, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return map[int]string{}, nil
	}
	if err != nil {
		return nil, &common.IOError{Op: "scan page cache", Path: c.dir, Err: err}
	}

	pages := make(map[int]string)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		img, ok := models.ParsePageImageName(e.Name())
		if !ok || img.Stem != stem || img.DPI != c.dpi || img.Ext != c.ext {
			continue
		}
		if _, dup := pages[img.Page]; dup {
			continue
		}
		pages[img.Page] = filepath.Join(c.dir, e.Name())
	}
	return pages, nil
}

// Ensure makes every page of [first, last] of sourcePath available and returns the
// page to image path map for that range. Missing pages are rasterized with one
// rasterizer call per contiguous missing range.
func (c *Cache) Ensure(ctx context.Context, sourcePath string, first, last int) (map[int]string, error) {
	return c.EnsureRanges(ctx, sourcePath, []Range{{First: first, Last: last}})
}

// EnsureRanges is Ensure over several spans of one source. Overlapping and adjacent
// spans are merged first, so a missing page shared by two spans costs one request.
func (c *Cache) EnsureRanges(ctx context.Context, sourcePath string, ranges []Range) (map[int]string, error) {
	if len(ranges) == 0 {
		return map[int]string{}, nil
	}
	for _, r := range ranges {
		if r.First < 1 || r.First > r.Last {
			return nil, fmt.Errorf("invalid page range %d-%d", r.First, r.Last)
		}
	}
	if err := c.Claim(sourcePath); err != nil {
		return nil, err
	}

	stem := models.SourceStem(sourcePath)
	lock := c.stemLock(stem)
	lock.Lock()
	defer lock.Unlock()

	cached, err := c.Scan(stem)
	if err != nil {
		return nil, err
	}

	present := make(map[int]bool, len(cached))
	for p := range cached {
		present[p] = true
	}

	merged := Merge(ranges)
	var missing []Range
	reusable := 0
	for _, span := range merged {
		m, r := Reconcile(present, span.First, span.Last)
		missing = append(missing, m...)
		reusable += len(r)
	}

	c.logger.Debug().
		Str("source", sourcePath).
		Int("spans", len(merged)).
		Int("reusable", reusable).
		Int("missing_ranges", len(missing)).
		Msg("Page cache reconciled")

	if len(missing) > 0 {
		if err := os.MkdirAll(c.dir, 0755); err != nil {
			return nil, &common.IOError{Op: "create page cache", Path: c.dir, Err: err}
		}
	}

	for _, r := range missing {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.invocations.Add(1)
		_, err := c.rasterizer.Rasterize(ctx, interfaces.RasterRequest{
			SourcePath: sourcePath,
			DPI:        c.dpi,
			Format:     c.format,
			FirstPage:  r.First,
			LastPage:   r.Last,
			OutputDir:  c.dir,
		})
		if err != nil {
			return nil, fmt.Errorf("%s failed on %s pages %d-%d: %w", c.rasterizer.Name(), filepath.Base(sourcePath), r.First, r.Last, err)
		}
		c.logger.Info().
			Str("source", sourcePath).
			Str("engine", c.rasterizer.Name()).
			Int("first", r.First).
			Int("last", r.Last).
			Msg("Pages rasterized")
	}

	if len(missing) > 0 {
		if cached, err = c.Scan(stem); err != nil {
			return nil, err
		}
	}

	pages := make(map[int]string)
	var absent []int
	for _, span := range merged {
		for p := span.First; p <= span.Last; p++ {
			path, ok := cached[p]
			if !ok {
				absent = append(absent, p)
				continue
			}
			pages[p] = path
		}
	}
	if len(absent) > 0 {
		sort.Ints(absent)
		return nil, fmt.Errorf("pages %v of %s were not produced by %s", absent, filepath.Base(sourcePath), c.rasterizer.Name())
	}
	return pages, nil
}
