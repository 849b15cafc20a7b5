// -----------------------------------------------------------------------
// Preprocess Service - Turn the index and its sources into article files
// -----------------------------------------------------------------------

package preprocess

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
	"github.com/ternarybob/quire/internal/services/article"
	"github.com/ternarybob/quire/internal/services/index"
	"github.com/ternarybob/quire/internal/services/ocr"
	"github.com/ternarybob/quire/internal/services/pagecache"
	"github.com/ternarybob/quire/internal/services/progress"
	"github.com/ternarybob/quire/internal/services/workers"
)

// Dependencies are the pluggable capabilities a run drives
type Dependencies struct {
	Rasterizer  interfaces.Rasterizer
	PageCounter interfaces.PageCounter
	Recognizers interfaces.RecognizerFactory
	Extractor   interfaces.TextExtractor
	Runs        interfaces.RunStorage // optional
}

// Service runs the preprocessing pipeline. It is safe to call Run repeatedly; only
// one run executes at a time.
type Service struct {
	config *common.Config
	deps   Dependencies
	index  *index.Service
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewService creates a preprocessing service
func NewService(config *common.Config, deps Dependencies, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		deps:   deps,
		index:  index.NewService(logger),
		logger: logger,
	}
}

// ruleTask is one entry of a group with its effective page range
type ruleTask struct {
	slot  int
	entry models.RuleEntry
	first int
	last  int
	err   error // set when the rule cannot be processed at all
}

// groupTask is one unit of pool work: every rule of one source file
type groupTask struct {
	group models.FileGroup
	rules []ruleTask
}

// Run preprocesses every index rule. Run-level failures (missing resource directory,
// unreadable index) are returned as errors; rule failures are reported in the record.
func (s *Service) Run(ctx context.Context, observer interfaces.ProgressObserver) (*models.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if observer == nil {
		observer = progress.Nop{}
	}

	run := &models.RunRecord{
		ID:        common.NewRunID(),
		StartedAt: time.Now(),
		IndexPath: s.config.IndexPath(),
	}
	logger := s.logger.WithCorrelationId(run.ID)

	resourceDir := s.config.ResourcePath()
	if info, err := os.Stat(resourceDir); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return nil, &common.IOError{Op: "open resource directory", Path: resourceDir, Missing: true, Err: err}
	}
	for _, dir := range []string{s.config.DataPath(), s.config.TempPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &common.IOError{Op: "create directory", Path: dir, Err: err}
		}
	}

	fallback, err := s.index.LoadFallback(s.config.FallbackPath())
	if err != nil {
		return nil, err
	}
	rules, rowErrs, err := s.index.LoadRules(s.config.IndexPath())
	if err != nil {
		return nil, err
	}
	for _, e := range rowErrs {
		run.RowErrors = append(run.RowErrors, e.Error())
		observer.OnLog(ctx, models.LogEvent{Level: models.LevelError, Message: e.Error()})
	}

	groups := index.Group(rules, fallback, resourceDir)
	cache := pagecache.NewCache(s.config.TempPath(), s.config.Raster.DPI, s.config.Raster.Format, s.deps.Rasterizer, logger)
	results := make([]models.RuleResult, len(rules))
	tasks, total := s.plan(ctx, groups, cache, results)

	logger.Info().
		Str("run_id", run.ID).
		Int("rules", len(rules)).
		Int("files", len(groups)).
		Int("ticks", total).
		Int("workers", s.config.WorkerCount()).
		Msg("Preprocessing started")

	writer := article.NewWriter(s.config.DataPath(), observer, logger)
	counter := progress.NewCounter(total, observer)

	pool := workers.NewPool(ctx, s.config.WorkerCount(), logger)
	pool.Start()
	for _, task := range tasks {
		task := task
		err := pool.Submit(filepath.Base(task.group.SourcePath), func(ctx context.Context) error {
			return s.processGroup(ctx, task, cache, writer, counter, observer, results, logger)
		})
		if err != nil {
			break
		}
	}
	pool.Wait()

	for i := range results {
		if results[i].Status == "" {
			results[i].Status = models.RuleStatusSkipped
			if ctx.Err() != nil {
				results[i].Error = ctx.Err().Error()
			}
		}
	}

	run.Results = results
	run.Rasterized = cache.Invocations()
	run.MeanOCRConf = meanConfidence(results)
	run.FinishedAt = time.Now()

	logger.Info().
		Str("run_id", run.ID).
		Int("failed", run.Failed()).
		Int("rasterized", run.Rasterized).
		Float64("mean_confidence", run.MeanOCRConf).
		Str("duration", run.FinishedAt.Sub(run.StartedAt).String()).
		Msg("Preprocessing finished")
	observer.OnLog(ctx, models.LogEvent{
		Level:   models.LevelInfo,
		Message: fmt.Sprintf("mean confidence %.2f over %d rules, %d failed", run.MeanOCRConf, len(results), run.Failed()),
	})

	if s.deps.Runs != nil {
		if err := s.deps.Runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record run")
		}
	}

	return run, ctx.Err()
}

// plan resolves the effective page range of every rule and the tick total. Cache stems
// are claimed in index order, so of two sources sharing a stem the later one fails.
func (s *Service) plan(ctx context.Context, groups []models.FileGroup, cache *pagecache.Cache, results []models.RuleResult) ([]groupTask, int) {
	var tasks []groupTask
	total := 0
	slot := 0

	for _, g := range groups {
		task := groupTask{group: g}

		pageCount := 0
		var countErr error
		if g.Paginated() {
			if countErr = cache.Claim(g.SourcePath); countErr == nil {
				pageCount, countErr = s.deps.PageCounter.PageCount(ctx, g.SourcePath)
				if countErr != nil {
					countErr = fmt.Errorf("failed to read page count: %w", countErr)
				}
			}
		}

		for _, e := range g.Entries {
			rt := ruleTask{slot: slot, entry: e}
			results[slot] = models.RuleResult{Key: e.Key(), SourcePath: g.SourcePath}
			slot++

			switch {
			case !g.Paginated():
				total++
			case countErr != nil:
				rt.err = countErr
			case e.PageRange == nil:
				rt.first, rt.last = 1, pageCount
				total += pageCount
			case e.PageRange.End > pageCount:
				rt.err = fmt.Errorf("page range %s exceeds the document's %d pages", e.PageRange, pageCount)
			default:
				rt.first, rt.last = e.PageRange.Begin, e.PageRange.End
				total += e.PageRange.Count()
			}
			task.rules = append(task.rules, rt)
		}
		tasks = append(tasks, task)
	}
	return tasks, total
}

// processGroup handles every rule of one source file. A failing rule never stops its
// siblings; only cancellation ends the group early.
func (s *Service) processGroup(ctx context.Context, task groupTask, cache *pagecache.Cache, writer *article.Writer,
	counter *progress.Counter, observer interfaces.ProgressObserver, results []models.RuleResult, logger arbor.ILogger) error {

	source := task.group.SourcePath
	fail := func(rt ruleTask, err error) {
		res := &results[rt.slot]
		res.Status = models.RuleStatusFailed
		res.Error = err.Error()
		logger.Error().Err(err).Str("source", source).Str("article", rt.entry.Title).Msg("Rule failed")
		observer.OnLog(ctx, models.LogEvent{Level: models.LevelError, Message: err.Error(), Source: source, Article: rt.entry.Title})
	}

	if !task.group.Paginated() {
		content, err := s.deps.Extractor.Extract(ctx, source)
		for _, rt := range task.rules {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				fail(rt, err)
				counter.Tick(ctx, rt.entry.Title)
				continue
			}
			path, werr := writer.Emit(ctx, rt.entry, source, content)
			if werr != nil {
				fail(rt, werr)
			} else {
				results[rt.slot].Status = models.RuleStatusDone
				results[rt.slot].OutputPath = path
			}
			counter.Tick(ctx, rt.entry.Title)
		}
		return nil
	}

	recognizer := ocr.NewRecognizer(s.deps.Recognizers, s.config.OCR, observer, logger)
	defer recognizer.Close()

	// rasterize the union of the group's spans up front; per-rule Ensure then only
	// reads the cache, or reports the failure against the rule that needs the page
	var spans []pagecache.Range
	for _, rt := range task.rules {
		if rt.err == nil {
			spans = append(spans, pagecache.Range{First: rt.first, Last: rt.last})
		}
	}
	if len(spans) > 0 && ctx.Err() == nil {
		if _, err := cache.EnsureRanges(ctx, source, spans); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Str("source", source).Msg("Group rasterization incomplete, continuing per rule")
		}
	}

	for _, rt := range task.rules {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if rt.err != nil {
			fail(rt, rt.err)
			continue
		}

		observer.OnLog(ctx, models.LogEvent{Level: models.LevelInfo, Message: "recognizing", Source: source, Article: rt.entry.Title})

		ticked := 0
		tick := func() {
			ticked++
			counter.Tick(ctx, rt.entry.Title)
		}
		// a failed rule still accounts for its pages so the total is reached
		failRule := func(err error) {
			fail(rt, err)
			for ticked < rt.last-rt.first+1 {
				tick()
			}
		}

		pages, err := cache.Ensure(ctx, source, rt.first, rt.last)
		if err != nil {
			failRule(err)
			continue
		}
		art, err := recognizer.RecognizeArticle(ctx, rt.entry, pages, rt.first, rt.last, tick)
		if err != nil {
			failRule(err)
			continue
		}
		path, err := writer.WriteOCR(art)
		if err != nil {
			failRule(err)
			continue
		}

		res := &results[rt.slot]
		res.Status = models.RuleStatusDone
		res.OutputPath = path
		res.OCR = true
		res.Pages = len(art.Pages)
		res.Confidence = art.Aggregate
		for _, p := range art.Pages {
			res.LineFaults += p.LineFaults
		}

		logger.Info().
			Str("article", rt.entry.Title).
			Str("category", rt.entry.Category).
			Int("pages", res.Pages).
			Float64("confidence", res.Confidence).
			Msg("Article recognized")
	}
	return nil
}

func meanConfidence(results []models.RuleResult) float64 {
	sum := 0.0
	n := 0
	for _, r := range results {
		if r.OCR && r.Status == models.RuleStatusDone {
			sum += r.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
