// Package service provides the core business service behind the chat
// commands and the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	eventqueue "github.com/okian/herobot/internal/adapters/mq/queue"
	workerpool "github.com/okian/herobot/internal/adapters/mq/worker"
	"github.com/okian/herobot/internal/adapters/reply"
	"github.com/okian/herobot/internal/adapters/stratz"
	"github.com/okian/herobot/internal/domain/dedupe"
	"github.com/okian/herobot/internal/domain/model"
	"github.com/okian/herobot/internal/domain/ranking"
	"github.com/okian/herobot/internal/domain/types"
	"github.com/okian/herobot/pkg/logger"
	"github.com/okian/herobot/pkg/metrics"
)

const (
	maxSearchReplies = 10
	stopTimeout      = 10 * time.Second
)

// Catalog is the read-only hero index the service resolves names against.
type Catalog interface {
	Searcher
	ranking.Namer
	Entity(id uint8) (types.Entity, error)
	Len() int
}

// Service implements the chat commands and the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog    Catalog
	client     *stratz.Client
	replier    reply.Replier
	deduper    dedupe.Deduper
	queue      eventqueue.Queue[model.Command]
	workerPool *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	topN           int
	winRateWindow  int
	commandTimeout time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the command queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the command id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithTopN sets the length of every ranked matchup list.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithWinRateWindow sets how many leading periods the win rate covers.
func WithWinRateWindow(periods int) Option {
	return func(s *Service) {
		if periods > 0 {
			s.winRateWindow = periods
		}
	}
}

// WithCommandTimeout bounds each queued command.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.commandTimeout = d
		}
	}
}

// WithReplier sets where queued command replies go. Defaults to the log.
func WithReplier(r reply.Replier) Option {
	return func(s *Service) {
		if r != nil {
			s.replier = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over a built catalog and a stats client.
func New(catalog Catalog, client *stratz.Client, opts ...Option) *Service {
	s := &Service{
		catalog:        catalog,
		client:         client,
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      1000,
		dedupeSize:     10_000,
		topN:           ranking.DefaultTopN,
		winRateWindow:  ranking.DefaultWinRateWindow,
		commandTimeout: 30 * time.Second,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.replier == nil {
		s.replier = reply.NewLogReplier(s.logger.Named("reply"))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	metrics.UpdateCatalogSize(catalog.Len())
	return s
}

// Start creates the command queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting herobot service...")

	s.queue = eventqueue.NewInMemoryQueue[model.Command](
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s, s.replier,
		workerpool.WithLogger(s.logger),
		workerpool.WithCommandTimeout(s.commandTimeout),
	)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "herobot service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("heroes", s.catalog.Len()),
	)
	return nil
}

// Stop closes the queue and waits for queued commands to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping herobot service...")
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "herobot service stopped")
}

// SeenAndRecord atomically checks if a command id was seen and records it
// if not. Returns true if the command was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordCommandDuplicate()
	}
	return seen
}

// Unrecord removes a command id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered command ids.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue submits a command for asynchronous processing. Returns false on
// backpressure or when the service is not running.
func (s *Service) Enqueue(ctx context.Context, cmd model.Command) bool {
	return s.TryEnqueue(ctx, cmd) == nil
}

// TryEnqueue is Enqueue with the rejection reason: ErrNotStarted, or the
// queue's ErrFull, ErrClosed or context error.
func (s *Service) TryEnqueue(ctx context.Context, cmd model.Command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		s.logger.Warn(ctx, "enqueue before start", logger.String("command_id", cmd.ID))
		return ErrNotStarted
	}
	if cmd.Received.IsZero() {
		cmd.Received = time.Now()
	}

	s.logger.Debug(ctx, "enqueueing command",
		logger.String("command_id", cmd.ID),
		logger.String("command", cmd.Name),
		logger.String("hero", cmd.Hero),
	)
	if err := s.queue.TryEnqueue(ctx, cmd); err != nil {
		s.logger.Warn(ctx, "command rejected",
			logger.String("command_id", cmd.ID),
			logger.Error(err),
		)
		return fmt.Errorf("enqueue %s: %w", cmd.ID, err)
	}
	return nil
}

// Search returns catalog candidates for name, best first.
func (s *Service) Search(name string) []types.Entity {
	return s.catalog.Search(name)
}

// Matchups resolves name and ranks its best teammates, best opponents and
// worst opponents. The two matchup queries run concurrently.
func (s *Service) Matchups(ctx context.Context, name string) (types.MatchupReport, error) {
	hero, err := find(ctx, name, s.catalog)
	if err != nil {
		return types.MatchupReport{}, err
	}

	var advantage, disadvantage stratz.Matchups
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		advantage, err = execute(gctx, name, hero, stratz.MatchupsQuery, s.client)
		return err
	})
	g.Go(func() error {
		var err error
		disadvantage, err = execute(gctx, name, hero, stratz.DisadvantageQuery, s.client)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.MatchupReport{}, err
	}

	ranked := ranking.Rank(advantage.With, advantage.Vs, disadvantage.Vs, s.topN)
	report := types.MatchupReport{Hero: hero}
	for _, part := range []struct {
		dst     *types.RankedList
		label   string
		entries []types.MatchupEntry
	}{
		{&report.BestWith, ranking.LabelBestWith, ranked.BestWith},
		{&report.BestAgainst, ranking.LabelBestAgainst, ranked.BestAgainst},
		{&report.WorstAgainst, ranking.LabelWorstAgainst, ranked.WorstAgainst},
	} {
		list, err := ranking.Label(part.label, part.entries, s.catalog)
		if err != nil {
			return types.MatchupReport{}, fmt.Errorf("%s: %w", hero.Name, err)
		}
		*part.dst = list
	}
	return report, nil
}

// WinRate resolves name and aggregates its leading weekly win counts.
func (s *Service) WinRate(ctx context.Context, name string) (types.WinRateReport, error) {
	samples, hero, err := resolve(ctx, name, stratz.WinWeekQuery, s.catalog, s.client)
	if err != nil {
		return types.WinRateReport{}, err
	}
	w, err := ranking.WinRate(samples, s.winRateWindow)
	if err != nil {
		return types.WinRateReport{}, fmt.Errorf("%s: %w", hero.Name, err)
	}
	return types.WinRateReport{
		Hero:           hero,
		Periods:        w.Periods,
		Wins:           w.Wins,
		Matches:        w.Matches,
		WinRatePercent: w.WinRatePercent,
	}, nil
}

// HeroStats resolves name and returns its static stats.
func (s *Service) HeroStats(ctx context.Context, name string) (types.HeroStatsReport, error) {
	stats, hero, err := resolve(ctx, name, stratz.HeroStatsQuery, s.catalog, s.client)
	if err != nil {
		return types.HeroStatsReport{}, err
	}
	return types.HeroStatsReport{Hero: hero, Stats: stats}, nil
}

// HeroStatsByID returns static stats for a raw id. Ids missing from the
// catalog fail before any request is sent.
func (s *Service) HeroStatsByID(ctx context.Context, id uint8) (types.HeroStatsReport, error) {
	hero, err := s.catalog.Entity(id)
	if err != nil {
		return types.HeroStatsReport{}, err
	}
	stats, err := execute(ctx, fmt.Sprint(id), hero, stratz.HeroStatsQuery, s.client)
	if err != nil {
		return types.HeroStatsReport{}, err
	}
	return types.HeroStatsReport{Hero: hero, Stats: stats}, nil
}

// Handle runs one chat command and returns its reply text. Failures become
// user-facing messages; nothing here terminates the process.
func (s *Service) Handle(ctx context.Context, cmd model.Command) string {
	start := time.Now()
	text, err := s.run(ctx, cmd)

	kind := ErrorKind(err)
	metrics.RecordCommand(cmd.Name, kind)
	if err != nil {
		metrics.RecordCommandFailed(cmd.Name, kind)
		level := s.logger.Info
		if kind == KindInternal || kind == KindQuery {
			level = s.logger.Warn
		}
		level(ctx, "command failed",
			logger.String("command_id", cmd.ID),
			logger.String("command", cmd.Name),
			logger.String("kind", kind),
			logger.Error(err),
		)
		return Describe(cmd, err)
	}

	s.logger.Debug(ctx, "command handled",
		logger.String("command_id", cmd.ID),
		logger.String("command", cmd.Name),
		logger.Duration("took", time.Since(start)),
	)
	return text
}

func (s *Service) run(ctx context.Context, cmd model.Command) (string, error) {
	switch cmd.Name {
	case model.CommandMatchup:
		r, err := s.Matchups(ctx, cmd.Hero)
		return reply.FormatMatchups(r), err
	case model.CommandWinRate:
		r, err := s.WinRate(ctx, cmd.Hero)
		return reply.FormatWinRate(r), err
	case model.CommandHeroStats:
		r, err := s.HeroStats(ctx, cmd.Hero)
		return reply.FormatHeroStats(r), err
	case model.CommandHeroStatsID:
		r, err := s.HeroStatsByID(ctx, cmd.HeroID)
		return reply.FormatHeroStats(r), err
	case model.CommandSearch:
		if strings.TrimSpace(cmd.Hero) == "" {
			return "", errBlankName
		}
		found := s.Search(cmd.Hero)
		return reply.FormatSearch(cmd.Hero, found[:min(maxSearchReplies, len(found))]), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
}

// Describe turns a command error into the message shown to the user.
func Describe(cmd model.Command, err error) string {
	switch ErrorKind(err) {
	case KindNotFound:
		return fmt.Sprintf("Hero %q not found", cmd.Hero)
	case KindUnknownID:
		if cmd.Name == model.CommandHeroStatsID {
			return fmt.Sprintf("Unknown hero id %d", cmd.HeroID)
		}
		return "Couldn't fetch data, try again later"
	case KindQuery:
		return "Couldn't fetch data, try again later"
	case KindNoData:
		return "No data available"
	case KindUnknownCommand:
		return fmt.Sprintf("Unknown command %q", cmd.Name)
	case KindInvalid:
		return "Please provide a hero name"
	default:
		return "Something went wrong"
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"heroes":        s.catalog.Len(),
		"topN":          s.topN,
		"winRateWindow": s.winRateWindow,
		"seenCommands":  s.deduper.Size(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["queueClosed"] = s.queue.IsClosed()
		stats["dropped"] = s.queue.Dropped()
		stats["workers"] = s.workerPool.Size()
		stats["processed"] = s.workerPool.Processed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
		metrics.UpdateCatalogSize(s.catalog.Len())
	}

	return stats
}

// IsNotFound reports whether err means the hero could not be identified.
func IsNotFound(err error) bool {
	kind := ErrorKind(err)
	return kind == KindNotFound || kind == KindUnknownID
}

var _ workerpool.Handler = (*Service)(nil)
