package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/results"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
	"github.com/brackethq/circuit-metrics/internal/platform/logging"
)

const defaultBundleWorkers = 4

// ResultsService turns cached tournaments into per-player event records,
// fetching event lists and bundles that the cache is missing.
type ResultsService struct {
	events  event.Repository
	remote  RemoteDataSource
	workers int
	logger  *logging.Logger
}

func NewResultsService(events event.Repository, remote RemoteDataSource, workers int, logger *logging.Logger) *ResultsService {
	if workers <= 0 {
		workers = defaultBundleWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ResultsService{
		events:  events,
		remote:  remote,
		workers: workers,
		logger:  logger,
	}
}

type bundleTask struct {
	tournament tournament.Tournament
	event      event.Event
}

type bundleResult struct {
	task   bundleTask
	bundle event.Bundle
	err    error
}

// CollectPlayerResults walks the tournaments, resolves their singles events
// for the videogame and joins each event's bundle into player records.
// Bundle fetches run on a bounded worker pool; cache writes and joins stay on
// the calling goroutine so the single-writer store sees no concurrent writes.
// Events whose bundle cannot be fetched are skipped with a warning. Output
// order does not depend on fetch interleaving.
func (s *ResultsService) CollectPlayerResults(ctx context.Context, tournaments []tournament.Tournament, videogameID int) ([]results.PlayerEventResult, error) {
	ctx, span := startUsecaseSpan(ctx, "ResultsService.CollectPlayerResults")
	defer span.End()

	if videogameID <= 0 {
		return nil, fmt.Errorf("%w: videogame id is required", ErrInvalidInput)
	}

	cachedBundles := make(map[int64]event.Bundle)
	var pending []bundleTask
	var joined []bundleTask

	for _, t := range tournaments {
		events, err := resolveEventList(ctx, s.events, s.remote, s.logger, t.ID)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			if !ev.IsSingles() || ev.VideogameID != videogameID {
				continue
			}
			bundle, ok, err := s.events.LoadBundle(ctx, ev.ID)
			if err != nil {
				return nil, fmt.Errorf("load bundle event_id=%d: %w", ev.ID, err)
			}
			task := bundleTask{tournament: t, event: ev}
			if ok {
				cachedBundles[ev.ID] = bundle
				joined = append(joined, task)
				continue
			}
			if s.remote == nil {
				continue
			}
			pending = append(pending, task)
		}
	}

	fetched, err := s.fetchBundles(ctx, pending)
	if err != nil {
		return nil, err
	}
	for _, res := range fetched {
		if res.err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.WarnContext(ctx, "event bundle fetch failed, skipping event",
				"event_id", res.task.event.ID, "tournament_id", res.task.tournament.ID, "error", res.err)
			continue
		}
		if err := s.events.SaveBundle(ctx, res.bundle); err != nil {
			return nil, fmt.Errorf("save bundle event_id=%d: %w", res.task.event.ID, err)
		}
		cachedBundles[res.task.event.ID] = res.bundle
		joined = append(joined, res.task)
	}

	sort.SliceStable(joined, func(i, j int) bool {
		if joined[i].event.StartAt != joined[j].event.StartAt {
			return joined[i].event.StartAt > joined[j].event.StartAt
		}
		return joined[i].event.ID < joined[j].event.ID
	})

	var out []results.PlayerEventResult
	for _, task := range joined {
		bundle := cachedBundles[task.event.ID]
		out = append(out, BuildPlayerEventResults(task.tournament, task.event, bundle)...)
	}
	return out, nil
}

// resolveEventList answers a tournament's event list from the three-state
// cache, fetching and recording it when it was never fetched. A failed fetch
// is logged and reads as no events, so one flaky tournament does not sink the
// whole run.
func resolveEventList(ctx context.Context, repo event.Repository, remote RemoteDataSource, logger *logging.Logger, tournamentID int64) ([]event.Event, error) {
	cached, err := repo.LoadEvents(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("load events tournament_id=%d: %w", tournamentID, err)
	}
	if cached.State != event.CacheUnfetched {
		return cached.Events, nil
	}
	if remote == nil {
		return nil, nil
	}

	events, err := remote.TournamentEvents(ctx, tournamentID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.WarnContext(ctx, "event list fetch failed, skipping tournament", "tournament_id", tournamentID, "error", err)
		return nil, nil
	}
	// An empty list is still recorded so the tournament reads as checked.
	if err := repo.SaveEvents(ctx, tournamentID, events); err != nil {
		return nil, fmt.Errorf("save events tournament_id=%d: %w", tournamentID, err)
	}
	return events, nil
}

func (s *ResultsService) fetchBundles(ctx context.Context, tasks []bundleTask) ([]bundleResult, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	workerCount := s.workers
	if workerCount > len(tasks) {
		workerCount = len(tasks)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	out := make(chan bundleResult, len(tasks))
	var failedCount atomic.Int32

	var workers sync.WaitGroup
	for _, task := range tasks {
		task := task
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			bundle, fetchErr := s.remote.EventBundle(ctx, task.event.ID)
			if fetchErr != nil {
				failedCount.Add(1)
			}
			out <- bundleResult{task: task, bundle: bundle, err: fetchErr}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit bundle fetch: %w", err)
		}
	}

	workers.Wait()
	close(out)

	collected := make([]bundleResult, 0, len(tasks))
	for res := range out {
		collected = append(collected, res)
	}
	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].task.event.ID < collected[j].task.event.ID
	})

	if failed := failedCount.Load(); failed > 0 {
		s.logger.InfoContext(ctx, "bundle fetch stage finished with failures",
			"tasks", len(tasks), "failed", failed)
	}
	return collected, nil
}
