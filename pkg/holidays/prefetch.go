package holidays

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PrefetchConfig holds prefetcher configuration.
type PrefetchConfig struct {
	// MaxConcurrency is the number of parallel workers.
	MaxConcurrency int
	// Timeout per country-year fetch.
	Timeout time.Duration
}

// DefaultPrefetchConfig returns a conservative configuration for the public
// Nager.Date API.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PrefetchJob is one country-year to warm.
type PrefetchJob struct {
	CountryCode string
	Year        int
}

// PrefetchResult is the outcome of one job.
type PrefetchResult struct {
	Job   PrefetchJob
	Count int
	Error error
}

// Prefetcher warms the catalog cache for a set of countries with a worker pool.
type Prefetcher struct {
	catalog *Catalog
	config  PrefetchConfig
	logger  zerolog.Logger
}

// NewPrefetcher creates a prefetcher for catalog.
func NewPrefetcher(catalog *Catalog, config PrefetchConfig, logger zerolog.Logger) *Prefetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Prefetcher{
		catalog: catalog,
		config:  config,
		logger:  logger.With().Str("component", "holiday-prefetcher").Logger(),
	}
}

// Jobs builds jobs for the given countries over years [fromYear, fromYear+years).
func Jobs(countries []string, fromYear, years int) []PrefetchJob {
	var jobs []PrefetchJob
	for _, cc := range countries {
		cc = strings.ToUpper(strings.TrimSpace(cc))
		if cc == "" {
			continue
		}
		for year := fromYear; year < fromYear+years; year++ {
			jobs = append(jobs, PrefetchJob{CountryCode: cc, Year: year})
		}
	}
	return jobs
}

// Run executes jobs in parallel and returns every result in job order.
// Failed jobs do not stop the others; the returned error reports how many
// failed.
func (p *Prefetcher) Run(ctx context.Context, jobs []PrefetchJob) ([]PrefetchResult, error) {
	start := time.Now()
	results := make([]PrefetchResult, len(jobs))
	if len(jobs) == 0 {
		return results, nil
	}

	p.logger.Info().
		Int("jobs", len(jobs)).
		Int("workers", p.config.MaxConcurrency).
		Msg("Starting holiday prefetch")

	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < min(p.config.MaxConcurrency, len(jobs)); i++ {
		wg.Add(1)
		go p.worker(ctx, jobs, queue, results, &wg, i)
	}
	wg.Wait()

	failed := 0
	for i := range results {
		if results[i].Error != nil {
			failed++
		}
	}

	p.logger.Info().
		Int("jobs", len(jobs)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Holiday prefetch complete")

	if failed > 0 {
		return results, fmt.Errorf("holiday prefetch: %d of %d jobs failed", failed, len(jobs))
	}
	return results, nil
}

// worker processes job indexes from the queue. Each index is written by
// exactly one worker, so results needs no lock.
func (p *Prefetcher) worker(ctx context.Context, jobs []PrefetchJob, queue <-chan int, results []PrefetchResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for idx := range queue {
		job := jobs[idx]

		if err := ctx.Err(); err != nil {
			results[idx] = PrefetchResult{Job: job, Error: err}
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		count, err := p.catalog.Prefetch(jobCtx, job.CountryCode, job.Year)
		cancel()

		if err != nil {
			p.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("country", job.CountryCode).
				Int("year", job.Year).
				Msg("Holiday prefetch failed")
		}

		results[idx] = PrefetchResult{Job: job, Count: count, Error: err}
		processed++
	}

	p.logger.Debug().
		Int("worker_id", workerID).
		Int("jobs_processed", processed).
		Msg("Worker completed")
}
