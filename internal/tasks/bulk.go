package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 5
	maxWorkers       = 10
	defaultRateLimit = 5.0
	listPageSize     = 50
)

// DetailFetcher retrieves a single movie. [services.MovieService] implements it.
type DetailFetcher interface {
	Detail(ctx context.Context, id int64) (*models.Movie, error)
}

// Lister pages through the catalogue. [services.MovieService] implements it.
type Lister interface {
	List(ctx context.Context, params models.MovieListParams) (*models.MoviePage, error)
}

// BulkOpts configures [BulkDetails].
type BulkOpts struct {
	Workers   int     // Concurrent workers (default: 5, max: 10)
	RateLimit float64 // Requests per second (default: 5)
}

// DetailResult is the outcome for one requested id.
type DetailResult struct {
	ID    int64         `json:"id"`
	Movie *models.Movie `json:"movie,omitempty"`
	Error string        `json:"error,omitempty"`

	err error
}

// Err returns the fetch error, if any.
func (r DetailResult) Err() error { return r.err }

// BulkResult summarizes a [BulkDetails] run. Results are in input order.
type BulkResult struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []DetailResult `json:"results"`
}

// Movies returns the successfully fetched movies in input order.
func (r *BulkResult) Movies() []models.Movie {
	movies := make([]models.Movie, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.Movie != nil {
			movies = append(movies, *res.Movie)
		}
	}
	return movies
}

type detailJob struct {
	index int
	id    int64
}

// BulkDetails fetches every id concurrently with rate limiting.
//
// Individual failures are recorded per id and do not stop the run. The returned error is
// non-nil only when ctx ends before every id was attempted; the partial result is still returned.
func BulkDetails(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	fetcher DetailFetcher,
	ids []int64,
	opts BulkOpts,
) (*BulkResult, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("%w: movie service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	result := &BulkResult{Total: len(ids), Results: make([]DetailResult, len(ids))}
	for i, id := range ids {
		result.Results[i] = DetailResult{ID: id, err: context.Canceled, Error: "not attempted"}
	}
	if len(ids) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan detailJob)
	done := make(chan detailJob, len(ids))

	var wg sync.WaitGroup
	for range opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				movie, err := fetcher.Detail(ctx, job.id)
				res := DetailResult{ID: job.id, Movie: movie, err: err}
				if err != nil {
					res.Movie = nil
					res.Error = err.Error()
				}
				result.Results[job.index] = res
				done <- job
			}
		}()
	}

	sendProgress(prog, fetchingDetailsUpdate(len(ids)))

	var dispatchErr error
	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				dispatchErr = err
				return
			}
			select {
			case jobs <- detailJob{index: i, id: id}:
			case <-ctx.Done():
				dispatchErr = ctx.Err()
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for job := range done {
		completed++
		res := result.Results[job.index]
		if res.err != nil {
			result.Failed++
			sendProgress(prog, detailFailedUpdate(completed, len(ids), res.ID, res.err))
			continue
		}
		result.Succeeded++
		sendProgress(prog, detailFetchedUpdate(completed, len(ids), res.Movie.Title))
	}

	if dispatchErr != nil {
		result.Failed = len(ids) - result.Succeeded
		return result, fmt.Errorf("bulk fetch interrupted after %d of %d: %w", completed, len(ids), dispatchErr)
	}
	return result, nil
}

// CatalogueIDs pages through the listing and returns every movie id, stopping after limit ids when limit > 0.
func CatalogueIDs(ctx context.Context, prog chan<- ProgressUpdate, lister Lister, params models.MovieListParams, limit int) ([]int64, error) {
	if lister == nil {
		return nil, fmt.Errorf("%w: movie service not initialized", shared.ErrServiceUnavailable)
	}
	if params.PageSize <= 0 {
		params.PageSize = listPageSize
	}
	if params.Page <= 0 {
		params.Page = 1
	}

	var ids []int64
	for {
		page, err := lister.List(ctx, params)
		if err != nil {
			return ids, fmt.Errorf("failed to list page %d: %w", params.Page, err)
		}

		pages := (page.Total + params.PageSize - 1) / params.PageSize
		sendProgress(prog, listPageUpdate(params.Page, pages))

		for _, m := range page.List {
			ids = append(ids, m.ID)
			if limit > 0 && len(ids) >= limit {
				return ids, nil
			}
		}

		if len(page.List) == 0 || params.Page >= pages {
			return ids, nil
		}
		params.Page++
	}
}
