package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/reelgate/internal/credentials"
	"github.com/desertthunder/reelgate/internal/device"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/repositories"
	"github.com/desertthunder/reelgate/internal/services"
	"github.com/desertthunder/reelgate/internal/shared"
	tu "github.com/desertthunder/reelgate/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	delay    time.Duration
	fail     map[int64]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (f *fakeFetcher) Detail(ctx context.Context, id int64) (*models.Movie, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[id] {
		return nil, fmt.Errorf("movie %d: %w", id, shared.ErrAPIRequest)
	}
	return &models.Movie{ID: id, Title: fmt.Sprintf("Movie %d", id)}, nil
}

type fakeLister struct {
	movies []models.Movie
	err    error
}

func (l fakeLister) List(_ context.Context, p models.MovieListParams) (*models.MoviePage, error) {
	if l.err != nil {
		return nil, l.err
	}
	start := min((p.Page-1)*p.PageSize, len(l.movies))
	end := min(start+p.PageSize, len(l.movies))
	return &models.MoviePage{Total: len(l.movies), List: l.movies[start:end]}, nil
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(n - i)
	}
	return out
}

func TestBulkDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("results keep input order", func(t *testing.T) {
		f := &fakeFetcher{delay: time.Millisecond}
		input := ids(8)

		result, err := BulkDetails(ctx, nil, f, input, BulkOpts{Workers: 4, RateLimit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 8, result.Total)
		assert.Equal(t, 8, result.Succeeded)
		assert.Zero(t, result.Failed)
		for i, res := range result.Results {
			assert.Equal(t, input[i], res.ID)
			require.NotNil(t, res.Movie)
			assert.Equal(t, input[i], res.Movie.ID)
		}
		assert.Len(t, result.Movies(), 8)
	})

	t.Run("partial failures are recorded per id", func(t *testing.T) {
		f := &fakeFetcher{fail: map[int64]bool{2: true, 5: true}}

		result, err := BulkDetails(ctx, nil, f, []int64{1, 2, 3, 4, 5}, BulkOpts{RateLimit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Succeeded)
		assert.Equal(t, 2, result.Failed)
		assert.ErrorIs(t, result.Results[1].Err(), shared.ErrAPIRequest)
		assert.Nil(t, result.Results[1].Movie)
		assert.Contains(t, result.Results[4].Error, "movie 5")
		assert.NoError(t, result.Results[0].Err())
		assert.Empty(t, result.Results[0].Error)

		movies := result.Movies()
		require.Len(t, movies, 3)
		assert.Equal(t, []int64{1, 3, 4}, []int64{movies[0].ID, movies[1].ID, movies[2].ID})
	})

	t.Run("workers are capped", func(t *testing.T) {
		f := &fakeFetcher{delay: 20 * time.Millisecond}

		_, err := BulkDetails(ctx, nil, f, ids(30), BulkOpts{Workers: 50, RateLimit: 10000})
		require.NoError(t, err)
		assert.LessOrEqual(t, f.peak.Load(), int32(maxWorkers))
		assert.EqualValues(t, 30, f.calls.Load())
	})

	t.Run("rate limit paces requests", func(t *testing.T) {
		f := &fakeFetcher{}

		start := time.Now()
		_, err := BulkDetails(ctx, nil, f, ids(5), BulkOpts{Workers: 5, RateLimit: 50})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("canceled context returns partial result", func(t *testing.T) {
		f := &fakeFetcher{}
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := BulkDetails(cctx, nil, f, ids(3), BulkOpts{RateLimit: 1})
		require.Error(t, err)
		require.NotNil(t, result)
		assert.Equal(t, 3, result.Failed)
		assert.Zero(t, result.Succeeded)
	})

	t.Run("progress updates", func(t *testing.T) {
		f := &fakeFetcher{fail: map[int64]bool{2: true}}
		prog := make(chan ProgressUpdate, 10)

		_, err := BulkDetails(ctx, prog, f, []int64{1, 2}, BulkOpts{RateLimit: 1000})
		require.NoError(t, err)
		close(prog)

		var updates []ProgressUpdate
		for u := range prog {
			updates = append(updates, u)
		}
		require.Len(t, updates, 3)
		assert.Equal(t, FetchDetails, updates[0].Phase)
		assert.Equal(t, "fetch_details", updates[0].Phase.String())
		assert.Equal(t, 2, updates[2].Step)
	})

	t.Run("full progress channel never blocks", func(t *testing.T) {
		prog := make(chan ProgressUpdate)
		_, err := BulkDetails(ctx, prog, &fakeFetcher{}, ids(3), BulkOpts{RateLimit: 1000})
		assert.NoError(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		result, err := BulkDetails(ctx, nil, &fakeFetcher{}, nil, BulkOpts{})
		require.NoError(t, err)
		assert.Zero(t, result.Total)
		assert.Empty(t, result.Movies())
	})

	t.Run("nil fetcher", func(t *testing.T) {
		_, err := BulkDetails(ctx, nil, nil, ids(1), BulkOpts{})
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})
}

func TestBulkDetailsRecoversExpiredToken(t *testing.T) {
	ctx := context.Background()

	backend := tu.NewBackend(t)
	store := credentials.NewStore(repositories.NewMemoryStore(), nil)
	gateway := services.NewGateway(services.GatewayOpts{BaseURL: backend.URL(), Store: store})
	dev := device.NewCollector(
		device.NewFingerprinter(repositories.NewMemoryStore()),
		device.NewIPDetector(device.IPDetectorOpts{Config: shared.IPConfig{LoopbackShortcut: true}, BackendURL: backend.URL()}),
		"reelgate-test",
	)
	guest := services.NewGuestIssuer(services.GuestIssuerOpts{Gateway: gateway, Store: store, Device: dev})
	gateway.SetRefresher(guest)

	_, err := guest.IssueGuestToken(ctx, false)
	require.NoError(t, err)
	backend.Revoke("g1")

	result, err := BulkDetails(ctx, nil, services.NewMovieService(gateway), []int64{1, 2, 3, 99}, BulkOpts{Workers: 1, RateLimit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Results[3].Error, "movie not found")

	assert.Equal(t, 2, backend.GuestCalls())
	assert.EqualValues(t, 1, gateway.Stats().Refreshes)
	assert.Equal(t, "g2", store.GuestToken())
}

func TestCatalogueIDs(t *testing.T) {
	ctx := context.Background()
	var movies []models.Movie
	for i := 1; i <= 7; i++ {
		movies = append(movies, models.Movie{ID: int64(i)})
	}

	t.Run("walks every page", func(t *testing.T) {
		prog := make(chan ProgressUpdate, 10)
		got, err := CatalogueIDs(ctx, prog, fakeLister{movies: movies}, models.MovieListParams{PageSize: 3}, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, got)
		assert.Len(t, prog, 3)
	})

	t.Run("stops at limit", func(t *testing.T) {
		got, err := CatalogueIDs(ctx, nil, fakeLister{movies: movies}, models.MovieListParams{PageSize: 3}, 4)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 4}, got)
	})

	t.Run("list error", func(t *testing.T) {
		_, err := CatalogueIDs(ctx, nil, fakeLister{err: errors.New("boom")}, models.MovieListParams{}, 0)
		assert.ErrorContains(t, err, "failed to list page 1")
	})

	t.Run("empty catalogue", func(t *testing.T) {
		got, err := CatalogueIDs(ctx, nil, fakeLister{}, models.MovieListParams{}, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

