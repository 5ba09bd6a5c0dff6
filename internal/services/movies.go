package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
)

// MovieService reads the catalogue through the [Gateway].
type MovieService struct {
	gateway *Gateway
}

// NewMovieService creates a [MovieService]
func NewMovieService(g *Gateway) *MovieService {
	return &MovieService{gateway: g}
}

// List returns one page of the catalogue.
func (m *MovieService) List(ctx context.Context, params models.MovieListParams) (*models.MoviePage, error) {
	var page models.MoviePage
	if err := m.gateway.Get(ctx, PathMovieList, params.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Detail returns a single movie.
func (m *MovieService) Detail(ctx context.Context, id int64) (*models.Movie, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: movie id must be positive, got %d", shared.ErrInvalidArgument, id)
	}

	var movie models.Movie
	query := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if err := m.gateway.Get(ctx, PathMovieDetail, query, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}
