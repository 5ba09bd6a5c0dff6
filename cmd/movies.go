package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/reelgate/internal/formatter"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
	"github.com/desertthunder/reelgate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// MoviesList prints one page of the catalogue.
func (r *Runner) MoviesList(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	params := models.MovieListParams{
		Page:     cmd.Int("page"),
		PageSize: cmd.Int("size"),
		Title:    cmd.String("title"),
		Category: cmd.String("category"),
	}
	page, err := c.movies.List(ctx, params)
	if err != nil {
		return shared.HandleError(err)
	}

	format := cmd.String("format")
	data, err := formatter.Render(page.List, format)
	if err != nil {
		return err
	}

	if format == formatter.FormatText {
		r.writePlainHeader(fmt.Sprintf("Page %d (%d movies total)", max(params.Page, 1), page.Total))
	}
	return r.writePlain("%s", data)
}

// MoviesDetail prints a single movie.
func (r *Runner) MoviesDetail(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("id")
	if raw == "" {
		return fmt.Errorf("%w: movie id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: movie id %q is not a number", shared.ErrInvalidArgument, raw)
	}

	c, err := r.connect()
	if err != nil {
		return err
	}

	movie, err := c.movies.Detail(ctx, id)
	if err != nil {
		return shared.HandleError(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(movie, cmd.Bool("pretty"))
	}

	r.writePlainHeader(movie.Title)
	r.writePlain("ID:       %d\n", movie.ID)
	if movie.Category != "" {
		r.writePlain("Category: %s\n", movie.Category)
	}
	if movie.Year > 0 {
		r.writePlain("Year:     %d\n", movie.Year)
	}
	if movie.Rating > 0 {
		r.writePlain("Rating:   %.1f\n", movie.Rating)
	}
	if movie.PlayURL != "" {
		r.writePlain("Play:     %s\n", movie.PlayURL)
	}
	if movie.Description != "" {
		r.writePlain("\n%s\n", movie.Description)
	}
	return nil
}

// MoviesExport fetches details for many movies concurrently and writes them in the chosen format.
func (r *Runner) MoviesExport(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	format := strings.ToLower(cmd.String("format"))
	if _, err := formatter.Render(nil, format); err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, 32)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for u := range prog {
			r.logger.Info(r.palette.RenderProgress(u))
		}
	}()

	result, err := r.runExport(ctx, c, cmd, prog)
	close(prog)
	<-drained
	if err != nil {
		return err
	}

	movies := result.Movies()
	output := cmd.String("output")

	var written []string
	var manifestDir string
	if format == formatter.FormatMarkdown || format == "md" {
		if output == "" {
			output = "movies"
		}
		httpClient := r.httpClient
		if !cmd.Bool("covers") {
			httpClient = nil
		}
		md, err := formatter.WriteMarkdownExport(movies, output, httpClient)
		if err != nil {
			return err
		}
		written, manifestDir = md.Files, md.Directory
	} else {
		path, err := formatter.WriteExport(movies, format, output)
		if err != nil {
			return err
		}
		written, manifestDir = []string{path}, filepath.Dir(path)
	}

	manifestPath := filepath.Join(manifestDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return fmt.Errorf("export completed but failed to write manifest: %w", err)
	}

	r.writePlain("%s exported %d of %d movies\n", r.palette.OK("✓"), result.Succeeded, result.Total)
	for _, f := range written {
		r.writePlain("  %s\n", f)
	}
	for _, res := range result.Results {
		if res.Err() != nil {
			r.writePlain("  %s\n", r.palette.Warn(fmt.Sprintf("movie %d: %s", res.ID, res.Error)))
		}
	}
	return r.writePlain("%s\n", r.palette.Help("manifest: "+manifestPath))
}

func (r *Runner) runExport(ctx context.Context, c *client, cmd *cli.Command, prog chan<- tasks.ProgressUpdate) (*tasks.BulkResult, error) {
	ids, err := parseIDs(cmd.String("ids"))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		params := models.MovieListParams{Category: cmd.String("category")}
		if ids, err = tasks.CatalogueIDs(ctx, prog, c.movies, params, cmd.Int("limit")); err != nil {
			return nil, shared.HandleError(err)
		}
	}

	workers := cmd.Int("workers")
	if workers <= 0 {
		workers = r.config.Bulk.Workers
	}
	return tasks.BulkDetails(ctx, prog, c.movies, ids, tasks.BulkOpts{
		Workers:   workers,
		RateLimit: r.config.Bulk.RateLimit,
	})
}

func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: invalid movie id %q", shared.ErrInvalidArgument, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
