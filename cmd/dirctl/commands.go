package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"github.com/philanthrohub/directory/internal/browse"
	"github.com/philanthrohub/directory/internal/client"
	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/directory"
	"github.com/philanthrohub/directory/internal/filter"
	"github.com/philanthrohub/directory/internal/search"
)

func runList(ctx context.Context, e *env, args []string) error {
	fs := e.flags("list")
	query := fs.StringP("query", "q", "", "case-insensitive text to match against name, category and tags")
	categories := fs.StringArrayP("category", "c", nil, "only show this category (repeatable)")
	watch := fs.BoolP("watch", "w", false, "keep polling and redraw on every change")
	if err := fs.Parse(args); err != nil {
		return err
	}

	state := search.NewState()
	state.SetSearchQuery(*query)
	state.SetSelectedCategories(*categories)

	dir := e.cachedClient()
	defer dir.Stop()
	r := e.renderer()

	if !*watch {
		snap := dir.Get(ctx)
		v := browse.Build(snap, state.Snapshot())
		fmt.Fprint(e.stdout, r.Render(v))
		if v.Status == browse.StatusError {
			return v.Err
		}
		return nil
	}

	return watchList(ctx, e, dir.Cache(), r, state.Snapshot())
}

// watchList redraws the listing whenever the cache publishes a new snapshot,
// until ctx is cancelled.
func watchList(ctx context.Context, e *env, cache *client.Cache, r *browse.Renderer, filters search.Snapshot) error {
	out := termenv.NewOutput(e.stdout)
	draw := func(snap client.Snapshot) {
		if !e.plain {
			out.ClearScreen()
		}
		fmt.Fprint(e.stdout, r.Render(browse.Build(snap, filters)))
	}

	changes := cache.Changes()
	draw(cache.Snapshot())
	draw(cache.Get(ctx))
	select {
	case <-changes:
	default:
	}
	cache.Start()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			draw(cache.Snapshot())
		}
	}
}

func runCategories(ctx context.Context, e *env, args []string) error {
	fs := e.flags("categories")
	term := fs.StringP("search", "s", "", "only show categories containing this text")
	selected := fs.StringArrayP("category", "c", nil, "mark this category as selected (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	orgs, err := e.client().ListOrganizations(ctx)
	if err != nil {
		fmt.Fprintln(e.stderr, browse.ErrorMessage)
		return err
	}

	cats := filter.MatchCategories(filter.Categories(orgs), *term)
	fmt.Fprint(e.stdout, e.renderer().RenderCategories(cats, *selected))
	return nil
}

func runCreate(ctx context.Context, e *env, args []string) error {
	fs := e.flags("create")
	var req directory.CreateRequest
	fs.StringVar(&req.Name, "name", "", "organization name (required)")
	fs.StringVar(&req.Category, "category", "", "category (required)")
	fs.StringVar(&req.Description, "description", "", "short description")
	fs.StringVar(&req.Website, "website", "", "website URL")
	fs.StringVar(&req.Country, "country", "", "country of operation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := e.cachedClient()
	defer dir.Stop()
	org, err := dir.CreateOrganization(ctx, req)
	if err != nil {
		return describeWriteError(err)
	}
	fmt.Fprintln(e.stdout, "Created organization "+org.ID)
	fmt.Fprintln(e.stdout, e.renderer().Card(org))
	e.printTotal(ctx, dir)
	return nil
}

func runSubmit(ctx context.Context, e *env, args []string) error {
	fs := e.flags("submit")
	path := fs.StringP("file", "f", "", "YAML file holding the application (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("--file is required")
	}

	sub, err := loadSubmission(*path)
	if err != nil {
		return err
	}

	dir := e.cachedClient()
	defer dir.Stop()
	org, err := dir.SubmitOrganization(ctx, sub)
	if err != nil {
		return describeWriteError(err)
	}
	fmt.Fprintf(e.stdout, "Submitted %s for verification as organization %s\n", org.Name, org.ID)
	fmt.Fprintln(e.stdout, e.renderer().Card(org))
	e.printTotal(ctx, dir)
	return nil
}

// printTotal reports the directory size after a write. The write invalidated
// the cache, so the count includes it. Nothing is printed if the read fails.
func (e *env) printTotal(ctx context.Context, dir *client.CachedClient) {
	snap := dir.Get(ctx)
	if snap.Err != nil {
		return
	}
	fmt.Fprintf(e.stdout, "The directory now lists %d organizations\n", len(snap.Organizations))
}

func loadSubmission(path string) (models.Submission, error) {
	var sub models.Submission
	data, err := os.ReadFile(path)
	if err != nil {
		return sub, fmt.Errorf("failed to read submission: %w", err)
	}
	if err := yaml.Unmarshal(data, &sub); err != nil {
		return sub, fmt.Errorf("failed to parse submission: %w", err)
	}
	return sub, nil
}

// describeWriteError prefixes a failed create or submit with what went wrong.
func describeWriteError(err error) error {
	var ve *client.ValidationError
	if errors.As(err, &ve) {
		return fmt.Errorf("rejected: %w", err)
	}
	return fmt.Errorf("submission failed: %w", err)
}
