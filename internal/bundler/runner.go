package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tsbundle/internal/variants"
	"golang.org/x/sync/errgroup"
)

// Result describes one finished variant.
type Result struct {
	Variant  variants.Variant
	Files    []string
	Warnings int
}

// Runner hands descriptors to esbuild and fires their success hooks.
type Runner struct {
	config Config
}

// New creates a runner with the given configuration
func New(config Config) *Runner {
	return &Runner{config: config}
}

// Build cleans the output directories that ask for it, then builds every
// descriptor. Failures from all variants are joined into one error.
func (r *Runner) Build(ctx context.Context, descriptors []variants.Descriptor) ([]Result, error) {
	if err := r.clean(ctx, descriptors); err != nil {
		return nil, err
	}

	results := make([]Result, len(descriptors))
	errs := make([]error, len(descriptors))

	g, gctx := errgroup.WithContext(ctx)
	if r.config.Concurrency > 0 {
		g.SetLimit(r.config.Concurrency)
	}

	for i, d := range descriptors {
		g.Go(func() error {
			// variants still queued when ctx is done never start
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", d.Variant, err)
			}
			results[i], errs[i] = r.build(gctx, d)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build interrupted: %w", err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return results, nil
}

func (r *Runner) build(ctx context.Context, d variants.Descriptor) (Result, error) {
	log := zerolog.Ctx(ctx).With().Str("variant", string(d.Variant)).Logger()

	opts, wd, err := r.options(ctx, d)
	if err != nil {
		return Result{}, err
	}

	log.Info().Str("entry", d.EntryPath()).Str("output", d.OutputFile()).Msg("Building variant")

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", formatMessage(msg)).Msg("Build error")
		}
		return Result{}, fmt.Errorf("%s: %w", d.Variant, messagesError(result.Errors))
	}

	for _, msg := range result.Warnings {
		log.Warn().Str("warning", formatMessage(msg)).Msg("Build warning")
	}

	files := make([]string, 0, len(result.OutputFiles))
	for _, file := range result.OutputFiles {
		log.Debug().Str("file", file.Path).Msg("Built file")
		files = append(files, file.Path)
	}

	if d.Metafile {
		path := filepath.Join(wd, d.OutDir, d.EntryName()+".meta.json")
		if err := os.WriteFile(path, []byte(result.Metafile), 0600); err != nil {
			return Result{}, fmt.Errorf("%s: failed to write metafile: %w", d.Variant, err)
		}
		files = append(files, path)
	}

	return Result{Variant: d.Variant, Files: files, Warnings: len(result.Warnings)}, nil
}

// Watch starts esbuild in watch mode for every descriptor and blocks until
// ctx is cancelled. Success hooks fire after each error free rebuild.
func (r *Runner) Watch(ctx context.Context, descriptors []variants.Descriptor) error {
	log := zerolog.Ctx(ctx)

	if err := r.clean(ctx, descriptors); err != nil {
		return err
	}

	contexts := make([]api.BuildContext, 0, len(descriptors))
	defer func() {
		for _, bc := range contexts {
			bc.Dispose()
		}
	}()

	for _, d := range descriptors {
		opts, _, err := r.options(ctx, d)
		if err != nil {
			return err
		}

		bc, ctxErr := api.Context(opts)
		if ctxErr != nil {
			return fmt.Errorf("%s: %w", d.Variant, messagesError(ctxErr.Errors))
		}
		contexts = append(contexts, bc)

		if err := bc.Watch(api.WatchOptions{}); err != nil {
			return fmt.Errorf("%s: failed to start watch: %w", d.Variant, err)
		}

		log.Info().Str("variant", string(d.Variant)).Str("output", d.OutputFile()).Msg("Watching variant")
	}

	<-ctx.Done()
	log.Info().Msg("Stopping watch")

	return nil
}

// options resolves the working directory and attaches the success plugin.
func (r *Runner) options(ctx context.Context, d variants.Descriptor) (api.BuildOptions, string, error) {
	wd, err := absWorkingDir(d.WorkingDir)
	if err != nil {
		return api.BuildOptions{}, "", err
	}

	opts, err := BuildOptions(d, wd)
	if err != nil {
		return api.BuildOptions{}, "", fmt.Errorf("%s: %w", d.Variant, err)
	}

	if unsupported := UnsupportedExtra(d.Extra); len(unsupported) > 0 {
		zerolog.Ctx(ctx).Warn().Str("variant", string(d.Variant)).Strs("keys", unsupported).Msg("Passthrough options have no esbuild equivalent, ignoring them")
	}

	if d.OnSuccess != nil || (d.Declarations && r.config.Declarations != nil) {
		opts.Plugins = append(opts.Plugins, r.successPlugin(ctx, d, wd))
	} else if d.Declarations {
		zerolog.Ctx(ctx).Warn().Str("variant", string(d.Variant)).Msg("No declaration emitter configured, skipping type declarations")
	}

	return opts, wd, nil
}

// successPlugin runs the descriptor's post build work once esbuild reports a
// build with no errors. A returned error becomes an esbuild build error.
func (r *Runner) successPlugin(ctx context.Context, d variants.Descriptor, wd string) api.Plugin {
	return api.Plugin{
		Name: "on-success",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}

				if d.Declarations && r.config.Declarations != nil {
					if err := r.config.Declarations.Emit(ctx, wd, d); err != nil {
						return api.OnEndResult{}, fmt.Errorf("failed to emit declarations: %w", err)
					}
				}

				if d.OnSuccess != nil {
					if err := d.OnSuccess(ctx); err != nil {
						return api.OnEndResult{}, err
					}
					zerolog.Ctx(ctx).Debug().Str("variant", string(d.Variant)).Msg("Success hook finished")
				}

				return api.OnEndResult{}, nil
			})
		},
	}
}

func absWorkingDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

func formatMessage(msg api.Message) string {
	if msg.Location != nil {
		return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
	}
	return msg.Text
}

func messagesError(msgs []api.Message) error {
	texts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		texts = append(texts, formatMessage(msg))
	}
	return fmt.Errorf("esbuild failed with %d errors: %s", len(msgs), strings.Join(texts, "; "))
}
