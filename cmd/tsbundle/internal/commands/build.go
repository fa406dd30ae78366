package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/tsbundle/internal/bundler"
	"github.com/wolfeidau/tsbundle/internal/logger"
)

type BuildCmd struct {
	ProjectFlags `embed:""`

	Concurrency int    `help:"maximum variants built at once, 0 builds all together" default:"0" env:"TSBUNDLE_CONCURRENCY"`
	TSC         string `help:"TypeScript compiler used for type declarations, empty skips them" default:"tsc" env:"TSBUNDLE_TSC"`
}

func (b *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	project, err := b.Resolve()
	if err != nil {
		return err
	}

	cfg := bundler.DefaultConfig()
	cfg.Concurrency = b.Concurrency
	if b.TSC == "" {
		cfg.Declarations = nil
	} else {
		cfg.Declarations = bundler.TSC{Command: b.TSC}
	}

	runner := bundler.New(cfg)
	descriptors := project.Descriptors()

	log.Info().
		Str("version", globals.Version).
		Str("name", project.Name).
		Str("entry", project.Entry).
		Bool("watch", project.Options.Watch).
		Msg("Generating build variants")

	if project.Options.Watch {
		return runner.Watch(ctx, descriptors)
	}

	results, err := runner.Build(ctx, descriptors)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", project.Name, err)
	}

	for _, result := range results {
		log.Info().
			Str("variant", string(result.Variant)).
			Strs("files", result.Files).
			Int("warnings", result.Warnings).
			Msg("Built variant")
	}

	return nil
}
