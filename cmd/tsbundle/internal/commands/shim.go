package commands

import (
	"context"

	"github.com/wolfeidau/tsbundle/internal/logger"
	"github.com/wolfeidau/tsbundle/internal/variants"
)

type ShimCmd struct {
	Name string `help:"package name the shim requires" required:"" env:"TSBUNDLE_NAME"`
	Cwd  string `help:"working directory the shim is written under" default:"" env:"TSBUNDLE_CWD"`
}

func (s *ShimCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	if err := variants.WriteIndexShim(s.Cwd, s.Name); err != nil {
		return err
	}

	log.Info().Str("name", s.Name).Str("path", variants.ShimPath).Msg("Wrote index shim")
	return nil
}
