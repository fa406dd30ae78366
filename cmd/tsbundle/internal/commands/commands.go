package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/wolfeidau/tsbundle/internal/config"
	"github.com/wolfeidau/tsbundle/internal/variants"
)

type Globals struct {
	Debug   bool
	Version string
}

// ProjectFlags locate the package being built. Flags win over the project file.
type ProjectFlags struct {
	Config   string `help:"path to the project file, relative to --cwd" default:"tsbundle.yaml" env:"TSBUNDLE_CONFIG"`
	Name     string `help:"package name used as the output file prefix" default:"" env:"TSBUNDLE_NAME"`
	Entry    string `help:"entry point path" default:"" env:"TSBUNDLE_ENTRY"`
	Cwd      string `help:"working directory builds are resolved against" default:"" env:"TSBUNDLE_CWD"`
	OutDir   string `help:"output directory for the esm variants" default:"" env:"TSBUNDLE_OUT_DIR"`
	Watch    bool   `help:"rebuild on change and keep existing output" default:"false" env:"TSBUNDLE_WATCH"`
	Metafile bool   `help:"write an esbuild metafile next to each variant" default:"false" env:"TSBUNDLE_METAFILE"`
}

// Project is the resolved input to the variant generator.
type Project struct {
	Name    string
	Entry   string
	Options variants.Options
}

func (p *Project) Descriptors() []variants.Descriptor {
	return variants.Generate(p.Name, p.Entry, p.Options)
}

// Resolve loads the project file, when there is one, and applies the flags on top.
func (f *ProjectFlags) Resolve() (*Project, error) {
	project := &Project{}

	path := f.Config
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Cwd, path)
	}

	if path != "" {
		file, err := config.Load(path)
		switch {
		case err == nil:
			project.Name = file.Name
			project.Entry = file.Entry
			project.Options = file.Options
		case errors.Is(err, config.ErrNotFound) && f.Config == config.DefaultPath:
			// no project file, flags only
		default:
			return nil, err
		}
	}

	if f.Name != "" {
		project.Name = f.Name
	}
	if f.Entry != "" {
		project.Entry = f.Entry
	}
	if !filepath.IsAbs(project.Options.WorkingDir) {
		project.Options.WorkingDir = filepath.Join(f.Cwd, project.Options.WorkingDir)
	}
	if f.OutDir != "" {
		outDir := f.OutDir
		project.Options.OutDir = &outDir
	}
	if f.Watch {
		project.Options.Watch = true
	}
	if f.Metafile {
		metafile := true
		project.Options.Metafile = &metafile
	}

	if project.Name == "" {
		return nil, fmt.Errorf("package name is required (--name, TSBUNDLE_NAME or name in %s)", f.Config)
	}
	if project.Entry == "" {
		return nil, fmt.Errorf("entry point is required (--entry, TSBUNDLE_ENTRY or entry in %s)", f.Config)
	}

	return project, nil
}
