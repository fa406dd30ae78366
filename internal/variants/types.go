package variants

import (
	"context"
	"path/filepath"
)

// Format is the module format a descriptor emits.
type Format string

const (
	FormatESM Format = "esm"
	FormatCJS Format = "cjs"
)

// DefaultExtension returns the extension used for a format when no
// OutExtension override is present.
func (f Format) DefaultExtension() string {
	if f == FormatCJS {
		return ".js"
	}
	return ".mjs"
}

// Target is the syntax level output is compiled down to.
type Target string

const (
	TargetESNext Target = "esnext"
	TargetES2017 Target = "es2017"
)

// Variant identifies one of the five generated build targets.
type Variant string

const (
	VariantESM           Variant = "esm"
	VariantLegacyESM     Variant = "legacy-esm"
	VariantProductionESM Variant = "production-esm"
	VariantCJSDev        Variant = "cjs-development"
	VariantCJSProduction Variant = "cjs-production"
)

// Hook is fired by the bundler after a variant builds without errors.
type Hook func(ctx context.Context) error

// Descriptor describes a single build target.
type Descriptor struct {
	Variant Variant `yaml:"variant"`
	// Entry maps the output name to the source path. It always holds exactly one pair.
	Entry        map[string]string `yaml:"entry"`
	Format       Format            `yaml:"format"`
	OutDir       string            `yaml:"outDir"`
	Target       Target            `yaml:"target"`
	Declarations bool              `yaml:"dts"`
	Minify       bool              `yaml:"minify"`
	Sourcemap    bool              `yaml:"sourcemap"`
	Metafile     bool              `yaml:"metafile"`
	Define       map[string]string `yaml:"define,omitempty"`
	Clean        bool              `yaml:"clean"`
	External     []string          `yaml:"external"`
	Extra        map[string]any    `yaml:"extra,omitempty"`
	WorkingDir   string            `yaml:"-"`

	OutExtension func(Format) string `yaml:"-"`
	OnSuccess    Hook                `yaml:"-"`
}

// EntryName returns the output name of the descriptor's single entry.
func (d Descriptor) EntryName() string {
	for name := range d.Entry {
		return name
	}
	return ""
}

// EntryPath returns the source path of the descriptor's single entry.
func (d Descriptor) EntryPath() string {
	for _, path := range d.Entry {
		return path
	}
	return ""
}

// Extension resolves the output file extension, honouring OutExtension.
func (d Descriptor) Extension() string {
	if d.OutExtension != nil {
		return d.OutExtension(d.Format)
	}
	return d.Format.DefaultExtension()
}

// OutputFile is the path of the main artifact relative to the working directory.
func (d Descriptor) OutputFile() string {
	return filepath.Join(d.OutDir, d.EntryName()+d.Extension())
}

// Options is the caller supplied overlay. Nil pointers leave the generated
// value alone; Extra is copied onto every descriptor without being examined.
type Options struct {
	Watch        bool                `yaml:"watch"`
	WorkingDir   string              `yaml:"workingDir"`
	OutDir       *string             `yaml:"outDir"`
	Target       *Target             `yaml:"target"`
	Format       *Format             `yaml:"format"`
	Minify       *bool               `yaml:"minify"`
	Sourcemap    *bool               `yaml:"sourcemap"`
	Declarations *bool               `yaml:"dts"`
	Metafile     *bool               `yaml:"metafile"`
	Define       map[string]string   `yaml:"define"`
	OutExtension func(Format) string `yaml:"-"`
	OnSuccess    Hook                `yaml:"-"`
	Extra        map[string]any      `yaml:",inline"`
}
