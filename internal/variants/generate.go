package variants

import (
	"context"
	"maps"
)

const (
	defaultOutDir = "dist"
	cjsOutDir     = "dist/cjs"
)

// externals are peer libraries resolved by the consumer, never bundled.
var externals = []string{
	"react",
	"react-dom",
	"react-native",
	"@react-three/fiber",
	"three",
	"react-konva",
	"konva",
	"react-zdog",
	"zdog",
}

// Externals returns a copy of the fixed exclusion list.
func Externals() []string {
	return append([]string(nil), externals...)
}

// layer is one level of the option merge. A nil field is unset and lets the
// layer below show through.
type layer struct {
	format       *Format
	outDir       *string
	target       *Target
	declarations *bool
	minify       *bool
	sourcemap    *bool
	metafile     *bool
	clean        *bool
	define       map[string]string
	external     []string
	outExtension func(Format) string
	onSuccess    Hook
}

// over returns l with every field set in top replacing the one below.
func (l layer) over(top layer) layer {
	if top.format != nil {
		l.format = top.format
	}
	if top.outDir != nil {
		l.outDir = top.outDir
	}
	if top.target != nil {
		l.target = top.target
	}
	if top.declarations != nil {
		l.declarations = top.declarations
	}
	if top.minify != nil {
		l.minify = top.minify
	}
	if top.sourcemap != nil {
		l.sourcemap = top.sourcemap
	}
	if top.metafile != nil {
		l.metafile = top.metafile
	}
	if top.clean != nil {
		l.clean = top.clean
	}
	if top.define != nil {
		l.define = top.define
	}
	if top.external != nil {
		l.external = top.external
	}
	if top.outExtension != nil {
		l.outExtension = top.outExtension
	}
	if top.onSuccess != nil {
		l.onSuccess = top.onSuccess
	}
	return l
}

func merge(layers ...layer) layer {
	var out layer
	for _, l := range layers {
		out = out.over(l)
	}
	return out
}

func (o Options) layer() layer {
	return layer{
		format:       o.Format,
		outDir:       o.OutDir,
		target:       o.Target,
		declarations: o.Declarations,
		minify:       o.Minify,
		sourcemap:    o.Sourcemap,
		metafile:     o.Metafile,
		define:       o.Define,
		outExtension: o.OutExtension,
		onSuccess:    o.OnSuccess,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func forceExtension(ext string) func(Format) string {
	return func(Format) string { return ext }
}

var bundlerDefaults = layer{
	format:       ptr(FormatESM),
	outDir:       ptr(defaultOutDir),
	target:       ptr(TargetESNext),
	declarations: ptr(false),
	minify:       ptr(false),
	sourcemap:    ptr(false),
	metafile:     ptr(false),
	clean:        ptr(false),
}

var commonOptions = layer{
	sourcemap: ptr(true),
}

func productionOptions() layer {
	return layer{
		minify: ptr(true),
		define: map[string]string{
			"process.env.NODE_ENV": `"production"`,
		},
	}
}

// Generate returns the five build descriptors for name and entry, in order:
// standard ESM, legacy ESM, production browser ESM, CommonJS development and
// CommonJS production. Layers merge bottom to top as bundler defaults, common
// options, overrides, production options, variant policy, then the clean flag
// and externals shared by every variant. Entry names are assigned last and
// cannot be overridden.
func Generate(name, entry string, overrides Options) []Descriptor {
	base := merge(bundlerDefaults, commonOptions, overrides.layer())
	shared := layer{
		clean:    ptr(!overrides.Watch),
		external: externals,
	}

	type variant struct {
		kind   Variant
		suffix string
		layer  layer
	}

	plan := []variant{
		{
			kind:   VariantESM,
			suffix: "",
			layer: merge(base, layer{
				format:       ptr(FormatESM),
				declarations: ptr(true),
				sourcemap:    ptr(true),
			}),
		},
		{
			// compile away optional chaining and spreads for older module loaders
			kind:   VariantLegacyESM,
			suffix: ".legacy-esm",
			layer: merge(base, layer{
				format:       ptr(FormatESM),
				target:       ptr(TargetES2017),
				sourcemap:    ptr(true),
				outExtension: forceExtension(".js"),
			}),
		},
		{
			kind:   VariantProductionESM,
			suffix: ".production",
			layer: merge(base, productionOptions(), layer{
				format:       ptr(FormatESM),
				outExtension: forceExtension(".mjs"),
			}),
		},
		{
			kind:   VariantCJSDev,
			suffix: ".cjs.development",
			layer: merge(base, layer{
				format: ptr(FormatCJS),
				outDir: ptr(cjsOutDir),
			}),
		},
		{
			kind:   VariantCJSProduction,
			suffix: ".cjs.production",
			layer: merge(base, productionOptions(), layer{
				format: ptr(FormatCJS),
				outDir: ptr(cjsOutDir),
				// index shim requires the .min.js artifact
				outExtension: forceExtension(".min.js"),
				onSuccess: func(context.Context) error {
					return WriteIndexShim(overrides.WorkingDir, name)
				},
			}),
		},
	}

	descriptors := make([]Descriptor, 0, len(plan))
	for _, v := range plan {
		descriptors = append(descriptors, v.layer.over(shared).descriptor(v.kind, name+v.suffix, entry, overrides))
	}
	return descriptors
}

func (l layer) descriptor(kind Variant, entryName, entry string, overrides Options) Descriptor {
	return Descriptor{
		Variant:      kind,
		Entry:        map[string]string{entryName: entry},
		Format:       *l.format,
		OutDir:       *l.outDir,
		Target:       *l.target,
		Declarations: *l.declarations,
		Minify:       *l.minify,
		Sourcemap:    *l.sourcemap,
		Metafile:     *l.metafile,
		Clean:        *l.clean,
		Define:       maps.Clone(l.define),
		External:     append([]string(nil), l.external...),
		Extra:        maps.Clone(overrides.Extra),
		WorkingDir:   overrides.WorkingDir,
		OutExtension: l.outExtension,
		OnSuccess:    l.onSuccess,
	}
}
