package bundler

import (
	"fmt"
	"maps"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/tsbundle/internal/variants"
)

var targets = map[variants.Target]api.Target{
	"es2015":              api.ES2015,
	"es2016":              api.ES2016,
	variants.TargetES2017: api.ES2017,
	"es2018":              api.ES2018,
	"es2019":              api.ES2019,
	"es2020":              api.ES2020,
	"es2021":              api.ES2021,
	"es2022":              api.ES2022,
	variants.TargetESNext: api.ESNext,
}

var formats = map[variants.Format]api.Format{
	variants.FormatESM: api.FormatESModule,
	variants.FormatCJS: api.FormatCommonJS,
}

// BuildOptions translates a descriptor into esbuild options rooted at
// absWorkingDir. Hooks are not attached here, see Runner.
func BuildOptions(d variants.Descriptor, absWorkingDir string) (api.BuildOptions, error) {
	target, ok := targets[d.Target]
	if !ok {
		return api.BuildOptions{}, fmt.Errorf("%w: %q", ErrUnknownTarget, d.Target)
	}

	format, ok := formats[d.Format]
	if !ok {
		return api.BuildOptions{}, fmt.Errorf("%w: %q", ErrUnknownFormat, d.Format)
	}

	entryPoints := make([]api.EntryPoint, 0, len(d.Entry))
	for name, path := range d.Entry {
		entryPoints = append(entryPoints, api.EntryPoint{
			InputPath:  path,
			OutputPath: name,
		})
	}

	opts := api.BuildOptions{
		AbsWorkingDir:       absWorkingDir,
		EntryPointsAdvanced: entryPoints,
		Outdir:              d.OutDir,
		Bundle:              true,
		Write:               true,
		Platform:            api.PlatformNode,
		Format:              format,
		Target:              target,
		MinifyWhitespace:    d.Minify,
		MinifyIdentifiers:   d.Minify,
		MinifySyntax:        d.Minify,
		Sourcemap:           cond(d.Sourcemap, api.SourceMapLinked, api.SourceMapNone),
		Define:              maps.Clone(d.Define),
		External:            append([]string(nil), d.External...),
		OutExtension:        map[string]string{".js": d.Extension()},
		Metafile:            d.Metafile,
	}

	if err := applyExtra(&opts, d.Extra); err != nil {
		return api.BuildOptions{}, err
	}

	return opts, nil
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
