package bundler

import (
	"fmt"
	"maps"
	"slices"

	"github.com/evanw/esbuild/pkg/api"
)

var loaders = map[string]api.Loader{
	"base64":  api.LoaderBase64,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"css":     api.LoaderCSS,
	"dataurl": api.LoaderDataURL,
	"default": api.LoaderDefault,
	"empty":   api.LoaderEmpty,
	"file":    api.LoaderFile,
	"js":      api.LoaderJS,
	"json":    api.LoaderJSON,
	"jsx":     api.LoaderJSX,
	"text":    api.LoaderText,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
}

var jsxModes = map[string]api.JSX{
	"transform": api.JSXTransform,
	"preserve":  api.JSXPreserve,
	"automatic": api.JSXAutomatic,
}

var platforms = map[string]api.Platform{
	"browser": api.PlatformBrowser,
	"node":    api.PlatformNode,
	"neutral": api.PlatformNeutral,
}

// extraSetters apply passthrough settings that have an esbuild counterpart.
var extraSetters = map[string]func(opts *api.BuildOptions, value any) error{
	"banner": func(opts *api.BuildOptions, value any) (err error) {
		opts.Banner, err = stringMap(value)
		return err
	},
	"footer": func(opts *api.BuildOptions, value any) (err error) {
		opts.Footer, err = stringMap(value)
		return err
	},
	"alias": func(opts *api.BuildOptions, value any) (err error) {
		opts.Alias, err = stringMap(value)
		return err
	},
	"loader": func(opts *api.BuildOptions, value any) error {
		m, err := stringMap(value)
		if err != nil {
			return err
		}
		opts.Loader = make(map[string]api.Loader, len(m))
		for ext, name := range m {
			loader, ok := loaders[name]
			if !ok {
				return fmt.Errorf("unknown loader %q for %s", name, ext)
			}
			opts.Loader[ext] = loader
		}
		return nil
	},
	"jsx": func(opts *api.BuildOptions, value any) error {
		return lookup(jsxModes, value, &opts.JSX)
	},
	"platform": func(opts *api.BuildOptions, value any) error {
		return lookup(platforms, value, &opts.Platform)
	},
	"jsxImportSource": func(opts *api.BuildOptions, value any) (err error) {
		opts.JSXImportSource, err = str(value)
		return err
	},
	"tsconfig": func(opts *api.BuildOptions, value any) (err error) {
		opts.Tsconfig, err = str(value)
		return err
	},
	"keepNames": func(opts *api.BuildOptions, value any) (err error) {
		opts.KeepNames, err = boolean(value)
		return err
	},
	"treeshake": func(opts *api.BuildOptions, value any) error {
		on, err := boolean(value)
		if err != nil {
			return err
		}
		opts.TreeShaking = cond(on, api.TreeShakingTrue, api.TreeShakingFalse)
		return nil
	},
}

// applyExtra forwards the passthrough settings esbuild understands. Keys it
// has no setter for are left alone, see UnsupportedExtra.
func applyExtra(opts *api.BuildOptions, extra map[string]any) error {
	for key, value := range extra {
		set, ok := extraSetters[key]
		if !ok {
			continue
		}
		if err := set(opts, value); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidOption, key, err)
		}
	}
	return nil
}

// UnsupportedExtra returns the passthrough keys that have no esbuild option, sorted.
func UnsupportedExtra(extra map[string]any) []string {
	var keys []string
	for key := range extra {
		if _, ok := extraSetters[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func lookup[T any](table map[string]T, value any, dst *T) error {
	name, err := str(value)
	if err != nil {
		return err
	}
	v, ok := table[name]
	if !ok {
		return fmt.Errorf("unknown value %q", name)
	}
	*dst = v
	return nil
}

func str(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", value)
	}
	return s, nil
}

func boolean(value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("expected a boolean, got %T", value)
	}
	return b, nil
}

// stringMap accepts both decoded YAML maps and Go string maps.
func stringMap(value any) (map[string]string, error) {
	switch m := value.(type) {
	case map[string]string:
		return maps.Clone(m), nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, v := range m {
			s, err := str(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a map of strings, got %T", value)
	}
}
