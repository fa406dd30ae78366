package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tsbundle/internal/variants"
)

const widgetSource = `import { createElement } from 'react'

export interface Props {
  label?: string
}

export function widget(props: Props = {}) {
  if (process.env.NODE_ENV !== 'production') {
    console.warn('widget running in development')
  }
  return createElement('div', null, props?.label ?? 'widget')
}
`

type fakeEmitter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeEmitter) Emit(ctx context.Context, workingDir string, d variants.Descriptor) error {
	f.calls.Add(1)
	return f.err
}

func setupProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "src"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "src", "index.ts"), []byte(widgetSource), 0600))

	return tmpDir
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunner_Build(t *testing.T) {
	tmpDir := setupProject(t)
	emitter := &fakeEmitter{}

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir})
	results, err := New(Config{Declarations: emitter}).Build(context.Background(), descriptors)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for _, path := range []string{
		"dist/widget.mjs",
		"dist/widget.legacy-esm.js",
		"dist/widget.production.mjs",
		"dist/cjs/widget.cjs.development.js",
		"dist/cjs/widget.cjs.production.min.js",
		"dist/cjs/index.js",
	} {
		assert.FileExists(t, filepath.Join(tmpDir, path))
	}

	t.Run("source maps are linked", func(t *testing.T) {
		assert.FileExists(t, filepath.Join(tmpDir, "dist", "widget.mjs.map"))
	})

	t.Run("externals stay as imports", func(t *testing.T) {
		dev := readFile(t, filepath.Join(tmpDir, "dist", "cjs", "widget.cjs.development.js"))
		assert.Contains(t, dev, `require("react")`)
		assert.Contains(t, dev, "process.env.NODE_ENV")
	})

	t.Run("production compiles NODE_ENV away", func(t *testing.T) {
		prod := readFile(t, filepath.Join(tmpDir, "dist", "cjs", "widget.cjs.production.min.js"))
		assert.NotContains(t, prod, "process.env.NODE_ENV")
		assert.NotContains(t, prod, "widget running in development")
	})

	t.Run("legacy output has no optional chaining", func(t *testing.T) {
		legacy := readFile(t, filepath.Join(tmpDir, "dist", "widget.legacy-esm.js"))
		assert.NotContains(t, legacy, "?.")
		assert.NotContains(t, legacy, "??")
	})

	t.Run("shim points at both cjs builds", func(t *testing.T) {
		shim := readFile(t, filepath.Join(tmpDir, variants.ShimPath))
		assert.Equal(t, variants.IndexShim("widget"), shim)
	})

	t.Run("declarations only for standard esm", func(t *testing.T) {
		assert.Equal(t, int32(1), emitter.calls.Load())
	})
}

func TestRunner_BuildCleansOutput(t *testing.T) {
	tmpDir := setupProject(t)

	stale := filepath.Join(tmpDir, "dist", "cjs", "stale.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0700))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0600))

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir})
	_, err := New(Config{}).Build(context.Background(), descriptors)
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(tmpDir, "dist", "cjs", "widget.cjs.development.js"))
}

func TestRunner_BuildKeepsOutputInWatchMode(t *testing.T) {
	tmpDir := setupProject(t)

	stale := filepath.Join(tmpDir, "dist", "stale.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0700))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0600))

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir, Watch: true})
	_, err := New(Config{}).Build(context.Background(), descriptors)
	require.NoError(t, err)

	assert.FileExists(t, stale)
}

func TestRunner_BuildFailureSkipsShim(t *testing.T) {
	tmpDir := t.TempDir()

	descriptors := variants.Generate("widget", "./src/missing.ts", variants.Options{WorkingDir: tmpDir})
	_, err := New(Config{}).Build(context.Background(), descriptors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(variants.VariantCJSProduction))

	assert.NoFileExists(t, filepath.Join(tmpDir, variants.ShimPath))
}

func TestRunner_HookErrorFailsBuild(t *testing.T) {
	tmpDir := setupProject(t)

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir})
	descriptors[4].OnSuccess = func(context.Context) error {
		return errors.New("disk full")
	}

	_, err := New(Config{}).Build(context.Background(), descriptors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), string(variants.VariantCJSProduction))
}

func TestRunner_DeclarationErrorFailsBuild(t *testing.T) {
	tmpDir := setupProject(t)

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir})
	_, err := New(Config{Declarations: &fakeEmitter{err: errors.New("tsc exploded")}}).Build(context.Background(), descriptors[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tsc exploded")
}

func TestRunner_BuildWithConcurrencyAndMetafile(t *testing.T) {
	tmpDir := setupProject(t)
	metafile := true

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir, Metafile: &metafile})
	results, err := New(Config{Concurrency: 1}).Build(context.Background(), descriptors)
	require.NoError(t, err)

	for i, result := range results {
		assert.Equal(t, descriptors[i].Variant, result.Variant)
	}

	meta := readFile(t, filepath.Join(tmpDir, "dist", "cjs", "widget.cjs.production.meta.json"))
	assert.Contains(t, meta, `"outputs"`)
}

func TestRunner_BuildForwardsExtra(t *testing.T) {
	tmpDir := setupProject(t)

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{
		WorkingDir: tmpDir,
		Extra: map[string]any{
			"banner":  map[string]any{"js": "/* BANNER */"},
			"footer":  map[string]string{"js": "/* FOOTER */"},
			"publint": true,
		},
	})
	_, err := New(Config{}).Build(context.Background(), descriptors)
	require.NoError(t, err)

	for _, path := range []string{"dist/widget.mjs", "dist/cjs/widget.cjs.development.js"} {
		out := readFile(t, filepath.Join(tmpDir, path))
		assert.Contains(t, out, "/* BANNER */")
		assert.Contains(t, out, "/* FOOTER */")
	}
}

func TestRunner_BuildCancelled(t *testing.T) {
	tmpDir := setupProject(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir})
	_, err := New(Config{Concurrency: 1}).Build(ctx, descriptors)
	require.ErrorIs(t, err, context.Canceled)

	assert.NoFileExists(t, filepath.Join(tmpDir, "dist", "widget.mjs"))
	assert.NoFileExists(t, filepath.Join(tmpDir, variants.ShimPath))
}

func TestRunner_Watch(t *testing.T) {
	tmpDir := setupProject(t)

	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir, Watch: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(Config{}).Watch(ctx, descriptors)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(tmpDir, variants.ShimPath))
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestBuildOptions(t *testing.T) {
	descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{})

	t.Run("legacy esm", func(t *testing.T) {
		opts, err := BuildOptions(descriptors[1], "/work")
		require.NoError(t, err)

		assert.Equal(t, "/work", opts.AbsWorkingDir)
		assert.Equal(t, []api.EntryPoint{{InputPath: "./src/index.ts", OutputPath: "widget.legacy-esm"}}, opts.EntryPointsAdvanced)
		assert.Equal(t, api.FormatESModule, opts.Format)
		assert.Equal(t, api.ES2017, opts.Target)
		assert.Equal(t, map[string]string{".js": ".js"}, opts.OutExtension)
		assert.Equal(t, api.SourceMapLinked, opts.Sourcemap)
		assert.False(t, opts.MinifySyntax)
		assert.ElementsMatch(t, variants.Externals(), opts.External)
	})

	t.Run("cjs production", func(t *testing.T) {
		opts, err := BuildOptions(descriptors[4], "/work")
		require.NoError(t, err)

		assert.Equal(t, api.FormatCommonJS, opts.Format)
		assert.Equal(t, api.ESNext, opts.Target)
		assert.Equal(t, "dist/cjs", opts.Outdir)
		assert.True(t, opts.MinifyWhitespace)
		assert.True(t, opts.MinifyIdentifiers)
		assert.True(t, opts.MinifySyntax)
		assert.Equal(t, `"production"`, opts.Define["process.env.NODE_ENV"])
		assert.Equal(t, map[string]string{".js": ".min.js"}, opts.OutExtension)
	})

	t.Run("unknown target", func(t *testing.T) {
		d := descriptors[0]
		d.Target = "es3"
		_, err := BuildOptions(d, "/work")
		require.ErrorIs(t, err, ErrUnknownTarget)
	})

	t.Run("passthrough options", func(t *testing.T) {
		d := descriptors[0]
		d.Extra = map[string]any{
			"loader":    map[string]any{".svg": "text"},
			"jsx":       "automatic",
			"alias":     map[string]any{"lodash": "lodash-es"},
			"tsconfig":  "tsconfig.build.json",
			"keepNames": true,
			"platform":  "browser",
		}

		opts, err := BuildOptions(d, "/work")
		require.NoError(t, err)

		assert.Equal(t, map[string]api.Loader{".svg": api.LoaderText}, opts.Loader)
		assert.Equal(t, api.JSXAutomatic, opts.JSX)
		assert.Equal(t, map[string]string{"lodash": "lodash-es"}, opts.Alias)
		assert.Equal(t, "tsconfig.build.json", opts.Tsconfig)
		assert.True(t, opts.KeepNames)
		assert.Equal(t, api.PlatformBrowser, opts.Platform)
	})

	t.Run("invalid passthrough option", func(t *testing.T) {
		tests := []struct {
			name  string
			extra map[string]any
		}{
			{name: "banner not a map", extra: map[string]any{"banner": "/* x */"}},
			{name: "unknown loader", extra: map[string]any{"loader": map[string]any{".svg": "svgr"}}},
			{name: "unknown jsx mode", extra: map[string]any{"jsx": "react"}},
			{name: "keepNames not a bool", extra: map[string]any{"keepNames": "yes"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d := descriptors[0]
				d.Extra = tt.extra
				_, err := BuildOptions(d, "/work")
				require.ErrorIs(t, err, ErrInvalidOption)
			})
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		d := descriptors[0]
		d.Format = "iife"
		_, err := BuildOptions(d, "/work")
		require.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestUnsupportedExtra(t *testing.T) {
	assert.Empty(t, UnsupportedExtra(nil))
	assert.Equal(t, []string{"onSuccess", "publint"}, UnsupportedExtra(map[string]any{
		"banner":    map[string]any{"js": "/* x */"},
		"publint":   true,
		"onSuccess": "node scripts/post.js",
	}))
}

func TestCleanDirs(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("nested directories collapse into their parent", func(t *testing.T) {
		descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir})
		dirs, err := cleanDirs(descriptors)
		require.NoError(t, err)

		wd, err := filepath.Abs(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(wd, "dist")}, dirs)
	})

	t.Run("sibling with shared prefix is kept", func(t *testing.T) {
		descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir})
		descriptors[1].OutDir = "dist-legacy"
		dirs, err := cleanDirs(descriptors)
		require.NoError(t, err)
		assert.Len(t, dirs, 2)
	})

	t.Run("watch mode cleans nothing", func(t *testing.T) {
		descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir, Watch: true})
		dirs, err := cleanDirs(descriptors)
		require.NoError(t, err)
		assert.Empty(t, dirs)
	})

	t.Run("refuses the working directory", func(t *testing.T) {
		outDir := "."
		descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir, OutDir: &outDir})
		_, err := cleanDirs(descriptors)
		require.ErrorIs(t, err, ErrUnsafeClean)
	})

	t.Run("refuses directories outside the working directory", func(t *testing.T) {
		outDir := "../elsewhere"
		descriptors := variants.Generate("widget", "./src/index.ts", variants.Options{WorkingDir: tmpDir, OutDir: &outDir})
		_, err := cleanDirs(descriptors)
		require.ErrorIs(t, err, ErrUnsafeClean)
	})
}
