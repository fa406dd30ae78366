package bundler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wolfeidau/tsbundle/internal/variants"
)

// DeclarationEmitter writes .d.ts files for a descriptor. esbuild strips
// types without checking them, so declarations come from somewhere else.
type DeclarationEmitter interface {
	Emit(ctx context.Context, workingDir string, d variants.Descriptor) error
}

// TSC emits declarations by running the TypeScript compiler, then writes
// <OutDir>/<EntryName>.d.ts re-exporting the entry's declarations so they sit
// next to the bundled output.
type TSC struct {
	// Command is the compiler binary, e.g. "tsc" or "node_modules/.bin/tsc"
	Command string
	// Project is the tsconfig used when it exists in the working directory,
	// defaults to tsconfig.json
	Project string
	// Args are appended after the generated flags
	Args []string
}

func (t TSC) Emit(ctx context.Context, workingDir string, d variants.Descriptor) error {
	entry := d.EntryPath()
	rootDir := filepath.Dir(entry)

	args := []string{
		"--declaration",
		"--emitDeclarationOnly",
		"--outDir", d.OutDir,
		"--rootDir", rootDir,
	}

	// files on the command line make tsc ignore tsconfig.json
	project := cond(t.Project == "", "tsconfig.json", t.Project)
	if _, err := os.Stat(filepath.Join(workingDir, project)); err == nil {
		args = append([]string{"--project", project}, args...)
		args = append(args, t.Args...)
	} else {
		args = append(args, t.Args...)
		args = append(args, entry)
	}

	// #nosec G204 - command comes from the operator's own flags
	cmd := exec.CommandContext(ctx, t.Command, args...)
	cmd.Dir = workingDir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", t.Command, err, strings.TrimSpace(output.String()))
	}

	return writeDeclarationIndex(workingDir, d)
}

// writeDeclarationIndex points <EntryName>.d.ts at the declarations tsc
// emitted for the entry, which land at <OutDir>/<entry base>.d.ts under rootDir.
func writeDeclarationIndex(workingDir string, d variants.Descriptor) error {
	base := strings.TrimSuffix(filepath.Base(d.EntryPath()), filepath.Ext(d.EntryPath()))
	if base == d.EntryName() {
		return nil
	}

	contents := fmt.Sprintf("export * from './%s.js'\n", base)
	path := filepath.Join(workingDir, d.OutDir, d.EntryName()+".d.ts")

	// #nosec G306 - declarations are published alongside the package
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		return fmt.Errorf("failed to write declarations for %s: %w", d.EntryName(), err)
	}

	return nil
}
