package variants

import (
	"fmt"
	"os"
	"path/filepath"
)

// ShimPath is where the CommonJS index shim is written, relative to the working directory.
const ShimPath = "dist/cjs/index.js"

const indexShimTemplate = `'use strict'
if (process.env.NODE_ENV === 'production') {
  module.exports = require('./%[1]s.cjs.production.min.js')
} else {
  module.exports = require('./%[1]s.cjs.development.js')
}
`

// IndexShim returns the CommonJS dispatcher which picks the production or
// development build of name from NODE_ENV at require time.
func IndexShim(name string) string {
	return fmt.Sprintf(indexShimTemplate, name)
}

// WriteIndexShim overwrites ShimPath under workingDir with the index shim for name.
// An empty workingDir means the process working directory.
func WriteIndexShim(workingDir, name string) error {
	path := filepath.Join(workingDir, ShimPath)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create shim directory: %w", err)
	}

	// #nosec G306 - the shim is published alongside the package
	if err := os.WriteFile(path, []byte(IndexShim(name)), 0644); err != nil {
		return fmt.Errorf("failed to write index shim: %w", err)
	}

	return nil
}
