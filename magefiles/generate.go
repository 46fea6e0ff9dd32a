//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// schemaDir holds the exported structured-output contracts.
const schemaDir = "docs/schemas"

var structuredKinds = []string{"slides", "poster", "diagram", "citation-map"}

// Schemas writes the JSON Schema for every structured kind to docs/schemas/.
func Schemas() error {
	mg.Deps(Build)
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", schemaDir, err)
	}
	bin := filepath.Join(binDir, binName)
	for _, kind := range structuredKinds {
		out, err := sh.Output(bin, "schema", kind)
		if err != nil {
			return fmt.Errorf("schema %s: %w", kind, err)
		}
		path := filepath.Join(schemaDir, kind+".json")
		if err := os.WriteFile(path, []byte(strings.TrimSpace(out)+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Println("  ", path)
	}
	return nil
}

// Batch runs every manifest in manifests/ through the CLI, writing
// Markdown outlines to output/.
func Batch() error {
	mg.Deps(Build)
	manifests, err := filepath.Glob(filepath.Join("manifests", "*.yaml"))
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		fmt.Println("[batch] No manifests in manifests/.")
		return nil
	}
	bin := filepath.Join(binDir, binName)
	for _, m := range manifests {
		fmt.Printf("[batch] %s\n", m)
		if err := sh.RunV(bin, "batch", m, "--format", "markdown"); err != nil {
			return fmt.Errorf("batch %s: %w", m, err)
		}
	}
	return nil
}
