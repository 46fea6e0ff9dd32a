// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes the matching records to dir/export.yaml and returns the
// path. Filters follow List; the default limit does not apply.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	recs, err := s.exportRecords(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.yaml")
	data, err := yaml.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the matching records to dir/export.json and returns the
// path.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	recs, err := s.exportRecords(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.json")
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportRecords(ctx context.Context, opts QueryOptions) ([]*Record, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = exportLimit
	}
	recs, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if recs == nil {
		recs = []*Record{}
	}
	return recs, nil
}
