// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperviz/internal/ingest"
	"github.com/pdiddy/paperviz/pkg/types"
)

// Manifest is the YAML description of a batch.
//
//	defaults:
//	  kind: slides
//	  reasoning: false
//	jobs:
//	  - name: attention
//	    files: [papers/attention.pdf]
//	  - name: bert-map
//	    kind: citation-map
//	    text: "BERT and its successors"
type Manifest struct {
	Defaults ManifestJob   `yaml:"defaults"`
	Entries  []ManifestJob `yaml:"jobs"`
}

// ManifestJob is one entry in a manifest. Unset fields take the defaults.
type ManifestJob struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Text      string   `yaml:"text"`
	Files     []string `yaml:"files"`
	Reasoning *bool    `yaml:"reasoning"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Entries) == 0 {
		return nil, fmt.Errorf("manifest %s has no jobs", path)
	}
	return &m, nil
}

// Jobs resolves the manifest into runnable jobs. Relative file paths are
// resolved against baseDir. Job names default to the first file's base name
// or the job's position.
func (m *Manifest) Jobs(baseDir string) ([]Job, error) {
	jobs := make([]Job, 0, len(m.Entries))
	seen := make(map[string]bool, len(m.Entries))
	for i, mj := range m.Entries {
		kindStr := mj.Kind
		if kindStr == "" {
			kindStr = m.Defaults.Kind
		}
		kind, err := types.ParseOutputKind(kindStr)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}

		reasoning := false
		switch {
		case mj.Reasoning != nil:
			reasoning = *mj.Reasoning
		case m.Defaults.Reasoning != nil:
			reasoning = *m.Defaults.Reasoning
		}

		var inputs []*ingest.Input
		for _, f := range mj.Files {
			if !filepath.IsAbs(f) {
				f = filepath.Join(baseDir, f)
			}
			in, err := ingest.File(f)
			if err != nil {
				return nil, fmt.Errorf("job %d: %w", i+1, err)
			}
			inputs = append(inputs, in)
		}
		text, att, err := ingest.Merge(inputs, mj.Text)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}

		name := mj.Name
		if name == "" && len(mj.Files) > 0 {
			base := filepath.Base(mj.Files[0])
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if name == "" {
			name = fmt.Sprintf("job-%d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("job %d: duplicate name %q", i+1, name)
		}
		seen[name] = true

		jobs = append(jobs, Job{
			Name: name,
			Request: types.GenerationRequest{
				Text:         text,
				Attachment:   att,
				Kind:         kind,
				UseReasoning: reasoning,
			},
		})
	}
	return jobs, nil
}
