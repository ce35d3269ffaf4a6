// Package configinfra loads declarative plugin manifests. A manifest is the
// bulk-registration surface: every entry becomes one registered source.
package configinfra

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
)

// DefaultManifestName is looked up in the working directory when no
// manifest path is given.
const DefaultManifestName = "plugvine.yaml"

// ManifestLoader reads plugin sources from a YAML manifest. Entries may be
// bare identifier strings, single-plugin mappings, or nested sequences,
// mirroring the source shapes the engine accepts.
type ManifestLoader struct{}

// NewManifestLoader creates a manifest loader.
func NewManifestLoader() *ManifestLoader { return &ManifestLoader{} }

type manifest struct {
	Plugins []yaml.Node `yaml:"plugins"`
}

type manifestEntry struct {
	Source   string         `yaml:"source"`
	Version  string         `yaml:"version"`
	Config   map[string]any `yaml:"config"`
	Events   []string       `yaml:"events"`
	Requires []yaml.Node    `yaml:"requires"`
}

// Load parses the manifest at path. Malformed entries are reported through
// the returned error while every well-formed entry still loads, so one bad
// entry never blocks the rest.
func (l *ManifestLoader) Load(path string) ([]plugin.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	var (
		sources []plugin.Source
		errs    []error
	)
	for idx, node := range m.Plugins {
		src, err := decodeSource(&node)
		if err != nil {
			errs = append(errs, fmt.Errorf("plugins[%d]: %w", idx, err))
			continue
		}
		sources = append(sources, src)
	}
	return sources, errors.Join(errs...)
}

func decodeSource(node *yaml.Node) (plugin.Source, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return plugin.Source{}, err
		}
		if raw == "" {
			return plugin.Source{}, errors.New("empty plugin identifier")
		}
		return plugin.Identifier(raw), nil

	case yaml.MappingNode:
		var entry manifestEntry
		if err := node.Decode(&entry); err != nil {
			return plugin.Source{}, err
		}
		if entry.Source == "" {
			return plugin.Source{}, errors.New("mapping entry is missing a source field")
		}
		single := plugin.Single{
			Source:  entry.Source,
			Version: entry.Version,
			Config:  entry.Config,
			Events:  entry.Events,
		}
		for i, req := range entry.Requires {
			sub, err := decodeSource(&req)
			if err != nil {
				return plugin.Source{}, fmt.Errorf("requires[%d]: %w", i, err)
			}
			single.Requires = append(single.Requires, sub)
		}
		return plugin.SinglePlugin(single), nil

	case yaml.SequenceNode:
		var members []plugin.Source
		for i := range node.Content {
			sub, err := decodeSource(node.Content[i])
			if err != nil {
				return plugin.Source{}, fmt.Errorf("[%d]: %w", i, err)
			}
			members = append(members, sub)
		}
		return plugin.Group(members...), nil

	default:
		return plugin.Source{}, fmt.Errorf("unsupported entry kind at line %d", node.Line)
	}
}
