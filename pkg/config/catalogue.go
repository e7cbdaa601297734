package config

import (
	"fmt"
	"path/filepath"

	"github.com/cuemby/fsbench/pkg/types"
	"gopkg.in/yaml.v3"
)

// Catalogue is the ordered device catalogue: a YAML mapping of
// device path -> {class, label}. Entries keep document order.
type Catalogue struct {
	Devices []types.Device

	// Warnings holds one message per skipped entry
	Warnings []string
}

type catalogueEntry struct {
	Class string `yaml:"class"`
	Label string `yaml:"label,omitempty"`
}

// UnmarshalYAML decodes entry by entry so one bad entry is skipped rather
// than failing the whole document.
func (c *Catalogue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: devices must map device path to {class, label}", node.Line)
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		path := key.Value

		var entry catalogueEntry
		if err := value.Decode(&entry); err != nil {
			c.warnf("line %d: device %q: %v", key.Line, path, err)
			continue
		}
		if !filepath.IsAbs(path) {
			c.warnf("line %d: device %q: path must be absolute", key.Line, path)
			continue
		}
		class, err := types.ParseDeviceClass(entry.Class)
		if err != nil {
			c.warnf("line %d: device %q: %v", key.Line, path, err)
			continue
		}
		if entry.Label != "" {
			if err := types.ValidateLabel(entry.Label); err != nil {
				c.warnf("line %d: device %q: %v", key.Line, path, err)
				continue
			}
		}
		if seen[path] {
			c.warnf("line %d: device %q listed twice, keeping the first entry", key.Line, path)
			continue
		}
		seen[path] = true

		c.Devices = append(c.Devices, types.Device{
			Path:  path,
			Class: class,
			Label: entry.Label,
		})
	}
	return nil
}

// MarshalYAML emits a mapping node so catalogue order survives a round trip
func (c Catalogue) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range c.Devices {
		var value yaml.Node
		if err := value.Encode(catalogueEntry{Class: string(d.Class), Label: d.Label}); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: d.Path},
			&value,
		)
	}
	return node, nil
}

func (c *Catalogue) warnf(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}
