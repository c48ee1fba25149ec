package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// exportDocument is the on-disk shape of an exported inventory.
type exportDocument struct {
	Configs []Config `yaml:"configs"`
}

// ExportYAML writes the given configurations as a YAML document.
func ExportYAML(w io.Writer, configs []Config) error {
	doc := exportDocument{Configs: configs}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode configurations: %w", err)
	}
	return enc.Close()
}

// ImportYAML reads a YAML document and validates every configuration in it.
// IDs present in the document are ignored; the store assigns new ones.
func ImportYAML(r io.Reader) ([]Config, error) {
	var doc exportDocument
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode configurations: %w", err)
	}

	for i := range doc.Configs {
		doc.Configs[i].ID = 0
		if doc.Configs[i].LocalAddress == "" {
			doc.Configs[i].LocalAddress = "127.0.0.1"
		}
		if err := doc.Configs[i].Validate(); err != nil {
			return nil, fmt.Errorf("configuration %d in import: %w", i+1, err)
		}
	}
	return doc.Configs, nil
}
