package kernel

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a serialised kernel pool snapshot:
//
//	variables:
//	  INS-236820_BORESIGHT: [512.5, 512.5, 1.0]
//	  INS-236820_FPUBIN_START_SAMPLE: 9
//	strings:
//	  NAIF_BODY_NAME: [MSGR_MDIS_NAC]
//	bodies:
//	  MESSENGER: -236
type Document struct {
	Variables map[string]Values  `yaml:"variables"`
	Strings   map[string]Strings `yaml:"strings"`
	Bodies    map[string]int     `yaml:"bodies"`
}

// Values accepts either a scalar or a sequence of numbers.
type Values []float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Values{f}
		return nil
	case yaml.SequenceNode:
		var fs []float64
		if err := node.Decode(&fs); err != nil {
			return err
		}
		*v = fs
		return nil
	default:
		return fmt.Errorf("line %d: pool variable must be a number or a list of numbers", node.Line)
	}
}

// Strings accepts either a scalar or a sequence of strings.
type Strings []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Strings) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = Strings{node.Value}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*s = ss
		return nil
	default:
		return fmt.Errorf("line %d: pool string must be a string or a list of strings", node.Line)
	}
}

// LoadDocument decodes a YAML or JSON pool document.
func LoadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("decode pool document: %w", err)
	}
	return &doc, nil
}

// ReadDocumentFile loads a pool document from disk.
func ReadDocumentFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := LoadDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
