package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/smartdeb/errors"
	"go.yaml.in/yaml/v3"
)

const opLoad = "manifest.load"

// Load reads a descriptor file.
// It supports both JSON and YAML formats based on the file extension.
func Load(path string) (*Descriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.DescriptorLoad, opLoad, path, err, "reading descriptor")
	}
	d, err := Decode(path, content)
	if err != nil {
		return nil, errors.Wrap(errors.DescriptorLoad, opLoad, path, err, "parsing descriptor")
	}
	return d, nil
}

// Decode parses JSON or YAML based on the extension of name, keeping field order.
// The document must be a mapping.
func Decode(name string, data []byte) (*Descriptor, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".yaml" || ext == ".yml" {
		return decodeYAML(data)
	}
	return decodeJSON(data)
}

func decodeYAML(data []byte) (*Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	v, err := fromNode(doc.Content[0])
	if err != nil {
		return nil, err
	}
	d, ok := v.(*Descriptor)
	if !ok {
		return nil, fmt.Errorf("line %d: top level must be a mapping", doc.Content[0].Line)
	}
	return d, nil
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := fromNode(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		d := NewDescriptor()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			d.Set(key.Value, v)
		}
		return d, nil
	case yaml.AliasNode:
		return fromNode(n.Alias)
	default:
		return nil, fmt.Errorf("line %d: unsupported node", n.Line)
	}
}

func decodeJSON(data []byte) (*Descriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after the top level value at offset %d", dec.InputOffset())
	}
	d, ok := v.(*Descriptor)
	if !ok {
		return nil, fmt.Errorf("top level must be an object")
	}
	return d, nil
}

// decodeJSONValue reads one value token by token, so object keys keep their order.
func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			d := NewDescriptor()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, fmt.Errorf("field %q: %w", key, err)
				}
				d.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return d, nil
		case '[':
			list := []any{}
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		return t.String(), nil
	default:
		// string, bool or nil
		return t, nil
	}
}
