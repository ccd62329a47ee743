package storage

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vango-dev/vstore/pkg/value"
	"gopkg.in/yaml.v3"
)

// Codec converts values to and from their stored string form.
type Codec interface {
	Name() string
	Encode(v value.Value) (string, error)
	Decode(s string) (value.Value, error)
}

// JSON is the default codec. Record key order is preserved.
var JSON Codec = jsonCodec{}

// YAML stores values as YAML documents.
var YAML Codec = yamlCodec{}

// CodecByName returns the codec registered under name ("json" or "yaml").
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return nil, fmt.Errorf("storage: unknown codec %q", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(v value.Value) (string, error) {
	b, err := value.Encode(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (jsonCodec) Decode(s string) (value.Value, error) {
	return value.Decode([]byte(s))
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Encode(v value.Value) (string, error) {
	node, err := value.ToYAMLNode(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (yamlCodec) Decode(s string) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, fmt.Errorf("storage: empty YAML document")
	}
	return value.FromYAMLNode(&doc)
}
