// ABOUTME: Pipeline definition document: the persisted wire shape with JSON and YAML round-tripping.
// ABOUTME: Converts documents into the engine's graph model for execution.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/flumehq/flume/engine"
)

// Definition is the persisted description of one pipeline.
type Definition struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes      []NodeDef `json:"nodes" yaml:"nodes"`
	Edges      []EdgeDef `json:"edges,omitempty" yaml:"edges,omitempty"`
	MemoryKeys []string  `json:"memory_keys,omitempty" yaml:"memory_keys,omitempty"`
}

// NodeDef describes one block invocation.
type NodeDef struct {
	ID      string         `json:"id" yaml:"id"`
	BlockID string         `json:"block_id" yaml:"block_id"`
	Inputs  map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Config  map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// EdgeDef describes a dependency between two nodes, optionally conditional.
type EdgeDef struct {
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Parse decodes a definition from JSON or YAML, sniffing the format from the
// first non-whitespace byte.
func Parse(data []byte) (*Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty pipeline definition")
	}
	if trimmed[0] == '{' {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseJSON decodes a JSON pipeline definition.
func ParseJSON(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode pipeline json: %w", err)
	}
	return &def, nil
}

// ParseYAML decodes a YAML pipeline definition. Nested input values decode to
// the same map[string]any / []any shapes the JSON path produces.
func ParseYAML(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode pipeline yaml: %w", err)
	}
	return &def, nil
}

// EncodeJSON serializes the definition as indented JSON.
func (d *Definition) EncodeJSON() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode pipeline json: %w", err)
	}
	return data, nil
}

// EncodeYAML serializes the definition as YAML.
func (d *Definition) EncodeYAML() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode pipeline yaml: %w", err)
	}
	return data, nil
}

// Graph converts the definition into the engine's executable graph model.
func (d *Definition) Graph() *engine.Graph {
	g := &engine.Graph{
		PipelineID: d.ID,
		MemoryKeys: d.MemoryKeys,
	}
	for _, n := range d.Nodes {
		g.Nodes = append(g.Nodes, &engine.Node{
			ID:      n.ID,
			BlockID: n.BlockID,
			Inputs:  n.Inputs,
			Config:  n.Config,
		})
	}
	for _, e := range d.Edges {
		g.Edges = append(g.Edges, &engine.Edge{
			From:      e.From,
			To:        e.To,
			Condition: e.Condition,
		})
	}
	return g
}
