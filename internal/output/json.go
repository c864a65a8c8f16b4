package output

import (
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// JSONFormatter renders report values as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format renders the report value as JSON.
func (f *JSONFormatter) Format(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(report.Value, "", "  ")
	} else {
		data, err = json.Marshal(report.Value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// YAMLFormatter renders report values as YAML using their JSON field names.
type YAMLFormatter struct{}

// Format renders the report value as block-style YAML.
func (f *YAMLFormatter) Format(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	data, err := json.Marshal(report.Value)
	if err != nil {
		return "", err
	}

	// JSON is valid YAML; decoding into a node keeps key order.
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}
	blockStyle(&node)

	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func blockStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		blockStyle(child)
	}
}
