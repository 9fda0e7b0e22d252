package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// FormatText renders nested YAML-style text.
	FormatText = "text"
	// FormatJSON renders indented JSON.
	FormatJSON = "json"
)

// Render writes v to w in the requested format. Nothing is written when
// rendering fails, so callers never emit half a document.
func Render(w io.Writer, v Value, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatText, "":
		out, err = Text(v)
	case FormatJSON:
		out, err = indentedJSON(v)
	default:
		return errors.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(out)
	return errors.Wrap(err, "failed to write result")
}

// Text renders v as YAML-style nested text terminated by a newline.
func Text(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v.YAMLNode()); err != nil {
		return nil, errors.Wrap(err, "failed to encode result as text")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode result as text")
	}
	return buf.Bytes(), nil
}

func indentedJSON(v Value) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode result as json")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, errors.Wrap(err, "failed to indent json")
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// YAMLNode converts v into a yaml.v3 node tree, keeping field order.
func (v Value) YAMLNode() *yaml.Node {
	switch v.Kind {
	case KindScalar:
		return scalarNode(v.Scalar)
	case KindSequence:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(v.Items) == 0 {
			node.Style = yaml.FlowStyle
		}
		for _, item := range v.Items {
			node.Content = append(node.Content, item.YAMLNode())
		}
		return node
	case KindMapping:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if len(v.Fields) == 0 {
			node.Style = yaml.FlowStyle
		}
		for _, f := range v.Fields {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
				f.Value.YAMLNode(),
			)
		}
		return node
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func scalarNode(s any) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode}
	switch t := s.(type) {
	case nil:
		node.Tag, node.Value = "!!null", "null"
	case string:
		node.Tag, node.Value = "!!str", t
	case bool:
		node.Tag, node.Value = "!!bool", strconv.FormatBool(t)
	case float32:
		node.Tag, node.Value = "!!float", formatFloat(float64(t))
	case float64:
		node.Tag, node.Value = "!!float", formatFloat(t)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		node.Tag, node.Value = "!!int", fmt.Sprint(t)
	default:
		node.Tag, node.Value = "!!str", fmt.Sprint(t)
	}
	return node
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		// keep 1.0 recognisable as a float
		s += ".0"
	}
	return s
}

// MarshalJSON encodes v with mapping fields in their stored order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindScalar:
		if s, ok := nonFinite(v.Scalar); ok {
			buf.WriteString(s)
			return nil
		}
		raw, err := json.Marshal(v.Scalar)
		if err != nil {
			return err
		}
		buf.Write(raw)
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
	return nil
}

// nonFinite spells NaN and the infinities as JSON strings, which encoding/json
// refuses to emit as numbers.
func nonFinite(s any) (string, bool) {
	var f float64
	switch n := s.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return "", false
	}
	switch {
	case math.IsNaN(f):
		return `"NaN"`, true
	case math.IsInf(f, 1):
		return `"Infinity"`, true
	case math.IsInf(f, -1):
		return `"-Infinity"`, true
	default:
		return "", false
	}
}
