package payload

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDecoded(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    any
		expected Value
	}{
		{"nil", nil, Null()},
		{"string", "ok", Scalar("ok")},
		{"int64", int64(42), Scalar(int64(42))},
		{"bool", true, Scalar(true)},
		{"bytes", []byte("hi"), Scalar("aGk=")},
		{"time", ts, Scalar("2024-03-01T12:00:00Z")},
		{"json integer", json.Number("7"), Scalar(int64(7))},
		{"json float", json.Number("0.5"), Scalar(0.5)},
		{"empty sequence", []any{}, Sequence()},
		{"typed slice", []float64{1.5, 2}, Sequence(Scalar(1.5), Scalar(float64(2)))},
		{
			"mapping keys sorted",
			map[string]any{"status": "success", "data": []any{int64(1)}},
			Mapping(
				Field{Key: "data", Value: Sequence(Scalar(int64(1)))},
				Field{Key: "status", Value: Scalar("success")},
			),
		},
		{
			"typed map",
			map[string]int{"b": 2, "a": 1},
			Mapping(Field{Key: "a", Value: Scalar(1)}, Field{Key: "b", Value: Scalar(2)}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromDecoded(tt.input))
		})
	}
}

func TestFromDecoded_SequenceKeepsOrder(t *testing.T) {
	v := FromDecoded([]any{"third", "first", "second"})

	require.Equal(t, KindSequence, v.Kind)
	require.Len(t, v.Items, 3)
	assert.Equal(t, "third", v.Items[0].Scalar)
	assert.Equal(t, "first", v.Items[1].Scalar)
	assert.Equal(t, "second", v.Items[2].Scalar)
}

func TestValue_GetAndLen(t *testing.T) {
	v := FromDecoded(map[string]any{"status": "success", "data": []any{1, 2, 3}})

	status, ok := v.Get("status")
	require.True(t, ok)
	assert.Equal(t, "success", status.Scalar)

	data, ok := v.Get("data")
	require.True(t, ok)
	assert.Equal(t, 3, data.Len())

	_, ok = v.Get("missing")
	assert.False(t, ok)

	_, ok = Scalar("x").Get("status")
	assert.False(t, ok)
	assert.Equal(t, 0, Null().Len())
	assert.True(t, Null().IsNull())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "null", KindNull.String())
	assert.Equal(t, "scalar", KindScalar.String())
	assert.Equal(t, "sequence", KindSequence.String())
	assert.Equal(t, "mapping", KindMapping.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestRender_Text(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"null", Null(), "null\n"},
		{"string", Scalar("success"), "success\n"},
		{"numeric string stays quoted", Scalar("42"), "\"42\"\n"},
		{"int", Scalar(int64(42)), "42\n"},
		{"whole float", Scalar(float64(1)), "1.0\n"},
		{"empty sequence", Sequence(), "[]\n"},
		{"empty mapping", Mapping(), "{}\n"},
		{
			"flat mapping",
			Mapping(Field{Key: "name", Value: Scalar("pick")}, Field{Key: "id", Value: Scalar(int64(3))}),
			"name: pick\nid: 3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, tt.value, FormatText))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestRender_TextNested(t *testing.T) {
	v := FromDecoded(map[string]any{
		"status": "success",
		"data":   []any{0.5, 0.0, -1.0107421875},
	})

	out, err := Text(v)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "status: success")
	assert.Contains(t, text, "data:")
	assert.Contains(t, text, "- 0.5")
	assert.Contains(t, text, "- -1.0107421875")
	assert.Less(t, strings.Index(text, "0.5"), strings.Index(text, "-1.0107421875"))
}

func TestRender_JSON(t *testing.T) {
	v := Sequence(
		Mapping(Field{Key: "z", Value: Scalar("last")}, Field{Key: "a", Value: Null()}),
		Scalar(int64(2)),
	)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, v, FormatJSON))

	expected := "[\n  {\n    \"z\": \"last\",\n    \"a\": null\n  },\n  2\n]\n"
	assert.Equal(t, expected, buf.String())
}

func TestRender_JSONNonFinite(t *testing.T) {
	v := Sequence(
		Scalar(math.NaN()),
		Scalar(math.Inf(1)),
		Scalar(float32(math.Inf(-1))),
		Scalar(0.5),
	)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, v, FormatJSON))
	assert.Equal(t, "[\n  \"NaN\",\n  \"Infinity\",\n  \"-Infinity\",\n  0.5\n]\n", buf.String())
}

func TestRender_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Null(), "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported output format "xml"`)
	assert.Empty(t, buf.String())
}
