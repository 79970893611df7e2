package stream

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assist/chat-api/pkg/chatwire"
)

func newTestTransformer() *Transformer {
	return NewTransformer(zerolog.Nop())
}

func TestTransformTextDelta(t *testing.T) {
	tr := newTestTransformer()

	env := tr.Transform(json.RawMessage(`{"delta":{"content":"Hello wor","final":false}}`))
	require.NotNil(t, env)
	assert.Equal(t, chatwire.TypeChunk, env.Type)
	assert.Equal(t, chatwire.MessageTypeText, env.MessageType)
	assert.Equal(t, 0, *env.Sequence)

	var payload chatwire.TextPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "Hello wor", payload.Content)
	assert.False(t, payload.IsFinal)

	env = tr.Transform(json.RawMessage(`{"delta":{"content":"Hello world","final":true}}`))
	require.NotNil(t, env)
	assert.Equal(t, 1, *env.Sequence)
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.True(t, payload.IsFinal)
}

func TestTransformGeneratedQuery(t *testing.T) {
	tr := newTestTransformer()

	raw := json.RawMessage(`{"systemMessage":{"data":{"generatedSql":"SELECT 1","dialect":"postgres"}}}`)
	env := tr.Transform(raw)
	require.NotNil(t, env)
	assert.Equal(t, chatwire.MessageTypeQuery, env.MessageType)

	var payload chatwire.QueryPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "SELECT 1", payload.Query)
	assert.Equal(t, "postgres", payload.Dialect)
}

func TestTransformTabularResult(t *testing.T) {
	tr := newTestTransformer()

	raw := json.RawMessage(`{"systemMessage":{"data":{"result":{
		"name":"revenue",
		"schema":[{"name":"region","type":"string"},{"name":"total","type":"number"}],
		"data":[["north",42.5],["south",17]],
		"executionTime":"120ms"
	}}}}`)
	env := tr.Transform(raw)
	require.NotNil(t, env)
	assert.Equal(t, chatwire.MessageTypeTabularResult, env.MessageType)

	var payload chatwire.TabularResultPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "revenue", payload.Name)
	require.Len(t, payload.Columns, 2)
	assert.Equal(t, "region", payload.Columns[0].Name)
	assert.Len(t, payload.Rows, 2)
	assert.Equal(t, "120ms", payload.ExecutionTime)
}

func TestTransformTabularResultMissingFieldsDropped(t *testing.T) {
	tr := newTestTransformer()

	// no name
	env := tr.Transform(json.RawMessage(`{"systemMessage":{"data":{"result":{"schema":[],"data":[]}}}}`))
	assert.Nil(t, env)
	assert.Equal(t, 0, tr.ChunkCount())
}

func TestTransformChart(t *testing.T) {
	tr := newTestTransformer()

	raw := json.RawMessage(`{"systemMessage":{"chart":{"result":{
		"vegaConfig":{"mark":"arc","data":{"values":[]}},
		"title":"Revenue share",
		"description":"By region"
	}}}}`)
	env := tr.Transform(raw)
	require.NotNil(t, env)
	assert.Equal(t, chatwire.MessageTypeChart, env.MessageType)

	var payload chatwire.ChartPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "pie", payload.Metadata.ChartType)
	assert.Equal(t, "Revenue share", payload.Metadata.Title)
	assert.Equal(t, "container", payload.RenderingOptions.Width)
	assert.Equal(t, 400, payload.RenderingOptions.Height)
	assert.Equal(t, "default", payload.RenderingOptions.Theme)
}

func TestChartTypeFromSpec(t *testing.T) {
	cases := []struct {
		name string
		spec map[string]any
		want string
	}{
		{"arc becomes pie", map[string]any{"mark": "arc"}, "pie"},
		{"pie stays pie", map[string]any{"mark": "pie"}, "pie"},
		{"point becomes scatter", map[string]any{"mark": "point"}, "scatter"},
		{"bar stays bar", map[string]any{"mark": "bar"}, "bar"},
		{"object mark", map[string]any{"mark": map[string]any{"type": "line"}}, "line"},
		{"layer spec", map[string]any{"layer": []any{}}, "layered"},
		{"facet spec", map[string]any{"facet": map[string]any{}}, "faceted"},
		{"missing mark", map[string]any{}, "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, chartTypeFromSpec(tc.spec))
		})
	}
}

func TestTransformNarrative(t *testing.T) {
	tr := newTestTransformer()

	raw := json.RawMessage(`{"systemMessage":{"text":{
		"parts":["First insight.","Second insight."],
		"document_references":[{"title":"Q3 Report","filename":"q3.pdf","url":"https://docs/q3.pdf","type":"pdf"}]
	}}}`)
	env := tr.Transform(raw)
	require.NotNil(t, env)
	assert.Equal(t, chatwire.MessageTypeNarrative, env.MessageType)

	var payload chatwire.NarrativePayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "First insight.\nSecond insight.", payload.Text)
	require.Len(t, payload.DocumentReferences, 1)
	assert.Equal(t, "Q3 Report", payload.DocumentReferences[0].Title)
}

func TestTransformInBandErrorEvent(t *testing.T) {
	tr := newTestTransformer()

	env := tr.Transform(json.RawMessage(`{"error":{"message":"engine exploded"}}`))
	require.NotNil(t, env)
	assert.Equal(t, chatwire.TypeError, env.Type)
	assert.Nil(t, env.Sequence)

	payload, err := chatwire.DecodeError(env.Data)
	require.NoError(t, err)
	assert.Equal(t, "engine exploded", payload.Message)

	// Error envelopes never consume a sequence number.
	assert.Equal(t, 0, tr.ChunkCount())
}

func TestTransformInBandErrorEventWithoutMessage(t *testing.T) {
	tr := newTestTransformer()

	env := tr.Transform(json.RawMessage(`{"error":{}}`))
	require.NotNil(t, env)
	assert.Equal(t, chatwire.TypeError, env.Type)

	payload, err := chatwire.DecodeError(env.Data)
	require.NoError(t, err)
	assert.NotEmpty(t, payload.Message)
}

func TestTransformDropsUnparseableWithoutSequence(t *testing.T) {
	tr := newTestTransformer()

	assert.Nil(t, tr.Transform(json.RawMessage(`not json at all`)))
	assert.Nil(t, tr.Transform(json.RawMessage(`{"systemMessage":{}}`)))
	assert.Equal(t, 0, tr.ChunkCount())

	// The next valid event still gets sequence zero.
	env := tr.Transform(json.RawMessage(`{"delta":{"content":"hi","final":true}}`))
	require.NotNil(t, env)
	assert.Equal(t, 0, *env.Sequence)
	assert.Equal(t, 1, tr.ChunkCount())
}
