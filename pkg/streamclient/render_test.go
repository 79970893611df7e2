package streamclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assist/chat-api/pkg/chatwire"
)

func chunkEnvelope(t *testing.T, seq int, messageType chatwire.MessageType, payload any) *chatwire.Envelope {
	t.Helper()
	env, err := chatwire.NewChunk(seq, messageType, payload)
	require.NoError(t, err)
	return env
}

func TestTranscriptTextOverwritesInPlace(t *testing.T) {
	transcript := NewTranscript()

	require.NoError(t, transcript.Apply(chunkEnvelope(t, 0, chatwire.MessageTypeText,
		chatwire.TextPayload{Content: "Revenue", IsFinal: false})))
	require.NoError(t, transcript.Apply(chunkEnvelope(t, 1, chatwire.MessageTypeText,
		chatwire.TextPayload{Content: "Revenue grew 12%", IsFinal: true})))

	// Cumulative text chunks never stack; the latest wins.
	assert.Equal(t, "Revenue grew 12%", transcript.String())
}

func TestTranscriptTextBlockKeepsPosition(t *testing.T) {
	transcript := NewTranscript()

	require.NoError(t, transcript.Apply(chunkEnvelope(t, 0, chatwire.MessageTypeText,
		chatwire.TextPayload{Content: "draft"})))
	require.NoError(t, transcript.Apply(chunkEnvelope(t, 1, chatwire.MessageTypeQuery,
		chatwire.QueryPayload{Query: "SELECT 1", Dialect: "postgres"})))
	require.NoError(t, transcript.Apply(chunkEnvelope(t, 2, chatwire.MessageTypeText,
		chatwire.TextPayload{Content: "final answer", IsFinal: true})))

	rendered := transcript.String()
	assert.Equal(t, "final answer\n\nGenerated query (postgres):\nSELECT 1", rendered)
}

func TestRenderTabular(t *testing.T) {
	env := chunkEnvelope(t, 0, chatwire.MessageTypeTabularResult, chatwire.TabularResultPayload{
		Name: "revenue",
		Columns: []chatwire.Column{
			{Name: "region", Type: "string"},
			{Name: "total", Type: "number"},
		},
		Rows: [][]any{
			{"north", 42.5},
			{"south", nil},
		},
		ExecutionTime: "120ms",
	})

	transcript := NewTranscript()
	require.NoError(t, transcript.Apply(env))

	rendered := transcript.String()
	assert.Contains(t, rendered, "revenue")
	assert.Contains(t, rendered, "region | total")
	assert.Contains(t, rendered, "north | 42.5")
	assert.Contains(t, rendered, "(120ms)")
}

func TestFormatCellAvoidsFloatNoise(t *testing.T) {
	assert.Equal(t, "0.1", formatCell(0.1))
	assert.Equal(t, "1234.56", formatCell(1234.56))
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "true", formatCell(true))
	assert.Equal(t, "north", formatCell("north"))
}

func TestRenderChartAndNarrative(t *testing.T) {
	transcript := NewTranscript()
	require.NoError(t, transcript.Apply(chunkEnvelope(t, 0, chatwire.MessageTypeChart, chatwire.ChartPayload{
		Metadata: chatwire.ChartMetadata{ChartType: "pie", Title: "Revenue share"},
	})))
	require.NoError(t, transcript.Apply(chunkEnvelope(t, 1, chatwire.MessageTypeNarrative, chatwire.NarrativePayload{
		Text: "Sales were strong.",
		DocumentReferences: []chatwire.DocumentReference{
			{Title: "Q3 Report", URL: "https://docs/q3.pdf"},
		},
	})))

	rendered := transcript.String()
	assert.Contains(t, rendered, "[chart: pie] Revenue share")
	assert.Contains(t, rendered, "Sales were strong.")
	assert.Contains(t, rendered, "- Q3 Report (https://docs/q3.pdf)")
}

func TestReplayMatchesLiveRendering(t *testing.T) {
	envelopes := []*chatwire.Envelope{
		chunkEnvelope(t, 0, chatwire.MessageTypeText, chatwire.TextPayload{Content: "Rev"}),
		chunkEnvelope(t, 1, chatwire.MessageTypeQuery, chatwire.QueryPayload{Query: "SELECT sum(total) FROM sales"}),
		chunkEnvelope(t, 2, chatwire.MessageTypeText, chatwire.TextPayload{Content: "Revenue grew 12%", IsFinal: true}),
	}

	live := NewTranscript()
	for _, env := range envelopes {
		require.NoError(t, live.Apply(env))
	}

	replayed, errorMessage, err := Replay(envelopes)
	require.NoError(t, err)
	assert.Empty(t, errorMessage)
	assert.Equal(t, live.String(), replayed.String())
}

func TestReplaySurfacesTerminalErrorMarker(t *testing.T) {
	marker := chatwire.NewError("the response was interrupted", nil, nil)
	envelopes := []*chatwire.Envelope{
		chunkEnvelope(t, 0, chatwire.MessageTypeText, chatwire.TextPayload{Content: "Rev"}),
		chunkEnvelope(t, 1, chatwire.MessageTypeText, chatwire.TextPayload{Content: "Revenue grew"}),
		marker,
	}

	replayed, errorMessage, err := Replay(envelopes)
	require.NoError(t, err)

	// The marker never renders into the transcript; its message comes back
	// separately, matching how the live path reports a failed turn.
	assert.Equal(t, "Revenue grew", replayed.String())
	assert.Equal(t, "the response was interrupted", errorMessage)
}
