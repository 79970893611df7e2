package stream

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/infrastructure/engine"
	"knowledge-assist/chat-api/pkg/chatwire"
)

const (
	defaultChartWidth  = "container"
	defaultChartHeight = 400
	defaultChartTheme  = "default"
)

// Transformer converts raw engine events into wire envelopes. It owns the
// sequence counter for one assistant message: one transformer per session,
// never shared across messages.
type Transformer struct {
	sequence int
	logger   zerolog.Logger
}

// NewTransformer returns a transformer starting at sequence zero.
func NewTransformer(logger zerolog.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// ChunkCount returns how many chunk envelopes have been produced so far.
func (t *Transformer) ChunkCount() int {
	return t.sequence
}

// Transform maps one raw engine record to an envelope. Most records become
// chunk envelopes; an in-band failure record becomes an error envelope.
// Records that are unparseable or carry nothing presentable are dropped with
// a log line and a nil return. Neither dropped records nor error envelopes
// consume a sequence number.
func (t *Transformer) Transform(raw json.RawMessage) *chatwire.Envelope {
	var event engine.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		t.logger.Warn().Err(err).Str("raw", truncateForLog(raw)).Msg("dropping unparseable engine event")
		return nil
	}

	if event.Error != nil {
		message := strings.TrimSpace(event.Error.Message)
		if message == "" {
			message = "the answer engine reported a failure"
		}
		return chatwire.NewError(message, nil, nil)
	}

	messageType, payload := t.extractPayload(&event)
	if payload == nil {
		t.logger.Debug().Str("raw", truncateForLog(raw)).Msg("engine event carries no presentable data, skipping")
		return nil
	}

	env, err := chatwire.NewChunk(t.sequence, messageType, payload)
	if err != nil {
		t.logger.Warn().Err(err).Msg("dropping unencodable chunk payload")
		return nil
	}
	t.sequence++
	return env
}

func (t *Transformer) extractPayload(event *engine.Event) (chatwire.MessageType, any) {
	if event.Delta != nil {
		return chatwire.MessageTypeText, chatwire.TextPayload{
			Content: event.Delta.Content,
			IsFinal: event.Delta.Final,
		}
	}

	msg := event.SystemMessage
	if msg == nil {
		return "", nil
	}

	if msg.Data != nil && msg.Data.GeneratedSQL != "" {
		return chatwire.MessageTypeQuery, chatwire.QueryPayload{
			Query:   msg.Data.GeneratedSQL,
			Dialect: msg.Data.Dialect,
		}
	}

	if msg.Data != nil && msg.Data.Result != nil {
		result := msg.Data.Result
		if result.Name == "" || result.Schema == nil || result.Data == nil {
			return "", nil
		}
		columns := make([]chatwire.Column, 0, len(result.Schema))
		for _, field := range result.Schema {
			columns = append(columns, chatwire.Column{Name: field.Name, Type: field.Type})
		}
		return chatwire.MessageTypeTabularResult, chatwire.TabularResultPayload{
			Name:          result.Name,
			Columns:       columns,
			Rows:          result.Data,
			ExecutionTime: result.ExecutionTime,
		}
	}

	if msg.Chart != nil && msg.Chart.Result != nil && msg.Chart.Result.VegaConfig != nil {
		return chatwire.MessageTypeChart, buildChartPayload(msg.Chart.Result)
	}

	if msg.Text != nil && len(msg.Text.Parts) > 0 {
		refs := make([]chatwire.DocumentReference, 0, len(msg.Text.DocumentReferences))
		for _, ref := range msg.Text.DocumentReferences {
			refs = append(refs, chatwire.DocumentReference{
				Title:    ref.Title,
				Filename: ref.Filename,
				URL:      ref.URL,
				Type:     ref.Type,
			})
		}
		return chatwire.MessageTypeNarrative, chatwire.NarrativePayload{
			Text:               strings.Join(msg.Text.Parts, "\n"),
			DocumentReferences: refs,
		}
	}

	return "", nil
}

func buildChartPayload(result *engine.ChartResult) chatwire.ChartPayload {
	return chatwire.ChartPayload{
		Spec: result.VegaConfig,
		Metadata: chatwire.ChartMetadata{
			Title:       result.Title,
			Description: result.Description,
			ChartType:   chartTypeFromSpec(result.VegaConfig),
		},
		RenderingOptions: chatwire.RenderingOptions{
			Width:  defaultChartWidth,
			Height: defaultChartHeight,
			Theme:  defaultChartTheme,
		},
	}
}

// chartTypeFromSpec derives a display chart type from the Vega mark,
// collapsing mark aliases the way consumers expect: arc and pie render as
// pie, point renders as scatter.
func chartTypeFromSpec(spec map[string]any) string {
	markType := "unknown"
	switch mark := spec["mark"].(type) {
	case string:
		markType = mark
	case map[string]any:
		if typ, ok := mark["type"].(string); ok {
			markType = typ
		}
	default:
		if _, ok := spec["layer"]; ok {
			return "layered"
		}
		if _, ok := spec["facet"]; ok {
			return "faceted"
		}
	}

	switch markType {
	case "arc", "pie":
		return "pie"
	case "point":
		return "scatter"
	default:
		return markType
	}
}

func truncateForLog(raw json.RawMessage) string {
	const limit = 256
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
