package chatwire

import (
	"encoding/json"
	"fmt"
)

// StatusPayload is carried by status envelopes.
type StatusPayload struct {
	Message string `json:"message"`
}

// TextPayload is a free text fragment. Content is cumulative: each fragment
// contains everything streamed so far, and IsFinal marks the last one.
type TextPayload struct {
	Content string `json:"content"`
	IsFinal bool   `json:"is_final"`
}

// QueryPayload carries the generated query text.
type QueryPayload struct {
	Query   string `json:"query"`
	Dialect string `json:"dialect,omitempty"`
}

// Column describes one column of a tabular result.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TabularResultPayload carries a bounded result set.
type TabularResultPayload struct {
	Name          string  `json:"name"`
	Columns       []Column `json:"columns"`
	Rows          [][]any `json:"rows"`
	ExecutionTime string  `json:"execution_time,omitempty"`
}

// ChartMetadata describes a chart independent of its rendering spec.
type ChartMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ChartType   string `json:"chart_type,omitempty"`
}

// RenderingOptions are display hints for chart consumers.
type RenderingOptions struct {
	Width  any    `json:"width"`
	Height int    `json:"height"`
	Theme  string `json:"theme"`
}

// ChartPayload carries a declarative chart specification.
type ChartPayload struct {
	Spec             map[string]any   `json:"spec"`
	Metadata         ChartMetadata    `json:"metadata"`
	RenderingOptions RenderingOptions `json:"rendering_options"`
}

// DocumentReference points at a source document cited by a narrative.
type DocumentReference struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Type     string `json:"type"`
}

// NarrativePayload carries generated prose insight.
type NarrativePayload struct {
	Text               string              `json:"text"`
	DocumentReferences []DocumentReference `json:"document_references,omitempty"`
}

// CompletePayload is carried by the complete envelope. Degraded is set when
// one or more chunks could not be persisted while streaming continued.
type CompletePayload struct {
	ChunkCount int  `json:"chunk_count"`
	Degraded   bool `json:"degraded"`
}

// ErrorPayload is carried by the error envelope.
type ErrorPayload struct {
	Message string `json:"message"`
}

var payloadDecoders = map[MessageType]func(json.RawMessage) (any, error){
	MessageTypeText:          decodeInto[TextPayload],
	MessageTypeQuery:         decodeInto[QueryPayload],
	MessageTypeTabularResult: decodeInto[TabularResultPayload],
	MessageTypeChart:         decodeInto[ChartPayload],
	MessageTypeNarrative:     decodeInto[NarrativePayload],
}

func decodeInto[T any](raw json.RawMessage) (any, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// DecodeChunkPayload decodes the data of a chunk envelope into its concrete
// payload type based on the message type.
func DecodeChunkPayload(messageType MessageType, raw json.RawMessage) (any, error) {
	decoder, ok := payloadDecoders[messageType]
	if !ok {
		return nil, fmt.Errorf("unknown message type %q", messageType)
	}
	return decoder(raw)
}

// DecodeStatus decodes the payload of a status envelope.
func DecodeStatus(raw json.RawMessage) (StatusPayload, error) {
	var payload StatusPayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}

// DecodeComplete decodes the payload of a complete envelope.
func DecodeComplete(raw json.RawMessage) (CompletePayload, error) {
	var payload CompletePayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}

// DecodeError decodes the payload of an error envelope.
func DecodeError(raw json.RawMessage) (ErrorPayload, error) {
	var payload ErrorPayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}
