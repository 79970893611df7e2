package engine

// Event is one raw record emitted by the answer engine stream. Exactly one
// of the variant fields is expected to be set; records with none are noise
// and get dropped downstream.
type Event struct {
	Delta         *Delta         `json:"delta,omitempty"`
	SystemMessage *SystemMessage `json:"systemMessage,omitempty"`
	Error         *EventError    `json:"error,omitempty"`
	Timestamp     string         `json:"timestamp,omitempty"`
}

// Delta is a cumulative free text fragment. Content carries everything
// generated so far, Final marks the last fragment of the answer text.
type Delta struct {
	Content string `json:"content"`
	Final   bool   `json:"final"`
}

// SystemMessage wraps the structured answer artifacts the engine produces.
type SystemMessage struct {
	Data  *DataMessage  `json:"data,omitempty"`
	Chart *ChartMessage `json:"chart,omitempty"`
	Text  *TextMessage  `json:"text,omitempty"`
}

// DataMessage carries either a generated query or its execution result.
type DataMessage struct {
	GeneratedSQL string       `json:"generatedSql,omitempty"`
	Dialect      string       `json:"dialect,omitempty"`
	Result       *QueryResult `json:"result,omitempty"`
}

// QueryResult is a bounded result set produced by query execution.
type QueryResult struct {
	Name          string        `json:"name"`
	Schema        []SchemaField `json:"schema"`
	Data          [][]any       `json:"data"`
	ExecutionTime string        `json:"executionTime,omitempty"`
}

// SchemaField describes one column of a query result.
type SchemaField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ChartMessage wraps a chart produced for the answer.
type ChartMessage struct {
	Result *ChartResult `json:"result,omitempty"`
}

// ChartResult carries a Vega style chart specification plus metadata.
type ChartResult struct {
	VegaConfig  map[string]any `json:"vegaConfig,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
}

// TextMessage carries generated narrative insight parts.
type TextMessage struct {
	Parts              []string            `json:"parts"`
	DocumentReferences []DocumentReference `json:"documentReferences,omitempty"`
}

// DocumentReference cites a source document used for the narrative.
type DocumentReference struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Type     string `json:"type"`
}

// EventError is an in-band failure record from the engine.
type EventError struct {
	Message string `json:"message"`
}
