package streamclient

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"knowledge-assist/chat-api/pkg/chatwire"
)

// renderers maps each chunk message type to its pure rendering function.
// The same table serves live streams and stored replays.
var renderers = map[chatwire.MessageType]func(payload any) (string, error){
	chatwire.MessageTypeText:          renderText,
	chatwire.MessageTypeQuery:         renderQuery,
	chatwire.MessageTypeTabularResult: renderTabular,
	chatwire.MessageTypeChart:         renderChart,
	chatwire.MessageTypeNarrative:     renderNarrative,
}

// Transcript accumulates rendered chunk output. Text chunks are cumulative,
// so each one replaces the previous text block instead of appending; every
// other message type appends a new block.
type Transcript struct {
	mu        sync.Mutex
	blocks    []string
	textBlock int
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{textBlock: -1}
}

// Apply decodes and renders one chunk envelope into the transcript.
func (t *Transcript) Apply(env *chatwire.Envelope) error {
	payload, err := chatwire.DecodeChunkPayload(env.MessageType, env.Data)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", env.MessageType, err)
	}

	render, ok := renderers[env.MessageType]
	if !ok {
		return fmt.Errorf("no renderer for message type %q", env.MessageType)
	}
	block, err := render(payload)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if env.MessageType == chatwire.MessageTypeText {
		if t.textBlock >= 0 {
			t.blocks[t.textBlock] = block
			return nil
		}
		t.textBlock = len(t.blocks)
	}
	t.blocks = append(t.blocks, block)
	return nil
}

// String returns the rendered transcript.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.blocks, "\n\n")
}

// Replay renders stored envelopes through the same renderers used for live
// streaming. Given the envelopes of a finalized message in storage order,
// the transcript matches what the live session produced. A failed turn's
// list ends with a terminal error envelope; the error text is returned
// alongside the partial transcript, just as the live path surfaces it
// outside the transcript.
func Replay(envelopes []*chatwire.Envelope) (*Transcript, string, error) {
	transcript := NewTranscript()
	var errorMessage string
	for _, env := range envelopes {
		if env.Type == chatwire.TypeError {
			if payload, err := chatwire.DecodeError(env.Data); err == nil {
				errorMessage = payload.Message
			}
			continue
		}
		if env.Type != chatwire.TypeChunk {
			continue
		}
		if err := transcript.Apply(env); err != nil {
			return nil, "", err
		}
	}
	return transcript, errorMessage, nil
}

func renderText(payload any) (string, error) {
	text, ok := payload.(chatwire.TextPayload)
	if !ok {
		return "", fmt.Errorf("unexpected payload type %T", payload)
	}
	return text.Content, nil
}

func renderQuery(payload any) (string, error) {
	query, ok := payload.(chatwire.QueryPayload)
	if !ok {
		return "", fmt.Errorf("unexpected payload type %T", payload)
	}
	var b strings.Builder
	b.WriteString("Generated query")
	if query.Dialect != "" {
		b.WriteString(" (" + query.Dialect + ")")
	}
	b.WriteString(":\n")
	b.WriteString(strings.TrimSpace(query.Query))
	return b.String(), nil
}

func renderTabular(payload any) (string, error) {
	table, ok := payload.(chatwire.TabularResultPayload)
	if !ok {
		return "", fmt.Errorf("unexpected payload type %T", payload)
	}

	var b strings.Builder
	if table.Name != "" {
		b.WriteString(table.Name + "\n")
	}

	headers := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		headers = append(headers, col.Name)
	}
	b.WriteString(strings.Join(headers, " | "))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", len(strings.Join(headers, " | "))))

	for _, row := range table.Rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, formatCell(cell))
		}
		b.WriteString("\n" + strings.Join(cells, " | "))
	}

	if table.ExecutionTime != "" {
		b.WriteString("\n(" + table.ExecutionTime + ")")
	}
	return b.String(), nil
}

// formatCell renders one table cell. Numeric values go through decimal so
// JSON floats do not pick up binary noise like 0.30000000000000004.
func formatCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return decimal.NewFromFloat(v).String()
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func renderChart(payload any) (string, error) {
	chart, ok := payload.(chatwire.ChartPayload)
	if !ok {
		return "", fmt.Errorf("unexpected payload type %T", payload)
	}

	var b strings.Builder
	b.WriteString("[chart")
	if chart.Metadata.ChartType != "" {
		b.WriteString(": " + chart.Metadata.ChartType)
	}
	b.WriteString("]")
	if chart.Metadata.Title != "" {
		b.WriteString(" " + chart.Metadata.Title)
	}
	if chart.Metadata.Description != "" {
		b.WriteString("\n" + chart.Metadata.Description)
	}
	return b.String(), nil
}

func renderNarrative(payload any) (string, error) {
	narrative, ok := payload.(chatwire.NarrativePayload)
	if !ok {
		return "", fmt.Errorf("unexpected payload type %T", payload)
	}

	var b strings.Builder
	b.WriteString(narrative.Text)
	if len(narrative.DocumentReferences) > 0 {
		b.WriteString("\n\nSources:")
		for _, ref := range narrative.DocumentReferences {
			b.WriteString("\n- " + ref.Title)
			if ref.URL != "" {
				b.WriteString(" (" + ref.URL + ")")
			}
		}
	}
	return b.String(), nil
}
