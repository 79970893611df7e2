package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assist/chat-api/internal/domain"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
	"knowledge-assist/chat-api/pkg/chatwire"
)

type stubRepository struct {
	message       *Message
	messageErr    error
	finalizeCalls []FinalizeTurnParams
}

func (s *stubRepository) ListByUser(ctx context.Context, userID string) ([]*Conversation, error) {
	return nil, nil
}

func (s *stubRepository) GetByPublicID(ctx context.Context, userID, publicID string) (*Conversation, error) {
	return nil, nil
}

func (s *stubRepository) GetMessage(ctx context.Context, userID, messagePublicID string) (*Message, error) {
	if s.messageErr != nil {
		return nil, s.messageErr
	}
	return s.message, nil
}

func (s *stubRepository) FinalizeTurn(ctx context.Context, params FinalizeTurnParams) (*FinalizeTurnResult, error) {
	s.finalizeCalls = append(s.finalizeCalls, params)
	conversationID := params.NewConversationID
	if params.ExistingConversationID != nil {
		conversationID = *params.ExistingConversationID
	}
	return &FinalizeTurnResult{ConversationID: conversationID, MessageID: params.AssistantMessageID}, nil
}

type stubChunkStore struct {
	read []*chatwire.Envelope
}

func (s *stubChunkStore) Append(ctx context.Context, key string, env *chatwire.Envelope) error {
	return nil
}

func (s *stubChunkStore) Read(ctx context.Context, messageID string) ([]*chatwire.Envelope, error) {
	return s.read, nil
}

func (s *stubChunkStore) DeleteProvisionalOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

func TestGenerateTitle(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    string
	}{
		{"short message unchanged", "How are sales", "How are sales"},
		{"empty message falls back", "   ", "New Conversation"},
		{
			"long message breaks at word boundary",
			"What were the total quarterly sales figures for the northern region",
			"What were the total quarterly sales figures for...",
		},
		{
			"no late space truncates hard",
			strings.Repeat("a", 80),
			strings.Repeat("a", 50) + "...",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := GenerateTitle(tc.message)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, len(got), 53)
		})
	}
}

func TestFinalizeTurnOpeningTurnCreatesConversation(t *testing.T) {
	repo := &stubRepository{}
	svc := NewService(repo, &stubChunkStore{}, zerolog.Nop())
	principal := domain.Principal{ID: "user_1"}

	result, err := svc.FinalizeTurn(context.Background(), principal, nil, "what changed this week", "a lot", "prov_k1")
	require.NoError(t, err)

	require.Len(t, repo.finalizeCalls, 1)
	params := repo.finalizeCalls[0]
	assert.Nil(t, params.ExistingConversationID)
	assert.True(t, strings.HasPrefix(params.NewConversationID, "conv_"))
	assert.Equal(t, "what changed this week", params.Title)
	assert.True(t, strings.HasPrefix(params.UserMessageID, "msg_"))
	assert.True(t, strings.HasPrefix(params.AssistantMessageID, "msg_"))
	assert.NotEqual(t, params.UserMessageID, params.AssistantMessageID)
	assert.Equal(t, "prov_k1", params.ProvisionalKey)

	assert.Equal(t, params.NewConversationID, result.ConversationID)
	assert.Equal(t, params.AssistantMessageID, result.MessageID)
}

func TestFinalizeTurnFollowUpReusesConversation(t *testing.T) {
	repo := &stubRepository{}
	svc := NewService(repo, &stubChunkStore{}, zerolog.Nop())
	principal := domain.Principal{ID: "user_1"}
	existing := "conv_existing"

	result, err := svc.FinalizeTurn(context.Background(), principal, &existing, "and last month", "less", "prov_k2")
	require.NoError(t, err)

	params := repo.finalizeCalls[0]
	require.NotNil(t, params.ExistingConversationID)
	assert.Equal(t, existing, *params.ExistingConversationID)
	assert.Empty(t, params.NewConversationID)
	assert.Empty(t, params.Title)
	assert.Equal(t, existing, result.ConversationID)
}

func TestNewProvisionalKeyIsUniquePerAttempt(t *testing.T) {
	svc := NewService(&stubRepository{}, &stubChunkStore{}, zerolog.Nop())

	first, err := svc.NewProvisionalKey()
	require.NoError(t, err)
	second, err := svc.NewProvisionalKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "prov_"))
	assert.NotEqual(t, first, second)
}

func TestReplayMessageRejectsUserMessages(t *testing.T) {
	repo := &stubRepository{message: &Message{PublicID: "msg_1", Role: RoleUser}}
	svc := NewService(repo, &stubChunkStore{}, zerolog.Nop())

	_, err := svc.ReplayMessage(context.Background(), domain.Principal{ID: "user_1"}, "msg_1")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestReplayMessageReturnsChunksInOrder(t *testing.T) {
	seq0, seq1 := 0, 1
	stored := []*chatwire.Envelope{
		{Type: chatwire.TypeChunk, Sequence: &seq0, MessageType: chatwire.MessageTypeText},
		{Type: chatwire.TypeChunk, Sequence: &seq1, MessageType: chatwire.MessageTypeText},
	}
	repo := &stubRepository{message: &Message{PublicID: "msg_1", Role: RoleAssistant}}
	svc := NewService(repo, &stubChunkStore{read: stored}, zerolog.Nop())

	envelopes, err := svc.ReplayMessage(context.Background(), domain.Principal{ID: "user_1"}, "msg_1")
	require.NoError(t, err)
	require.Len(t, envelopes, 2)
	assert.Equal(t, 0, *envelopes[0].Sequence)
	assert.Equal(t, 1, *envelopes[1].Sequence)
}
