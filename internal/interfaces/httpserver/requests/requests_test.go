package requests

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindJSON[T any](t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req T
	return c.ShouldBindJSON(&req)
}

func TestStreamChatRequestBinding(t *testing.T) {
	require.NoError(t, bindJSON[StreamChatRequest](t, `{"message":"hi"}`))
	require.NoError(t, bindJSON[StreamChatRequest](t, `{"message":"hi","conversation_id":"conv_ab12cd"}`))

	assert.Error(t, bindJSON[StreamChatRequest](t, `{"message":""}`))
	assert.Error(t, bindJSON[StreamChatRequest](t, `{"message":"hi","conversation_id":"msg_ab12cd"}`))
	assert.Error(t, bindJSON[StreamChatRequest](t, `{"message":"hi","conversation_id":"conv_"}`))
}

func TestFeedbackRequestBinding(t *testing.T) {
	require.NoError(t, bindJSON[FeedbackRequest](t, `{"message_id":"msg_ab12cd","is_positive":false,"comment":"wrong chart"}`))
	// false is a valid verdict, not a missing field
	require.NoError(t, bindJSON[FeedbackRequest](t, `{"message_id":"msg_ab12cd","is_positive":false}`))

	assert.Error(t, bindJSON[FeedbackRequest](t, `{"message_id":"msg_ab12cd"}`))
	assert.Error(t, bindJSON[FeedbackRequest](t, `{"message_id":"conv_ab12cd","is_positive":true}`))
	assert.Error(t, bindJSON[FeedbackRequest](t, `{"message_id":"msg_AB12","is_positive":true}`))
}
