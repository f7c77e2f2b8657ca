package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/stream"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

func newTestOpenAI(t *testing.T, h http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient("sk-test", srv.URL+"/v1", "", logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_ReEmitsFrames(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Section ", "2(20)"} {
			fmt.Fprintf(w, "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	a, err := c.Stream(context.Background(), &StreamRequest{Query: "q", ConversationID: "keep-me"})
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Section 2(20)", res.Text)
	assert.Equal(t, "keep-me", res.ConversationID)
}

func TestOpenAIClient_AssignsConversationID(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	a, err := c.Stream(context.Background(), &StreamRequest{Query: "q"})
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.NotEmpty(t, res.ConversationID)
}

func TestOpenAIClient_APIErrorIsUnavailable(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid key","type":"invalid_request_error"}}`)
	})

	_, err := c.Stream(context.Background(), &StreamRequest{Query: "q"})
	require.Error(t, err)

	var ue *stream.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.StatusCode)
}

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages(&StreamRequest{
		Query:    "and now?",
		Persona:  model.PersonaLawyer,
		Language: model.LanguageEnglish,
		History: []model.ChatMessage{
			{Content: "hi", IsUser: true},
			{Content: "hello"},
		},
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.True(t, strings.Contains(msgs[0].Content, "Lawyer"))
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "and now?", msgs[3].Content)
}

func TestSystemPrompt_DefaultsToGeneralPublic(t *testing.T) {
	p := SystemPrompt("", model.LanguageBengali)
	assert.Contains(t, p, "General Public")
	assert.Contains(t, p, "Answer in Bengali")
}
