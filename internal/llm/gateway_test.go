package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/stream"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *GatewayClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewGatewayClient(GatewayConfig{Endpoint: srv.URL, APIKey: "secret"}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestGatewayClient_StreamsAnswer(t *testing.T) {
	var got gatewayRequest
	c := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{"আইন", " 2009"} {
			fmt.Fprintf(w, "data: {\"event\":\"message\",\"answer\":%q}\n\n", part)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: {\"event\":\"message_end\",\"conversation_id\":\"up-1\"}\n\n")
	})

	a, err := c.Stream(context.Background(), &StreamRequest{
		Query:          "what is adulteration",
		ConversationID: "up-0",
		Persona:        model.PersonaLawStudent,
		Language:       model.LanguageBengali,
	})
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "আইন 2009", res.Text)
	assert.Equal(t, "up-1", res.ConversationID)

	assert.Equal(t, "Law Student", got.Inputs.Persona)
	assert.Equal(t, "Bengali", got.Inputs.Language)
	assert.Equal(t, "streaming", got.ResponseMode)
	assert.Equal(t, "anonymous-user", got.User)
	assert.Equal(t, "up-0", got.ConversationID)
}

func TestGatewayClient_SpanCoversBody(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	c := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"event\":\"message\",\"answer\":\"ok\"}\n\n")
	})

	a, err := c.Stream(context.Background(), &StreamRequest{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, rec.Ended())

	_, err = a.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rec.Ended())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "gateway.stream", ended[0].Name())
}

func TestGatewayClient_ErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusBadRequest, `{"code":"invalid_param","message":"query is required"}`, "query is required"},
		{"error field", http.StatusUnauthorized, `{"error":"bad key"}`, "bad key"},
		{"not json", http.StatusBadGateway, `<html>`, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Stream(context.Background(), &StreamRequest{Query: "q"})
			require.Error(t, err)
			assert.ErrorIs(t, err, stream.ErrUnavailable)

			var ue *stream.UnavailableError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.status, ue.StatusCode)
			assert.Equal(t, tt.wantMsg, ue.Message)
		})
	}
}

func TestGatewayClient_NoBody(t *testing.T) {
	c := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.Stream(context.Background(), &StreamRequest{Query: "q"})
	assert.ErrorIs(t, err, stream.ErrUnavailable)
}

func TestGatewayClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewGatewayClient(GatewayConfig{Endpoint: url, APIKey: "k"}, logger.NewNop())
	require.NoError(t, err)

	_, err = c.Stream(context.Background(), &StreamRequest{Query: "q"})
	assert.ErrorIs(t, err, stream.ErrUnavailable)
}

func TestNewGatewayClient_RequiresKey(t *testing.T) {
	_, err := NewGatewayClient(GatewayConfig{Endpoint: "http://x"}, logger.NewNop())
	assert.Error(t, err)
}
