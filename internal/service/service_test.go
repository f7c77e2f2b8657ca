package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legal-ai/legal-assistant/internal/llm"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/storage"
	"github.com/legal-ai/legal-assistant/internal/stream"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

type fakeStreamer struct {
	body string
	// failAfter cuts the body with an error once it is read.
	failAfter error
	err       error

	mu       sync.Mutex
	requests []llm.StreamRequest
}

func (f *fakeStreamer) Name() string { return "fake" }

func (f *fakeStreamer) Stream(_ context.Context, req *llm.StreamRequest) (*stream.Assembler, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	var r io.Reader = strings.NewReader(f.body)
	if f.failAfter != nil {
		r = io.MultiReader(r, &errReader{err: f.failAfter})
	}
	return stream.NewAssembler(io.NopCloser(r)), nil
}

func (f *fakeStreamer) last() llm.StreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

type fakePublisher struct {
	events []*model.TurnEvent
	err    error
}

func (p *fakePublisher) PublishTurn(_ context.Context, e *model.TurnEvent) (uint64, error) {
	p.events = append(p.events, e)
	return uint64(len(p.events)), p.err
}

func body(t *testing.T, convID string, deltas ...string) string {
	t.Helper()
	var b strings.Builder
	for _, d := range deltas {
		line, err := stream.EncodeDelta(d)
		require.NoError(t, err)
		b.Write(line)
	}
	if convID != "" {
		line, err := stream.EncodeEnd(convID)
		require.NoError(t, err)
		b.Write(line)
	}
	return b.String()
}

func newServices(s llm.Streamer, pub EventPublisher) (*ConversationService, *ChatService) {
	convs := NewConversationService(storage.NewMemoryStore(), logger.NewNop())
	return convs, NewChatService(convs, s, pub, logger.NewNop())
}

func TestSendMessage_NewConversation(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{body: body(t, "gw-1", "Consumers ", "may file ", "a complaint.")}
	pub := &fakePublisher{}
	convs, chat := newServices(streamer, pub)

	var started *model.Conversation
	var deltas []string
	res, err := chat.SendMessage(ctx, &TurnRequest{
		UserID:   "alice",
		Content:  "What are my rights against adulterated food sold in Dhaka markets today?",
		Language: model.LanguageEnglish,
	}, TurnHooks{
		OnStart: func(c *model.Conversation) error { started = c; return nil },
		OnDelta: func(d string, i int) error {
			assert.Equal(t, len(deltas), i)
			deltas = append(deltas, d)
			return nil
		},
	})
	require.NoError(t, err)

	require.NotNil(t, started)
	assert.Equal(t, []string{"Consumers ", "may file ", "a complaint."}, deltas)
	assert.Equal(t, model.TurnCompleted, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, "Consumers may file a complaint.", res.Message.Content)
	assert.False(t, res.Message.IsUser)

	conv := res.Conversation
	assert.Equal(t, "What are my rights against adulterated food sold i...", conv.Title)
	assert.Equal(t, model.PersonaGeneralPublic, conv.Persona)
	assert.Equal(t, "gw-1", conv.GatewayConversationID)
	require.Len(t, conv.Messages, 2)
	assert.True(t, conv.Messages[0].IsUser)

	stored, err := convs.Get(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)

	req := streamer.last()
	assert.Empty(t, req.ConversationID)
	assert.Empty(t, req.History)
	assert.Equal(t, "alice", req.User)

	require.Len(t, pub.events, 1)
	assert.Equal(t, model.TurnCompleted, pub.events[0].Status)
	assert.Equal(t, conv.ID, pub.events[0].ConversationID)
	assert.Equal(t, "fake", pub.events[0].Provider)
}

func TestSendMessage_ContinuesConversation(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{body: body(t, "gw-1", "first")}
	_, chat := newServices(streamer, nil)

	first, err := chat.SendMessage(ctx, &TurnRequest{UserID: "alice", Content: "hello"}, TurnHooks{})
	require.NoError(t, err)

	streamer.body = body(t, "", "second")
	second, err := chat.SendMessage(ctx, &TurnRequest{
		UserID:         "alice",
		ConversationID: first.Conversation.ID,
		Content:        "and then?",
		Persona:        model.PersonaLawyer,
	}, TurnHooks{})
	require.NoError(t, err)

	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
	assert.Equal(t, "hello", second.Conversation.Title)
	assert.Equal(t, model.PersonaLawyer, second.Conversation.Persona)
	assert.Equal(t, "gw-1", second.Conversation.GatewayConversationID)
	assert.Len(t, second.Conversation.Messages, 4)

	req := streamer.last()
	assert.Equal(t, "gw-1", req.ConversationID)
	assert.Len(t, req.History, 2)
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	_, chat := newServices(&fakeStreamer{}, nil)

	_, err := chat.SendMessage(context.Background(), &TurnRequest{
		UserID:         "alice",
		ConversationID: "missing",
		Content:        "hi",
	}, TurnHooks{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendMessage_InvalidInput(t *testing.T) {
	_, chat := newServices(&fakeStreamer{}, nil)

	_, err := chat.SendMessage(context.Background(), &TurnRequest{UserID: "alice", Content: "   "}, TurnHooks{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = chat.SendMessage(context.Background(), &TurnRequest{UserID: "alice", Content: "hi", Persona: "Judge"}, TurnHooks{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSendMessage_Unavailable(t *testing.T) {
	streamer := &fakeStreamer{err: &stream.UnavailableError{StatusCode: 401, Message: "Access token is invalid"}}
	pub := &fakePublisher{}
	convs, chat := newServices(streamer, pub)

	res, err := chat.SendMessage(context.Background(), &TurnRequest{UserID: "alice", Content: "hi"}, TurnHooks{})
	require.NoError(t, err)

	assert.Equal(t, model.TurnUnavailable, res.Status)
	assert.ErrorIs(t, res.Err, stream.ErrUnavailable)
	assert.Equal(t, "Sorry, there was an error connecting to the AI: Access token is invalid", res.Message.Content)

	stored, err := convs.Get(context.Background(), "alice", res.Conversation.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)
	assert.Equal(t, model.TurnUnavailable, pub.events[0].Status)
	assert.NotEmpty(t, pub.events[0].Reason)
}

func TestSendMessage_EmptyAnswer(t *testing.T) {
	for _, tc := range []struct {
		lang model.Language
		want string
	}{
		{model.LanguageEnglish, "I received an empty response. Please try again."},
		{model.LanguageBengali, EmptyReply(model.LanguageBengali)},
	} {
		t.Run(string(tc.lang), func(t *testing.T) {
			_, chat := newServices(&fakeStreamer{body: body(t, "gw-2", " ", "\n")}, nil)

			res, err := chat.SendMessage(context.Background(), &TurnRequest{UserID: "alice", Content: "hi", Language: tc.lang}, TurnHooks{})
			require.NoError(t, err)
			assert.Equal(t, model.TurnEmpty, res.Status)
			assert.Equal(t, tc.want, res.Message.Content)
			assert.Equal(t, "gw-2", res.Conversation.GatewayConversationID)
		})
	}
}

func TestSendMessage_InterruptedKeepsPartialAnswer(t *testing.T) {
	streamer := &fakeStreamer{
		body:      body(t, "", "Section 41 ", "covers "),
		failAfter: errors.New("connection reset"),
	}
	_, chat := newServices(streamer, nil)

	res, err := chat.SendMessage(context.Background(), &TurnRequest{UserID: "alice", Content: "hi"}, TurnHooks{})
	require.NoError(t, err)

	assert.Equal(t, model.TurnInterrupted, res.Status)
	assert.ErrorIs(t, res.Err, stream.ErrInterrupted)
	assert.Equal(t, "Section 41 covers ", res.Message.Content)
}

func TestSendMessage_InterruptedWithoutText(t *testing.T) {
	streamer := &fakeStreamer{failAfter: errors.New("connection reset")}
	_, chat := newServices(streamer, nil)

	res, err := chat.SendMessage(context.Background(), &TurnRequest{UserID: "alice", Content: "hi"}, TurnHooks{})
	require.NoError(t, err)

	assert.Equal(t, model.TurnInterrupted, res.Status)
	assert.Equal(t, "Sorry, there was an error connecting to the AI: connection reset", res.Message.Content)
}

func TestSendMessage_SavesAfterClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	streamer := &fakeStreamer{body: body(t, "", "part one ", "part two")}
	convs, chat := newServices(streamer, nil)

	res, err := chat.SendMessage(ctx, &TurnRequest{UserID: "alice", Content: "hi"}, TurnHooks{
		OnDelta: func(string, int) error {
			cancel()
			return context.Canceled
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.TurnInterrupted, res.Status)
	assert.Equal(t, "part one ", res.Message.Content)

	stored, err := convs.Get(context.Background(), "alice", res.Conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, "part one ", stored.Messages[1].Content)
}

func TestSendMessage_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	_, chat := newServices(&fakeStreamer{body: body(t, "", "ok")}, pub)

	res, err := chat.SendMessage(context.Background(), &TurnRequest{UserID: "alice", Content: "hi"}, TurnHooks{})
	require.NoError(t, err)
	assert.Equal(t, model.TurnCompleted, res.Status)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "hi", BuildQuery("hi", nil))
	assert.Equal(t, "read this [File: lease.pdf (application/pdf)] [File: a.png (image/png)]",
		BuildQuery("read this", []model.FileAttachment{
			{Name: "lease.pdf", MimeType: "application/pdf"},
			{Name: "a.png", MimeType: "image/png"},
		}))
}

func TestSendMessage_AttachmentsReachUpstream(t *testing.T) {
	streamer := &fakeStreamer{body: body(t, "", "ok")}
	_, chat := newServices(streamer, nil)

	res, err := chat.SendMessage(context.Background(), &TurnRequest{
		UserID:      "alice",
		Content:     "check",
		Attachments: []model.FileAttachment{{Name: "deed.pdf", MimeType: "application/pdf"}},
	}, TurnHooks{})
	require.NoError(t, err)

	assert.Equal(t, "check [File: deed.pdf (application/pdf)]", streamer.last().Query)
	assert.Equal(t, "check", res.Conversation.Messages[0].Content)
	assert.Len(t, res.Conversation.Messages[0].Attachments, 1)
}
