package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/internal/storage"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultTitle},
		{"   ", DefaultTitle},
		{"short question", "short question"},
		{strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{strings.Repeat("a", 51), strings.Repeat("a", 50) + "..."},
		{strings.Repeat("ধ", 60), strings.Repeat("ধ", 50) + "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateTitle(tt.in))
	}
}

func TestConversationService_Upsert(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(storage.NewMemoryStore(), logger.NewNop())

	conv, err := svc.Upsert(ctx, "alice", &model.UpsertConversationRequest{
		Messages: []model.ChatMessage{{Content: "Can my landlord keep the deposit?", IsUser: true}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "Can my landlord keep the deposit?", conv.Title)
	assert.Equal(t, model.PersonaGeneralPublic, conv.Persona)
	assert.NotEmpty(t, conv.Messages[0].ID)
	assert.False(t, conv.Messages[0].Timestamp.IsZero())

	again, err := svc.Upsert(ctx, "alice", &model.UpsertConversationRequest{ID: conv.ID, Title: "Deposit", Persona: model.PersonaLawStudent})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
	assert.Equal(t, "Deposit", again.Title)
	assert.Equal(t, conv.CreatedAt, again.CreatedAt)

	_, err = svc.Upsert(ctx, "mallory", &model.UpsertConversationRequest{ID: conv.ID, Title: "mine"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Upsert(ctx, "alice", &model.UpsertConversationRequest{Persona: "Judge"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty, err := svc.Upsert(ctx, "alice", &model.UpsertConversationRequest{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, empty.Title)
}

func TestConversationService_ListRenameDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(storage.NewMemoryStore(), logger.NewNop())

	a, err := svc.Upsert(ctx, "alice", &model.UpsertConversationRequest{Title: "first"})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "bob", &model.UpsertConversationRequest{Title: "other"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	renamed, err := svc.Rename(ctx, "alice", a.ID, &model.UpdateConversationRequest{Title: "  renamed  "})
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Title)

	_, err = svc.Rename(ctx, "alice", a.ID, &model.UpdateConversationRequest{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Rename(ctx, "alice", a.ID, &model.UpdateConversationRequest{Title: strings.Repeat("x", 257)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Rename(ctx, "bob", a.ID, &model.UpdateConversationRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "alice", a.ID))
	_, err = svc.Get(ctx, "alice", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "alice", a.ID), ErrNotFound)
}

func TestConversationService_Export(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(storage.NewMemoryStore(), logger.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	conv, err := svc.Upsert(ctx, "alice", &model.UpsertConversationRequest{
		Title: "Refunds",
		Messages: []model.ChatMessage{
			{Content: "Can I get a refund?", IsUser: true},
			{Content: "Yes, within 30 days."},
		},
	})
	require.NoError(t, err)

	name, text, err := svc.Export(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Refunds.txt", name)
	assert.Equal(t, "You: Can I get a refund?\n\nAI: Yes, within 30 days.", text)

	all, err := svc.ExportAll(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "=== Refunds ===\nDate: 2026-03-14\n\nYou: Can I get a refund?\nAI: Yes, within 30 days.", all)

	_, err = svc.Upsert(ctx, "alice", &model.UpsertConversationRequest{Title: "Second"})
	require.NoError(t, err)
	all, err = svc.ExportAll(ctx, "alice")
	require.NoError(t, err)
	assert.Contains(t, all, "\n\n"+strings.Repeat("=", 50)+"\n\n")

	_, _, err = svc.Export(ctx, "alice", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "Refund_dispute__2026_.txt", ExportFilename("Refund dispute (2026)"))
}

type fakeTurnLog struct {
	turns  []model.TurnEvent
	purged []string
}

func (f *fakeTurnLog) ListTurns(_ context.Context, _, conversationID string, after uint64, _ int) ([]model.TurnEvent, uint64, bool, error) {
	var out []model.TurnEvent
	for _, t := range f.turns {
		if t.ConversationID == conversationID && t.Sequence > after {
			out = append(out, t)
		}
	}
	last := after
	if len(out) > 0 {
		last = out[len(out)-1].Sequence
	}
	return out, last, false, nil
}

func (f *fakeTurnLog) PurgeTurns(_ context.Context, _, conversationID string) error {
	f.purged = append(f.purged, conversationID)
	return nil
}

func TestConversationService_Turns(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(storage.NewMemoryStore(), logger.NewNop())

	conv, err := svc.Upsert(ctx, "alice", &model.UpsertConversationRequest{Title: "t"})
	require.NoError(t, err)

	_, err = svc.Turns(ctx, "alice", conv.ID, 0, 10)
	assert.ErrorIs(t, err, ErrTurnLogDisabled)

	log := &fakeTurnLog{turns: []model.TurnEvent{
		{ConversationID: conv.ID, Status: model.TurnCompleted, Sequence: 3},
		{ConversationID: "other", Status: model.TurnCompleted, Sequence: 4},
		{ConversationID: conv.ID, Status: model.TurnEmpty, Sequence: 7},
	}}
	svc.SetTurnLog(log)

	page, err := svc.Turns(ctx, "alice", conv.ID, 3, 10)
	require.NoError(t, err)
	require.Len(t, page.Turns, 1)
	assert.Equal(t, model.TurnEmpty, page.Turns[0].Status)
	assert.Equal(t, uint64(7), page.LastSequence)

	_, err = svc.Turns(ctx, "bob", conv.ID, 0, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "alice", conv.ID))
	assert.Equal(t, []string{conv.ID}, log.purged)
}
