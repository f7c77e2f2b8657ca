package service

import (
	"context"
	"strings"

	"github.com/legal-ai/legal-assistant/internal/model"
)

const exportSeparator = "\n\n" + "==================================================" + "\n\n"

// Export renders one conversation as plain text and names the file for it.
func (s *ConversationService) Export(ctx context.Context, userID, conversationID string) (filename, text string, err error) {
	conv, err := s.store.Get(ctx, userID, conversationID)
	if err != nil {
		return "", "", err
	}
	return ExportFilename(conv.Title), formatMessages(conv.Messages, "\n\n"), nil
}

// ExportAll renders every conversation of the user, newest first.
func (s *ConversationService) ExportAll(ctx context.Context, userID string) (string, error) {
	convs, err := s.store.List(ctx, userID)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(convs))
	for i, c := range convs {
		parts[i] = "=== " + c.Title + " ===\n" +
			"Date: " + c.LastUpdated.Format("2006-01-02") + "\n\n" +
			formatMessages(c.Messages, "\n")
	}
	return strings.Join(parts, exportSeparator), nil
}

// ExportFilename turns a title into a download name.
func ExportFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, title)
	return name + ".txt"
}

func formatMessages(msgs []model.ChatMessage, sep string) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		speaker := "AI"
		if m.IsUser {
			speaker = "You"
		}
		lines[i] = speaker + ": " + m.Content
	}
	return strings.Join(lines, sep)
}
