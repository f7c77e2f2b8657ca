package search

import (
	"fmt"
	"strings"

	"github.com/legal-ai/legal-assistant/internal/model"
)

const titleMatchScore = 10

// SearchConversations matches the query as a case-insensitive substring of
// conversation titles and message bodies. A title hit scores 10; a message
// hit scores its occurrence count. Every hit is its own result.
func SearchConversations(conversations []model.Conversation, query string) []model.SearchResult {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var results []model.SearchResult
	for _, conv := range conversations {
		if strings.Contains(fold(conv.Title), q) {
			ts := conv.LastUpdated
			results = append(results, model.SearchResult{
				ID:             "conv-title-" + conv.ID,
				Kind:           model.KindConversation,
				Title:          conv.Title,
				Content:        conv.Title,
				Snippet:        conv.Title,
				RelevanceScore: titleMatchScore,
				ConversationID: conv.ID,
				Timestamp:      &ts,
			})
		}

		for i, msg := range conv.Messages {
			n := strings.Count(fold(msg.Content), q)
			if n == 0 {
				continue
			}
			ts := msg.Timestamp
			results = append(results, model.SearchResult{
				ID:             fmt.Sprintf("msg-%s-%s", conv.ID, msg.ID),
				Kind:           model.KindConversation,
				Title:          fmt.Sprintf("%s - Message %d", conv.Title, i+1),
				Content:        msg.Content,
				Snippet:        snippet(msg.Content),
				RelevanceScore: n,
				ConversationID: conv.ID,
				MessageID:      msg.ID,
				Timestamp:      &ts,
			})
		}
	}

	sortByScore(results)
	return results
}
