package model

import (
	"time"
)

// TurnStatus is how a chat turn ended.
type TurnStatus string

const (
	TurnCompleted   TurnStatus = "completed"
	TurnEmpty       TurnStatus = "empty"
	TurnInterrupted TurnStatus = "interrupted"
	TurnUnavailable TurnStatus = "unavailable"
)

// TurnEvent is published once per finished chat turn.
type TurnEvent struct {
	ID                    string     `json:"id"`
	ConversationID        string     `json:"conversation_id"`
	UserID                string     `json:"user_id"`
	GatewayConversationID string     `json:"gateway_conversation_id,omitempty"`
	Provider              string     `json:"provider"`
	Status                TurnStatus `json:"status"`
	Chars                 int        `json:"chars"`
	SkippedFrames         int        `json:"skipped_frames"`
	LatencyMs             int64      `json:"latency_ms"`
	Reason                string     `json:"reason,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	// Sequence is the turn log position, set when read back.
	Sequence uint64 `json:"sequence,omitempty"`
}
