package stream

import (
	"bytes"
	"encoding/json"
)

// FrameKind tags a decoded upstream line.
type FrameKind int

const (
	// FrameUnrecognized is any data line that is not a known event or that
	// failed to decode.
	FrameUnrecognized FrameKind = iota
	// FrameMessageDelta carries a fragment of the answer.
	FrameMessageDelta
	// FrameConversationEnd carries the upstream conversation id.
	FrameConversationEnd
)

func (k FrameKind) String() string {
	switch k {
	case FrameMessageDelta:
		return "message_delta"
	case FrameConversationEnd:
		return "conversation_end"
	default:
		return "unrecognized"
	}
}

// Upstream event names.
const (
	EventMessage      = "message"
	EventAgentMessage = "agent_message"
	EventMessageEnd   = "message_end"
)

const dataPrefix = "data: "

// Frame is one decoded data line.
type Frame struct {
	Kind           FrameKind
	Text           string
	ConversationID string
	// Event is the raw event name, kept for logging unrecognized frames.
	Event string
}

type payload struct {
	Event          string  `json:"event"`
	Answer         *string `json:"answer"`
	ConversationID string  `json:"conversation_id"`
}

// ParseLine decodes one line without its terminator. The boolean is false
// when the line is not a data frame at all.
func ParseLine(line []byte) (Frame, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return Frame{}, false
	}
	return DecodeFrame(line[len(dataPrefix):]), true
}

// DecodeFrame maps a JSON payload onto the closed frame set. Decode
// failures yield FrameUnrecognized.
func DecodeFrame(data []byte) Frame {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Frame{Kind: FrameUnrecognized}
	}

	switch p.Event {
	case EventMessage, EventAgentMessage:
		f := Frame{Kind: FrameMessageDelta, Event: p.Event}
		if p.Answer != nil {
			f.Text = *p.Answer
		}
		return f
	case EventMessageEnd:
		return Frame{Kind: FrameConversationEnd, ConversationID: p.ConversationID, Event: p.Event}
	default:
		return Frame{Kind: FrameUnrecognized, Event: p.Event}
	}
}

// EncodeDelta renders a message frame line, terminator included.
func EncodeDelta(text string) ([]byte, error) {
	return encode(payload{Event: EventMessage, Answer: &text})
}

// EncodeEnd renders a message_end frame line, terminator included.
func EncodeEnd(conversationID string) ([]byte, error) {
	return encode(payload{Event: EventMessageEnd, ConversationID: conversationID})
}

func encode(p payload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(dataPrefix)+len(b)+1)
	out = append(out, dataPrefix...)
	out = append(out, b...)
	return append(out, '\n'), nil
}
