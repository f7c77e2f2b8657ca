package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		isData bool
		want   Frame
	}{
		{"noise", "event: message", false, Frame{}},
		{"prefix without space", "data:{\"event\":\"message\"}", false, Frame{}},
		{"message", `data: {"event":"message","answer":"hi"}`, true, Frame{Kind: FrameMessageDelta, Text: "hi", Event: "message"}},
		{"agent message", `data: {"event":"agent_message","answer":"yo"}`, true, Frame{Kind: FrameMessageDelta, Text: "yo", Event: "agent_message"}},
		{"end", `data: {"event":"message_end","conversation_id":"c"}`, true, Frame{Kind: FrameConversationEnd, ConversationID: "c", Event: "message_end"}},
		{"carriage return", "data: {\"event\":\"message\",\"answer\":\"r\"}\r", true, Frame{Kind: FrameMessageDelta, Text: "r", Event: "message"}},
		{"other event", `data: {"event":"node_started"}`, true, Frame{Kind: FrameUnrecognized, Event: "node_started"}},
		{"bad json", `data: {"event":`, true, Frame{Kind: FrameUnrecognized}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine([]byte(tt.line))
			assert.Equal(t, tt.isData, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeParsesBack(t *testing.T) {
	line, err := EncodeDelta("ধারা \"২\"\n")
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), line[len(line)-1])

	f, ok := ParseLine(line[:len(line)-1])
	require.True(t, ok)
	assert.Equal(t, FrameMessageDelta, f.Kind)
	assert.Equal(t, "ধারা \"২\"\n", f.Text)

	line, err = EncodeEnd("abc")
	require.NoError(t, err)
	f, _ = ParseLine(line[:len(line)-1])
	assert.Equal(t, "abc", f.ConversationID)
}
