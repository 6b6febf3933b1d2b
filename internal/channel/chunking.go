package channel

import (
	"strings"
	"unicode/utf8"

	"github.com/flemzord/sigma/pkg/message"
)

// ChunkConfig controls how outbound messages are split when they exceed
// a platform's maximum message length.
type ChunkConfig struct {
	// MaxLength is the maximum number of bytes per chunk.
	// A value <= 0 means no splitting.
	MaxLength int
}

// SplitMessage splits an outbound message into messages whose text respects
// cfg.MaxLength. Splits happen at line boundaries where possible and never
// inside a UTF-8 sequence. Only the first chunk keeps ReplyToID.
func SplitMessage(msg message.OutboundMessage, cfg ChunkConfig) []message.OutboundMessage {
	if cfg.MaxLength <= 0 || len(msg.Text) <= cfg.MaxLength {
		return []message.OutboundMessage{msg}
	}

	chunks := splitText(msg.Text, cfg)
	result := make([]message.OutboundMessage, 0, len(chunks))
	for i, chunk := range chunks {
		out := msg
		out.Text = chunk
		if i > 0 {
			out.ReplyToID = ""
		}
		result = append(result, out)
	}
	return result
}

// splitText breaks text into chunks of at most MaxLength bytes, preferring
// line boundaries.
func splitText(text string, cfg ChunkConfig) []string {
	var chunks []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		lineWithNewline := line + "\n"

		if current.Len()+len(lineWithNewline) > cfg.MaxLength {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
				current.Reset()
			}
			if len(lineWithNewline) > cfg.MaxLength {
				chunks = append(chunks, forceSplit(line, cfg.MaxLength)...)
				continue
			}
		}
		current.WriteString(lineWithNewline)
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
	}
	return chunks
}

// forceSplit breaks s into chunks of at most maxLen bytes, cutting only at
// rune boundaries.
func forceSplit(s string, maxLen int) []string {
	var parts []string
	for len(s) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			_, size := utf8.DecodeRuneInString(s)
			cut = size
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if len(s) > 0 {
		parts = append(parts, s)
	}
	return parts
}
