package session

import (
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// Chunk is one read from the stream, as received.
type Chunk struct {
	Port string
	Seq  uint64 // 1-based, per connection
	Raw  []byte
	Text string // Raw decoded as UTF-8
	At   time.Time
}

// Handler receives chunks in the order they were read. It runs on the read
// loop, so the next read waits until it returns. A Handler that wants to end
// the connection calls Session.Stop, never Session.Disconnect.
type Handler func(Chunk)

// Tee returns a Handler that passes every chunk to each of hs in turn.
func Tee(hs ...Handler) Handler {
	return func(c Chunk) {
		for _, h := range hs {
			if h != nil {
				h(c)
			}
		}
	}
}

// decodeText decodes a chunk on its own: ill-formed sequences, including a
// multi-byte rune split across chunks, become U+FFFD and a leading BOM is dropped.
func decodeText(raw []byte) string {
	text, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(text)
}
