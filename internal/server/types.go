// Package server defines the wire-level payload and event types exchanged
// with clients, plus utility helpers reused across client and hub logic.
package server

import (
	"strings"
	"time"
)

// Inbound payload type tags. Anything else is dropped as unknown.
const (
	inboundRegister   = "register"
	inboundChat       = "chat"
	inboundTyping     = "typing"
	inboundStopTyping = "stop_typing"
)

// Outbound event type tags.
const (
	eventHistory = "history"
	eventOnline  = "online"
	eventSystem  = "system"
	eventTyping  = "typing"
	eventChat    = "chat"
	eventClear   = "clear"
)

// inboundPayload is the single decode target for every client payload. The
// Type tag discriminates which of the remaining fields are meaningful.
type inboundPayload struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	UserAgent string `json:"userAgent"`
	Text      string `json:"text"`
	IsTyping  bool   `json:"isTyping"`
}

// ChatMessage is one accepted chat entry, as buffered in history and fanned
// out to clients. Immutable once appended.
type ChatMessage struct {
	Username string    `json:"username"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
	IsGif    bool      `json:"isGif,omitempty"`
	GifURL   string    `json:"gifUrl,omitempty"`
}

type historyEvent struct {
	Type string        `json:"type"`
	Data []ChatMessage `json:"data"`
}

type onlineEvent struct {
	Type  string   `json:"type"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

type systemEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type typingEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type chatEvent struct {
	Type string      `json:"type"`
	Data ChatMessage `json:"data"`
}

type clearEvent struct {
	Type string `json:"type"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
