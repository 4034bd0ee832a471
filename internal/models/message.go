package models

import "strings"

// Header is a single name/value pair carried by a message payload node.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageBody holds the base64url-encoded content of a leaf payload node.
type MessageBody struct {
	Data string `json:"data,omitempty"`
}

// MessagePayload is a MIME-like tree: a node either carries Body.Data or
// nests further Parts. Each part declares its own mime type.
type MessagePayload struct {
	MimeType string           `json:"mimeType,omitempty"`
	Headers  []Header         `json:"headers,omitempty"`
	Body     *MessageBody     `json:"body,omitempty"`
	Parts    []MessagePayload `json:"parts,omitempty"`
}

// RawMessage represents a message as returned by the mail provider API.
// Payload may be absent; Snippet is the fallback text source.
type RawMessage struct {
	ID      string          `json:"id"`
	Snippet string          `json:"snippet,omitempty"`
	Payload *MessagePayload `json:"payload,omitempty"`
}

// HeaderValue returns the value of the named header, matching the header
// name case-insensitively. Returns "" when the payload or header is absent.
func (p *MessagePayload) HeaderValue(name string) string {
	if p == nil {
		return ""
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
