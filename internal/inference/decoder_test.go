package inference

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/subtrack/subtrack/internal/models"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestDecodeBodyPlainText(t *testing.T) {
	p := &models.MessagePayload{
		MimeType: "text/plain",
		Body:     &models.MessageBody{Data: b64("Your Netflix subscription was CHARGED $15.99")},
	}
	assert.Equal(t, "your netflix subscription was charged $15.99", DecodeBody(p))
}

func TestDecodeBodyHTML(t *testing.T) {
	p := &models.MessagePayload{
		MimeType: "text/html",
		Body:     &models.MessageBody{Data: b64(`<html><body><p>Receipt</p><b>$6,600</b> charged <a href="https://x.test/cancel">manage</a></body></html>`)},
	}
	text := DecodeBody(p)
	assert.Contains(t, text, "$6,600 charged")
	assert.Contains(t, text, "receipt")
	// Link targets are ignored, anchor text survives.
	assert.NotContains(t, text, "x.test")
	assert.Contains(t, text, "manage")
}

func TestDecodeBodyHTMLByMarker(t *testing.T) {
	// Declared as text/plain but carrying an HTML document.
	p := &models.MessagePayload{
		MimeType: "text/plain",
		Body:     &models.MessageBody{Data: b64(`<html><body><script>var x=1;</script>invoice for €9.99</body></html>`)},
	}
	text := DecodeBody(p)
	assert.Contains(t, text, "invoice for €9.99")
	assert.NotContains(t, text, "var x")
}

func TestDecodeBodyMultipart(t *testing.T) {
	p := &models.MessagePayload{
		MimeType: "multipart/alternative",
		Parts: []models.MessagePayload{
			{MimeType: "text/plain", Body: &models.MessageBody{Data: b64("first part")}},
			{MimeType: "multipart/mixed", Parts: []models.MessagePayload{
				{MimeType: "text/plain", Body: &models.MessageBody{Data: b64("nested part")}},
			}},
		},
	}
	assert.Equal(t, "first part nested part", DecodeBody(p))
}

func TestDecodeBodyMalformedBase64(t *testing.T) {
	p := &models.MessagePayload{
		MimeType: "multipart/alternative",
		Parts: []models.MessagePayload{
			{MimeType: "text/plain", Body: &models.MessageBody{Data: "!!!not-base64!!!"}},
			{MimeType: "text/plain", Body: &models.MessageBody{Data: b64("still here")}},
		},
	}
	// The broken node contributes nothing; the batch never fails.
	assert.Equal(t, "still here", DecodeBody(p))
}

func TestDecodeBodyAbsentPayload(t *testing.T) {
	assert.Equal(t, "", DecodeBody(nil))
	assert.Equal(t, "", DecodeBody(&models.MessagePayload{MimeType: "text/plain"}))
}
