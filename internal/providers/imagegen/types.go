package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// ReferenceImage is an inline image attached to a generation request, used to
// composite existing brand material onto a base image.
type ReferenceImage struct {
	MIME string
	Data []byte
}

// Request describes one image synthesis call.
type Request struct {
	Prompt        string
	AspectRatio   string
	RequestID     string
	ReferenceURLs []string
	References    []ReferenceImage
}

// Payload is the normalized output of a synthesis call: inline bytes plus
// MIME, or a remote URL when the provider stored the file itself.
type Payload struct {
	Data []byte
	MIME string
	URL  string
}

// Empty reports whether the payload carries neither bytes nor a URL.
func (p Payload) Empty() bool {
	return len(p.Data) == 0 && p.URL == ""
}

// DataURL renders the payload as an RFC 2397 data URL for inline delivery.
func (p Payload) DataURL() string {
	if len(p.Data) == 0 {
		return p.URL
	}
	mime := p.MIME
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(p.Data))
}

// DecodeDataURL parses a data URL back into a payload. Returns false for
// anything that is not a base64 data URL.
func DecodeDataURL(s string) (Payload, bool) {
	if !strings.HasPrefix(s, "data:") {
		return Payload{}, false
	}
	meta, encoded, ok := strings.Cut(s[len("data:"):], ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return Payload{}, false
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, false
	}
	return Payload{Data: data, MIME: strings.TrimSuffix(meta, ";base64")}, true
}

// Synthesizer turns prompts (and optional reference images) into images.
type Synthesizer interface {
	Generate(ctx context.Context, req Request) (Payload, error)
}
