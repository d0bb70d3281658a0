// internal/app/system/media/media.go
package media

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/chathub/internal/app/system/limits"
)

// Uploader resolves an inline image payload (data URI) or an already-hosted
// URI into a stable URI the message can reference. The chat services treat
// the result as opaque.
type Uploader interface {
	Upload(ctx context.Context, payload string) (string, error)
}

var (
	ErrTooLarge  = errors.New("image payload too large")
	ErrBadFormat = errors.New("image payload is not a data URI or https URI")
)

// PassthroughUploader validates the payload shape and size and returns it
// unchanged. It stands in for a hosted media service; swapping in a real
// backend only requires another Uploader.
type PassthroughUploader struct{}

func (PassthroughUploader) Upload(_ context.Context, payload string) (string, error) {
	if len(payload) > limits.MaxImagePayloadSize {
		return "", ErrTooLarge
	}
	if !strings.HasPrefix(payload, "data:image/") && !strings.HasPrefix(payload, "https://") {
		return "", ErrBadFormat
	}
	return payload, nil
}
