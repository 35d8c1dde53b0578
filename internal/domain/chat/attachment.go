package chat

import (
	"fmt"
	"mime"
	"slices"
	"strings"

	"ride-dispatch/internal/domain/apperr"
)

// DefaultMaxAttachmentBytes is the upload cap when none is configured.
const DefaultMaxAttachmentBytes int64 = 10 << 20

// AttachmentPolicy is enforced before any bytes reach blob storage.
type AttachmentPolicy struct {
	MaxBytes int64
	Allowed  map[BodyKind][]string // media types; "image/*" style wildcards allowed
}

// DefaultAttachmentPolicy returns the 10 MiB policy with the standard allowlist.
func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxBytes: DefaultMaxAttachmentBytes,
		Allowed: map[BodyKind][]string{
			BodyImage: {"image/jpeg", "image/png", "image/gif", "image/webp", "image/heic"},
			BodyAudio: {"audio/*"},
			BodyFile: {
				"application/pdf",
				"text/plain",
				"text/csv",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				"application/vnd.ms-excel",
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"image/*",
			},
		},
	}
}

var (
	ErrMissingUpload      = fmt.Errorf("%w: attachment is required", apperr.ErrValidation)
	ErrEmptyAttachment    = fmt.Errorf("%w: attachment is empty", apperr.ErrValidation)
	ErrAttachmentTooLarge = fmt.Errorf("%w: attachment exceeds size limit", apperr.ErrValidation)
	ErrContentType        = fmt.Errorf("%w: attachment content type not allowed", apperr.ErrValidation)
)

// Check validates an upload for the given body kind and returns its normalized media type.
func (p AttachmentPolicy) Check(kind BodyKind, up *Upload) (string, error) {
	if up == nil {
		return "", ErrMissingUpload
	}
	size := int64(len(up.Data))
	if size == 0 {
		return "", ErrEmptyAttachment
	}

	limit := p.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxAttachmentBytes
	}
	if size > limit {
		return "", fmt.Errorf("%w (%d > %d bytes)", ErrAttachmentTooLarge, size, limit)
	}

	mediaType, _, err := mime.ParseMediaType(up.ContentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrContentType, up.ContentType)
	}
	mediaType = strings.ToLower(mediaType)

	allowed, ok := p.Allowed[kind]
	if !ok || !slices.ContainsFunc(allowed, func(pattern string) bool { return matchMediaType(pattern, mediaType) }) {
		return "", fmt.Errorf("%w: %s for %s", ErrContentType, mediaType, kind)
	}
	return mediaType, nil
}

func matchMediaType(pattern, mediaType string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(mediaType, prefix+"/")
	}
	return pattern == mediaType
}
