package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ride-dispatch/internal/domain/apperr"
)

// BodyKind tags the message body variant.
type BodyKind string

const (
	BodyText  BodyKind = "text"
	BodyFile  BodyKind = "file"
	BodyImage BodyKind = "image"
	BodyAudio BodyKind = "audio"
)

var ErrInvalidBodyKind = errors.New("invalid message type")

func ParseBodyKind(in string) (BodyKind, error) {
	k := BodyKind(strings.ToLower(strings.TrimSpace(in)))
	switch k {
	case BodyText, BodyFile, BodyImage, BodyAudio:
		return k, nil
	default:
		return "", ErrInvalidBodyKind
	}
}

// Body is the closed union of message payloads.
type Body interface {
	Kind() BodyKind
	sealed()
}

// Attachment describes an uploaded blob.
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type Text struct {
	Text string
}

type File struct {
	Attachment
}

type Image struct {
	Attachment
	Caption string
}

type Audio struct {
	Attachment
}

func (Text) Kind() BodyKind  { return BodyText }
func (File) Kind() BodyKind  { return BodyFile }
func (Image) Kind() BodyKind { return BodyImage }
func (Audio) Kind() BodyKind { return BodyAudio }

func (Text) sealed()  {}
func (File) sealed()  {}
func (Image) sealed() {}
func (Audio) sealed() {}

// AttachmentOf returns the attachment of a non-text body.
func AttachmentOf(b Body) (Attachment, bool) {
	switch v := b.(type) {
	case File:
		return v.Attachment, true
	case Image:
		return v.Attachment, true
	case Audio:
		return v.Attachment, true
	default:
		return Attachment{}, false
	}
}

// Message is one entry of a conversation's history. Seq is assigned by the store.
type Message struct {
	ID             string
	ConversationID string
	Seq            int64
	Sender         Participant
	Body           Body
	CreatedAt      time.Time
	ReadAt         *time.Time
}

// Before orders messages by createdAt, ties broken by seq.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.Seq < other.Seq
}

// Upload carries raw attachment bytes before they reach blob storage.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Draft is an outbound message as submitted by a sender.
type Draft struct {
	Kind   BodyKind
	Text   string
	Upload *Upload
}

var ErrEmptyMessage = fmt.Errorf("%w: message text is empty", apperr.ErrValidation)

// TextBody validates and returns the body of a text draft.
func (d Draft) TextBody() (Text, error) {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return Text{}, ErrEmptyMessage
	}
	return Text{Text: text}, nil
}

// WithAttachment builds the body variant for an uploaded attachment.
func (d Draft) WithAttachment(a Attachment) (Body, error) {
	switch d.Kind {
	case BodyFile:
		return File{Attachment: a}, nil
	case BodyImage:
		return Image{Attachment: a, Caption: strings.TrimSpace(d.Text)}, nil
	case BodyAudio:
		return Audio{Attachment: a}, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperr.ErrValidation, ErrInvalidBodyKind)
	}
}
