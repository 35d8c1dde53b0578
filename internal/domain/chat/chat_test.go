package chat

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/apperr"
)

var (
	driver     = Participant{Kind: KindDriver, ID: "d1"}
	dispatcher = Participant{Kind: KindDispatcher, ID: "ops1"}
	customer   = Participant{Kind: KindCustomer, ID: "c1"}
)

func TestCanonicalIsOrderIndependent(t *testing.T) {
	a1, b1 := Canonical(customer, driver)
	a2, b2 := Canonical(driver, customer)
	require.Equal(t, a1, a2)
	require.Equal(t, b1, b2)
	require.Equal(t, driver, a1)

	x := Participant{Kind: KindDriver, ID: "b"}
	y := Participant{Kind: KindDriver, ID: "a"}
	first, _ := Canonical(x, y)
	require.Equal(t, y, first)
}

func TestRelationshipOf(t *testing.T) {
	r, err := RelationshipOf(dispatcher, driver)
	require.NoError(t, err)
	require.Equal(t, RelationshipDuty, r)

	r, err = RelationshipOf(customer, driver)
	require.NoError(t, err)
	require.Equal(t, RelationshipBooking, r)

	_, err = RelationshipOf(customer, dispatcher)
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = RelationshipOf(driver, Participant{Kind: KindDriver, ID: "d2"})
	require.ErrorIs(t, err, ErrUnsupportedPair)
}

func TestNewConversationCanonicalizes(t *testing.T) {
	blank := "  "
	c, err := NewConversation("co", customer, driver, &blank, time.Now())
	require.NoError(t, err)
	require.Equal(t, driver, c.Participant1)
	require.Equal(t, customer, c.Participant2)
	require.Nil(t, c.BookingID)
	require.Equal(t, "", c.BookingKey())
	require.True(t, c.Has(customer))
	require.False(t, c.Has(dispatcher))
	require.Equal(t, driver, c.Counterpart(customer))

	_, err = NewConversation("", driver, dispatcher, nil, time.Now())
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = NewConversation("co", Participant{Kind: "robot", ID: "r"}, driver, nil, time.Now())
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMessageOrdering(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	a := Message{CreatedAt: ts, Seq: 1}
	b := Message{CreatedAt: ts, Seq: 2}
	c := Message{CreatedAt: ts.Add(-time.Second), Seq: 3}
	require.True(t, a.Before(b))
	require.False(t, b.Before(a))
	require.True(t, c.Before(a))
}

func TestDraftBodies(t *testing.T) {
	_, err := Draft{Kind: BodyText, Text: " \n "}.TextBody()
	require.ErrorIs(t, err, ErrEmptyMessage)

	body, err := Draft{Kind: BodyImage, Text: " look "}.WithAttachment(Attachment{URL: "u"})
	require.NoError(t, err)
	img, ok := body.(Image)
	require.True(t, ok)
	require.Equal(t, "look", img.Caption)

	att, ok := AttachmentOf(body)
	require.True(t, ok)
	require.Equal(t, "u", att.URL)

	_, ok = AttachmentOf(Text{Text: "hi"})
	require.False(t, ok)
}

func TestAttachmentPolicy(t *testing.T) {
	p := DefaultAttachmentPolicy()
	p.MaxBytes = 16

	cases := []struct {
		name    string
		kind    BodyKind
		upload  *Upload
		wantErr error
		want    string
	}{
		{"missing", BodyFile, nil, ErrMissingUpload, ""},
		{"empty", BodyFile, &Upload{ContentType: "application/pdf"}, ErrEmptyAttachment, ""},
		{"too large", BodyFile, &Upload{ContentType: "application/pdf", Data: bytes.Repeat([]byte("x"), 17)}, ErrAttachmentTooLarge, ""},
		{"at limit", BodyFile, &Upload{ContentType: "application/pdf", Data: bytes.Repeat([]byte("x"), 16)}, nil, "application/pdf"},
		{"image params", BodyImage, &Upload{ContentType: "Image/PNG; charset=binary", Data: []byte("png")}, nil, "image/png"},
		{"audio wildcard", BodyAudio, &Upload{ContentType: "audio/ogg", Data: []byte("ogg")}, nil, "audio/ogg"},
		{"wrong kind", BodyImage, &Upload{ContentType: "application/pdf", Data: []byte("pdf")}, ErrContentType, ""},
		{"garbage type", BodyFile, &Upload{ContentType: ";;", Data: []byte("x")}, ErrContentType, ""},
		{"text kind", BodyText, &Upload{ContentType: "text/plain", Data: []byte("x")}, ErrContentType, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.Check(tc.kind, tc.upload)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultPolicyCapIsTenMiB(t *testing.T) {
	p := AttachmentPolicy{Allowed: DefaultAttachmentPolicy().Allowed}
	big := &Upload{ContentType: "application/pdf", Data: make([]byte, 10<<20+1)}
	_, err := p.Check(BodyFile, big)
	require.ErrorIs(t, err, ErrAttachmentTooLarge)
}
