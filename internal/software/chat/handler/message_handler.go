package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type sendMessageRequest struct {
	Type       string             `json:"type"` // text | file | image | audio
	Text       string             `json:"text"` // body of text, caption of image
	Attachment *attachmentPayload `json:"attachment"`
}

type attachmentPayload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"` // base64 in JSON
}

// ----- Handler: POST /conversations/{conversation_id}/messages -----

// Accepts application/json, or multipart/form-data with fields type, text
// and a "file" part.
func (handler *ChatHTTPHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)

	self, err := participant(r)
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	var req sendMessageRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if req, err = handler.readMultipart(w, r); err != nil {
			handler.uploadError(ctx, w, err)
			return
		}
	} else if !handler.resp.DecodeJSON(ctx, w, r, handler.maxUpload*4/3+envelopeBytes, &req) {
		return
	}

	draft, err := toDraft(req)
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	in := ports.SendMessageInput{
		ConversationID: strings.TrimSpace(r.PathValue("conversation_id")),
		Sender:         self,
		Draft:          draft,
	}
	res, err := bounded(ctx, func(ctx context.Context) (contracts.ChatMessage, error) {
		return handler.svc.Send(ctx, in)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}
	handler.resp.JSON(ctx, w, http.StatusCreated, res)
}

func (handler *ChatHTTPHandler) readMultipart(w http.ResponseWriter, r *http.Request) (sendMessageRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, handler.maxUpload+envelopeBytes)
	defer r.Body.Close()

	if err := r.ParseMultipartForm(handler.maxUpload + envelopeBytes); err != nil {
		return sendMessageRequest{}, err
	}
	defer r.MultipartForm.RemoveAll()

	req := sendMessageRequest{Type: r.FormValue("type"), Text: r.FormValue("text")}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, nil
	case err != nil:
		return sendMessageRequest{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return sendMessageRequest{}, err
	}
	req.Attachment = &attachmentPayload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return req, nil
}

func (handler *ChatHTTPHandler) uploadError(ctx context.Context, w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		handler.resp.Error(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
		return
	}
	handler.resp.Error(ctx, w, http.StatusBadRequest, "invalid multipart body: "+err.Error(), err)
}

func toDraft(req sendMessageRequest) (chat.Draft, error) {
	kind := chat.BodyText
	if strings.TrimSpace(req.Type) != "" {
		k, err := chat.ParseBodyKind(req.Type)
		if err != nil {
			return chat.Draft{}, fmt.Errorf("%w: %s", apperr.ErrValidation, err)
		}
		kind = k
	}

	d := chat.Draft{Kind: kind, Text: req.Text}
	if req.Attachment != nil {
		d.Upload = &chat.Upload{
			Name:        strings.TrimSpace(req.Attachment.Name),
			ContentType: req.Attachment.ContentType,
			Data:        req.Attachment.Data,
		}
	}
	return d, nil
}

// ----- Handler: GET /conversations/{conversation_id}/messages -----

func (handler *ChatHTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := handler.resp.WithReqID(r.Context(), r)

	self, err := participant(r)
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	q := r.URL.Query()
	afterSeq, err := queryInt(q.Get("after_seq"))
	if err != nil || afterSeq < 0 {
		handler.resp.Fail(ctx, w, fmt.Errorf("%w: after_seq must be a non-negative integer", apperr.ErrValidation))
		return
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		handler.resp.Fail(ctx, w, fmt.Errorf("%w: limit must be an integer", apperr.ErrValidation))
		return
	}

	in := ports.HistoryInput{
		ConversationID: strings.TrimSpace(r.PathValue("conversation_id")),
		Reader:         self,
		AfterSeq:       afterSeq,
		Limit:          int(limit),
	}
	res, err := bounded(ctx, func(ctx context.Context) (ports.HistoryResult, error) {
		return handler.svc.History(ctx, in)
	})
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}
	handler.resp.JSON(ctx, w, http.StatusOK, res)
}

func queryInt(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
