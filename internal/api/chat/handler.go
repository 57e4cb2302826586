package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/logger"
	"github.com/futig/formchat-backend/internal/pkg/response"
	"github.com/futig/formchat-backend/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	sessionHeader  = "X-Session-ID"
	languageHeader = "Language"
	uploadField    = "file"
)

type Handler struct {
	usecase   ConversationUsecase
	artifacts ArtifactStore
	validator *validator.Validator
	cfg       config.FileUploadConfig
}

func NewHandler(
	usecase ConversationUsecase,
	artifacts ArtifactStore,
	validator *validator.Validator,
	cfg config.FileUploadConfig,
) *Handler {
	return &Handler{
		usecase:   usecase,
		artifacts: artifacts,
		validator: validator,
		cfg:       cfg,
	}
}

// Upload handles POST /upload - ingest a document and ask its first question
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Upload")

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}

	fh := firstFile(r, uploadField)
	if err := h.validator.ValidateUpload(fh); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	language := firstNonEmpty(r.Header.Get(languageHeader), r.FormValue("language"))
	sessionID := firstNonEmpty(r.Header.Get(sessionHeader), r.FormValue("session_id"))
	if err := h.validateSessionAndLanguage(sessionID, language); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	file, err := fh.Open()
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "failed to open uploaded file", err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "failed to read uploaded file", err)
		return
	}

	sessionID = h.usecase.ResolveSessionID(sessionID)
	ctx = logger.WithSession(ctx, sessionID)

	doc := &entity.Document{
		Name:        validator.SanitizeFilename(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}

	ctxzap.Info(ctx, "ingesting document",
		zap.String("file_name", doc.Name),
		zap.Int("size", len(content)),
		zap.String("language", language),
	)

	question, err := h.usecase.Ingest(ctx, sessionID, doc, language)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, entity.ReplyResponse{Reply: question, SessionID: sessionID})
}

// Chat handles POST /chat - one user turn
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	req.SessionID = firstNonEmpty(req.SessionID, r.Header.Get(sessionHeader))
	req.Language = firstNonEmpty(req.Language, r.Header.Get(languageHeader))
	if err := h.validator.ValidateChat(&req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	sessionID := h.usecase.ResolveSessionID(req.SessionID)
	ctx = logger.WithSession(ctx, sessionID)

	reply, err := h.usecase.SubmitTurn(ctx, sessionID, req.Message, req.Language)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Debug(ctx, "turn handled", zap.String("mode", string(reply.Mode)), zap.Bool("completed", reply.Completed))

	response.Success(w, entity.ChatResponse{TurnReply: *reply, SessionID: sessionID})
}

// Rephrase handles POST /rephrase - simpler wording of the pending question
func (h *Handler) Rephrase(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Rephrase")

	var req entity.RephraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	req.SessionID = firstNonEmpty(req.SessionID, r.Header.Get(sessionHeader))
	if err := h.validator.ValidateSessionID(req.SessionID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	sessionID := h.usecase.ResolveSessionID(req.SessionID)
	ctx = logger.WithSession(ctx, sessionID)

	reply, err := h.usecase.RephraseCurrent(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, entity.ReplyResponse{Reply: reply, SessionID: sessionID})
}

// GetSession handles GET /session/{id} - session status
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "GetSession"),
	)

	if err := h.validator.ValidateSessionID(sessionID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	snapshot, err := h.usecase.Snapshot(sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, snapshot)
}

// Download handles GET /download/{name} - finalized artifact bytes
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := logger.AddFields(r.Context(),
		zap.String("artifact", name),
		zap.String("action", "Download"),
	)

	artifact, data, err := h.artifacts.Open(name)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "serving artifact", zap.Int("size", len(data)))

	response.Attachment(w, artifact.Handle, artifact.ContentType, data)
}

func (h *Handler) validateSessionAndLanguage(sessionID, language string) error {
	if err := h.validator.ValidateSessionID(sessionID); err != nil {
		return err
	}
	return h.validator.ValidateLanguage(language)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrEmptyDocument):
		h.respondError(ctx, w, http.StatusBadRequest, "no questions found in the document", err)
	case errors.Is(err, entity.ErrEmptyMessage):
		h.respondError(ctx, w, http.StatusBadRequest, "message cannot be empty", err)
	case errors.Is(err, entity.ErrInvalidExtension) || errors.Is(err, entity.ErrFileTooLarge) || errors.Is(err, entity.ErrInvalidFile):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid file", err)
	case errors.Is(err, entity.ErrInvalidParameter) || errors.Is(err, entity.ErrInvalidFormat) || errors.Is(err, entity.ErrMissingField):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	case errors.Is(err, entity.ErrNoActiveQuestion):
		h.respondError(ctx, w, http.StatusConflict, "no active question", err)
	case errors.Is(err, entity.ErrSessionNotFound) || errors.Is(err, entity.ErrArtifactNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	case errors.Is(err, entity.ErrPopulation):
		h.respondError(ctx, w, http.StatusUnprocessableEntity, "failed to fill the form", err)
	case errors.Is(err, entity.ErrGateway):
		h.respondError(ctx, w, http.StatusBadGateway, "language model unavailable", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}

func firstFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil
	}
	return r.MultipartForm.File[field][0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
