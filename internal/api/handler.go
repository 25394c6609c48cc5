package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"jargon-translator/internal/models"
	"jargon-translator/internal/parser"
	"jargon-translator/internal/translator"
	"jargon-translator/internal/watsonx"
)

// DefaultMaxUploadSize bounds an uploaded document.
const DefaultMaxUploadSize = 32 << 20

// Translator is the subset of the translator service the API drives.
type Translator interface {
	LoadDocument(ctx context.Context, name, text string) (*translator.Document, []string)
	UnloadDocument()
	Translate(ctx context.Context, st translator.State, doc *translator.Document, role models.Role, statement string) (translator.State, models.Explanation, error)
	ExplainMore(ctx context.Context, st translator.State, role models.Role) (models.Explanation, error)
}

// Loader extracts the text of a document on disk.
type Loader func(path string) (*parser.Document, error)

// Handler serves a single session. Actions are serialised so the session
// state always moves from one complete value to the next.
type Handler struct {
	svc           Translator
	load          Loader
	maxUploadSize int64

	mu    sync.Mutex
	state translator.State
	doc   *translator.Document
}

// NewHandler creates a handler for the session st. A nil loader uses
// parser.ParseFile.
func NewHandler(svc Translator, load Loader, st translator.State) *Handler {
	if load == nil {
		load = parser.ParseFile
	}
	return &Handler{svc: svc, load: load, maxUploadSize: DefaultMaxUploadSize, state: st}
}

// GetState handles GET /api/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.respondJSON(w, http.StatusOK, StateResponse{State: h.state, Document: h.doc})
}

// UploadDocument handles POST /api/document
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "a document is required in the \"file\" field", err)
		return
	}
	defer file.Close()

	path, err := saveUpload(file, header.Filename)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to store upload", err)
		return
	}
	defer os.Remove(path)

	parsed, err := h.load(path)
	if err != nil {
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
			return
		}
		h.respondError(ctx, w, http.StatusUnprocessableEntity, "could not read document", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	doc, warnings := h.svc.LoadDocument(ctx, header.Filename, parsed.Text)
	h.doc = doc
	h.respondJSON(w, http.StatusOK, DocumentResponse{
		Document: doc,
		Warnings: append(parsed.Warnings, warnings...),
	})
}

// saveUpload copies the upload into a temporary file that keeps the
// original extension, which is what the parser dispatches on.
func saveUpload(src io.Reader, name string) (string, error) {
	dst, err := os.CreateTemp("", "upload-*"+filepath.Ext(name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

// DeleteDocument handles DELETE /api/document
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.svc.UnloadDocument()
	h.doc = nil
	w.WriteHeader(http.StatusNoContent)
}

// Translate handles POST /api/translate
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	role, err := parseRole(req.Role)
	if err != nil {
		h.handleServiceError(ctx, w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	next, out, err := h.svc.Translate(ctx, h.state, h.doc, role, req.Statement)
	if err != nil {
		h.handleServiceError(ctx, w, err)
		return
	}
	h.state = next
	h.respondJSON(w, http.StatusOK, ExplanationResponse{
		Title:       "Simplified Explanation",
		Explanation: out,
		State:       next,
	})
}

// ExplainMore handles POST /api/explain-more
func (h *Handler) ExplainMore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// the body is optional
	var req ExplainMoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	role, err := parseRole(req.Role)
	if err != nil {
		h.handleServiceError(ctx, w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out, err := h.svc.ExplainMore(ctx, h.state, role)
	if err != nil {
		h.handleServiceError(ctx, w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, ExplanationResponse{
		Title:       "Even Simpler Explanation",
		Explanation: out,
		State:       h.state,
	})
}

// parseRole defaults an omitted role to the first selectable one.
func parseRole(s string) (models.Role, error) {
	if s == "" {
		return models.Roles[0], nil
	}
	return models.ParseRole(s)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, data)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	logger := zerolog.Ctx(ctx)
	if err != nil {
		logger.Error().Err(err).Msg(message)
	} else {
		logger.Error().Msg(message)
	}
	h.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func (h *Handler) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var apiErr *watsonx.APIError
	var netErr *watsonx.NetworkError

	switch {
	case errors.Is(err, translator.ErrEmptyStatement),
		errors.Is(err, translator.ErrNoExplanation),
		errors.Is(err, models.ErrUnknownRole):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &apiErr):
		zerolog.Ctx(ctx).Error().Err(err).Msg("generation service rejected the request")
		h.respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:      http.StatusText(http.StatusBadGateway),
			Message:    "generation failed",
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.Body,
		})
	case errors.As(err, &netErr), errors.Is(err, context.DeadlineExceeded):
		h.respondError(ctx, w, http.StatusBadGateway, "generation service unreachable", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
