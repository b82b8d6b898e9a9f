package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"media-rag/internal/models"
	"media-rag/internal/parser"
	"media-rag/internal/session"
)

const maxUploadMemory = 32 << 20

// uploadFields are the multipart fields carrying media files.
var uploadFields = []string{"pdf", "audio", "document"}

type Handler struct {
	store *session.Store
}

type AskRequest struct {
	Source string `json:"source"`
	Query  string `json:"query"`
}

type HistoryResponse struct {
	History models.History `json:"history"`
	Answer  string         `json:"answer,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": s.ID})
}

// AddSources ingests uploaded files and the comma separated youtube and urls fields.
func (h *Handler) AddSources(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var sources []parser.Source
	var rejected []session.SourceError
	if r.MultipartForm != nil {
		for _, field := range uploadFields {
			for _, fh := range r.MultipartForm.File[field] {
				src, err := parser.FromUpload(fh.Filename, uploadOpener(fh))
				if err != nil {
					rejected = append(rejected, session.SourceError{Label: fh.Filename, Err: err.Error()})
					continue
				}
				sources = append(sources, src)
			}
		}
	}
	sources = append(sources, parser.VideoSources(r.FormValue("youtube"))...)
	sources = append(sources, parser.WebSources(r.FormValue("urls"))...)

	if len(sources) == 0 && len(rejected) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no sources given"))
		return
	}

	report := s.Ingest(r.Context(), sources)
	report.Failed = append(rejected, report.Failed...)
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sources": s.Labels()})
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	history, err := s.Ask(r.Context(), req.Source, req.Query)
	switch {
	case errors.Is(err, session.ErrUnknownSource):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeJSON(w, http.StatusBadGateway, HistoryResponse{History: history, Error: "Error: " + err.Error()})
	default:
		writeJSON(w, http.StatusOK, HistoryResponse{History: history, Answer: history[len(history)-1].Text})
	}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: s.History()})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return s, true
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxUploadMemory)
	}
	return r.ParseForm()
}

func uploadOpener(fh *multipart.FileHeader) parser.Opener {
	return func(context.Context, *parser.Env) (io.ReadCloser, error) {
		return fh.Open()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error writing response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
