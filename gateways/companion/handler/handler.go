package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/tubescribe/backend/pkg/json"
	"github.com/tubescribe/backend/services/capture/handoff"
	"github.com/tubescribe/backend/services/capture/normalize"
	"github.com/tubescribe/backend/services/store/entity"
	"github.com/tubescribe/backend/services/store/storage"
	"github.com/tubescribe/backend/services/store/usecase"
)

// autoMarker flags a page load that should consume the hand-off slot instead
// of waiting for a manual paste.
const autoMarker = "auto"

type Handler struct {
	usecase usecase.Usecase
	channel handoff.Channel
	log     *slog.Logger
}

func New(usc usecase.Usecase, channel handoff.Channel, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		usecase: usc,
		channel: channel,
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.Landing)
	router.Get("/api/v1/health", h.HealthCheck)
	router.Post("/api/v1/transcripts", h.SaveTranscript)
	router.Get("/api/v1/transcripts", h.ListTranscripts)
	router.Get("/api/v1/transcripts/search", h.SearchTranscripts)
	router.Get("/api/v1/transcripts/{videoID}", h.GetTranscript)
	router.Delete("/api/v1/transcripts/{videoID}", h.DeleteTranscript)
	router.Get("/api/v1/stats", h.StatsHandler)
	router.Get("/api/v1/export", h.ExportHandler)
	router.Post("/api/v1/import", h.ImportHandler)
}

type landingResponse struct {
	Mode  string           `json:"mode"`
	Draft *draftTranscript `json:"draft,omitempty"`
}

type draftTranscript struct {
	VideoID    string `json:"video_id,omitempty"`
	RawPayload string `json:"raw_payload"`
	CleanText  string `json:"clean_text"`
	WordCount  int    `json:"word_count"`
	CharCount  int    `json:"char_count"`
}

// Landing is the paste surface. With the auto marker set it tries to consume
// the hand-off slot; every failure on that path degrades silently to the
// manual state, never to an error page.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get(autoMarker) != "1" {
		json.WriteJSON(w, http.StatusOK, landingResponse{Mode: "manual"})
		return
	}

	payload, ok, err := h.channel.Receive(r.Context())
	if err != nil {
		h.log.Warn("hand-off receive failed", slog.String("error", err.Error()))
		json.WriteJSON(w, http.StatusOK, landingResponse{Mode: "manual"})
		return
	}
	if !ok || !looksLikeCaptionPayload(payload) {
		if ok {
			h.log.Warn("hand-off payload is not a caption payload, discarding")
		}
		json.WriteJSON(w, http.StatusOK, landingResponse{Mode: "manual"})
		return
	}

	res, err := normalize.Normalize(payload)
	if err != nil {
		h.log.Warn("hand-off payload failed to normalize", slog.String("error", err.Error()))
		json.WriteJSON(w, http.StatusOK, landingResponse{Mode: "manual"})
		return
	}

	videoID := q.Get("v")
	if videoID == "" {
		// No video identity travelled with the payload: present a draft for
		// the user to complete.
		json.WriteJSON(w, http.StatusOK, landingResponse{
			Mode: "auto",
			Draft: &draftTranscript{
				RawPayload: payload,
				CleanText:  res.CleanText,
				WordCount:  res.WordCount,
				CharCount:  res.CharCount,
			},
		})
		return
	}

	rec := &entity.TranscriptRecord{
		VideoID:   videoID,
		CleanText: res.CleanText,
		RawSize:   len(payload),
		WordCount: res.WordCount,
		CharCount: res.CharCount,
	}
	if _, err := h.usecase.Save(r.Context(), rec); err != nil {
		h.log.Error("failed to save auto-consumed transcript",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()))
		json.WriteJSON(w, http.StatusOK, landingResponse{Mode: "manual"})
		return
	}
	h.log.Info("auto-consumed transcript saved",
		slog.String("video_id", videoID),
		slog.Int("word_count", res.WordCount))

	// Drop the marker from the address so a reload does not retrigger
	// consumption against an empty slot.
	http.Redirect(w, r, "/?"+url.Values{"v": {videoID}}.Encode(), http.StatusSeeOther)
}

// looksLikeCaptionPayload is a cheap shape gate: JSON-ish first byte and at
// least one timed event. Random clipboard content fails here and is dropped.
func looksLikeCaptionPayload(payload string) bool {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return normalize.HasEvents(trimmed)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	json.WriteJSON(w, http.StatusOK, map[string]bool{"status": true})
}

type saveTranscriptRequest struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	ChannelName     string `json:"channel_name"`
	Language        string `json:"language"`
	IsAutoGenerated bool   `json:"is_auto_generated"`
	Summary         string `json:"summary"`
	RawPayload      string `json:"raw_payload"`
}

// SaveTranscript is the manual paste path: raw caption JSON in, normalized
// record out.
func (h *Handler) SaveTranscript(w http.ResponseWriter, r *http.Request) {
	var req saveTranscriptRequest
	if err := json.ParseJSON(r, &req); err != nil {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}
	if req.VideoID == "" {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("video_id is required"))
		return
	}

	res, err := normalize.Normalize(req.RawPayload)
	if err != nil {
		if errors.Is(err, normalize.ErrInvalidJSON) {
			json.WriteError(w, http.StatusBadRequest, err)
			return
		}
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	rec := &entity.TranscriptRecord{
		VideoID:         req.VideoID,
		Title:           req.Title,
		ChannelName:     req.ChannelName,
		Language:        req.Language,
		IsAutoGenerated: req.IsAutoGenerated,
		Summary:         req.Summary,
		CleanText:       res.CleanText,
		RawSize:         len(req.RawPayload),
		WordCount:       res.WordCount,
		CharCount:       res.CharCount,
	}
	saved, err := h.usecase.Save(r.Context(), rec)
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	rec, err := h.usecase.Get(r.Context(), videoID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.usecase.GetAll(r.Context(), limit, offset)
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) DeleteTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	res, err := h.usecase.Delete(r.Context(), videoID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) SearchTranscripts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("q is required"))
		return
	}

	records, err := h.usecase.Search(r.Context(), query)
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []entity.TranscriptRecord{}
	}
	json.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.usecase.Stats(r.Context())
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	export, err := h.usecase.ExportAll(r.Context())
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, export)
}

type importRequest struct {
	Records []entity.TranscriptRecord `json:"records"`
}

func (h *Handler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.ParseJSON(r, &req); err != nil {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	res, err := h.usecase.ImportAll(r.Context(), req.Records)
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		json.WriteError(w, http.StatusNotFound, err)
		return
	}
	json.WriteError(w, http.StatusInternalServerError, err)
}
