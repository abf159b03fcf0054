package handler

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/tubescribe/backend/gateways/capture/monitor"
)

type Handler struct {
	monitor *monitor.CaptureMonitor
	log     *slog.Logger
}

func New(monitor *monitor.CaptureMonitor, log *slog.Logger) *Handler {
	log.Debug("creating new handler")
	return &Handler{
		monitor: monitor,
		log:     log,
	}
}

type StartCaptureRequest struct {
	VideoID string `json:"video_id"`
}

type StartCaptureResponse struct {
	Success bool                   `json:"success"`
	Status  *monitor.CaptureStatus `json:"status"`
	Message string                 `json:"message"`
}

type ManualFetchRequest struct {
	TrackURL string `json:"track_url"`
}

type ManualFetchResponse struct {
	Success bool                   `json:"success"`
	Status  *monitor.CaptureStatus `json:"status,omitempty"`
	Message string                 `json:"message,omitempty"`
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	h.log.Debug("registering HTTP routes")
	mux.HandleFunc("POST /api/v1/captures/start", h.StartCapture)
	mux.HandleFunc("POST /api/v1/captures/{video_id}/fetch", h.ManualFetch)
	mux.HandleFunc("GET /api/v1/captures/{video_id}", h.GetStatus)
	mux.HandleFunc("GET /api/v1/health", h.HealthCheck)
	h.log.Info("all routes registered successfully")
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("health check request received",
		slog.String("method", r.Method),
		slog.String("remote_addr", r.RemoteAddr))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"status": true})
}

func (h *Handler) StartCapture(w http.ResponseWriter, r *http.Request) {
	h.log.Info("start capture request received",
		slog.String("method", r.Method),
		slog.String("remote_addr", r.RemoteAddr))
	var req StartCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode request", slog.String("error", err.Error()))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.VideoID == "" {
		h.log.Warn("video_id is empty")
		http.Error(w, "video_id is required", http.StatusBadRequest)
		return
	}

	h.log.Info("starting capture", slog.String("video_id", req.VideoID))
	status, err := h.monitor.StartCapture(r.Context(), req.VideoID)
	if err != nil {
		h.log.Error("monitor.StartCapture returned error",
			slog.String("error", err.Error()),
			slog.String("video_id", req.VideoID))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.log.Info("capture session started",
		slog.String("video_id", req.VideoID),
		slog.String("state", status.State))

	resp := StartCaptureResponse{
		Success: true,
		Status:  status,
		Message: "Capture session armed. Captions will be captured when the caption request is observed.",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) ManualFetch(w http.ResponseWriter, r *http.Request) {
	h.log.Info("manual fetch request received",
		slog.String("method", r.Method),
		slog.String("remote_addr", r.RemoteAddr))
	videoID := r.PathValue("video_id")
	if videoID == "" {
		h.log.Warn("video_id is empty")
		http.Error(w, "video_id is required", http.StatusBadRequest)
		return
	}

	var req ManualFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode request", slog.String("error", err.Error()))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TrackURL == "" {
		h.log.Warn("track_url is empty")
		http.Error(w, "track_url is required", http.StatusBadRequest)
		return
	}

	h.log.Info("running manual fetch",
		slog.String("video_id", videoID),
		slog.String("track_url", req.TrackURL))
	status, err := h.monitor.ManualFetch(r.Context(), videoID, req.TrackURL)
	if err != nil {
		h.log.Error("monitor.ManualFetch returned error",
			slog.String("error", err.Error()),
			slog.String("video_id", videoID))
		if status == nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		// The session may have recorded a retryable failure; ship its state
		// alongside the error so the caller can decide to retry.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(ManualFetchResponse{
			Success: false,
			Status:  status,
			Message: err.Error(),
		})
		return
	}
	h.log.Info("manual fetch completed",
		slog.String("video_id", videoID),
		slog.String("state", status.State))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ManualFetchResponse{Success: true, Status: status})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("status request received",
		slog.String("method", r.Method),
		slog.String("remote_addr", r.RemoteAddr))
	videoID := r.PathValue("video_id")
	if videoID == "" {
		h.log.Warn("video_id is empty")
		http.Error(w, "video_id is required", http.StatusBadRequest)
		return
	}

	status, err := h.monitor.Status(videoID)
	if err != nil {
		h.log.Warn("no session found", slog.String("video_id", videoID))
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
