package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tubescribe/backend/pkg/auth"
	"github.com/tubescribe/backend/pkg/json"
	"github.com/tubescribe/backend/services/store/entity"
	"github.com/tubescribe/backend/services/store/storage"
	"github.com/tubescribe/backend/services/store/usecase"
)

// requireAuth gates every request behind the bearer credential. A server with
// no secret configured answers 500: that is an operator error, not a client
// one.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verifier.Configured() {
			json.WriteError(w, http.StatusInternalServerError, fmt.Errorf("server has no API token configured"))
			return
		}
		token, err := auth.BearerToken(r)
		if err != nil {
			json.WriteError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			return
		}
		if err := s.verifier.Verify(token); err != nil {
			json.WriteError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) InitHandler(w http.ResponseWriter, r *http.Request) {
	info, err := s.usecase.Init(r.Context())
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, info)
}

func (s *Server) SaveHandler(w http.ResponseWriter, r *http.Request) {
	var rec entity.TranscriptRecord
	if err := json.ParseJSON(r, &rec); err != nil {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	res, err := s.usecase.Save(r.Context(), &rec)
	if err != nil {
		if errors.Is(err, usecase.ErrMissingVideoID) {
			json.WriteError(w, http.StatusBadRequest, err)
			return
		}
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) GetHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	rec, err := s.usecase.Get(r.Context(), videoID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) ListHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := s.usecase.GetAll(r.Context(), limit, offset)
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, records)
}

func (s *Server) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	res, err := s.usecase.Delete(r.Context(), videoID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("q is required"))
		return
	}

	records, err := s.usecase.Search(r.Context(), query)
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []entity.TranscriptRecord{}
	}
	json.WriteJSON(w, http.StatusOK, records)
}

func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.usecase.Stats(r.Context())
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
	export, err := s.usecase.ExportAll(r.Context())
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, export)
}

type importRequest struct {
	Records []entity.TranscriptRecord `json:"records"`
}

func (s *Server) ImportHandler(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.ParseJSON(r, &req); err != nil {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	res, err := s.usecase.ImportAll(r.Context(), req.Records)
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, res)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		json.WriteError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	json.WriteError(w, http.StatusInternalServerError, err)
}
