package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tubescribe/backend/services/store/entity"
)

// remote talks to a store service over its bearer-gated JSON surface. The
// endpoints mirror the Store interface 1:1, so this backend is a thin codec.
type remote struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewRemote creates the remote backend.
func NewRemote(baseURL, token string) Store {
	return &remote{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *remote) Init(ctx context.Context) (*entity.StorageInfo, error) {
	var info entity.StorageInfo
	if err := s.call(ctx, http.MethodPost, "/init", nil, &info); err != nil {
		return nil, err
	}
	// Report what the caller is actually using, not what the far side runs on.
	info.Backend = "remote:" + info.Backend
	return &info, nil
}

func (s *remote) Save(ctx context.Context, rec *entity.TranscriptRecord) (*entity.SaveResult, error) {
	var res entity.SaveResult
	if err := s.call(ctx, http.MethodPost, "/transcripts", rec, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *remote) Get(ctx context.Context, videoID string) (*entity.TranscriptRecord, error) {
	var rec entity.TranscriptRecord
	if err := s.call(ctx, http.MethodGet, "/transcripts/"+url.PathEscape(videoID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *remote) GetAll(ctx context.Context, limit, offset int) ([]entity.TranscriptRecord, error) {
	limit, offset = clampLimit(limit, offset)
	path := "/transcripts?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var out []entity.TranscriptRecord
	if err := s.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *remote) Delete(ctx context.Context, videoID string) (*entity.DeleteResult, error) {
	var res entity.DeleteResult
	if err := s.call(ctx, http.MethodDelete, "/transcripts/"+url.PathEscape(videoID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *remote) Search(ctx context.Context, query string) ([]entity.TranscriptRecord, error) {
	var out []entity.TranscriptRecord
	if err := s.call(ctx, http.MethodGet, "/transcripts/search?q="+url.QueryEscape(query), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *remote) Stats(ctx context.Context) (*entity.Stats, error) {
	var stats entity.Stats
	if err := s.call(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *remote) ExportAll(ctx context.Context) ([]entity.TranscriptRecord, error) {
	var export entity.Export
	if err := s.call(ctx, http.MethodGet, "/export", nil, &export); err != nil {
		return nil, err
	}
	return export.Records, nil
}

func (s *remote) ImportAll(ctx context.Context, records []entity.TranscriptRecord) (*entity.ImportResult, error) {
	var res entity.ImportResult
	body := map[string]any{"records": records}
	if err := s.call(ctx, http.MethodPost, "/import", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *remote) Close() error { return nil }

func (s *remote) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}
