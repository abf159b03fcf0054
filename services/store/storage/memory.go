package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tubescribe/backend/services/store/entity"
)

// memory is the always-available fallback backend: a map guarded by a RWMutex.
type memory struct {
	mu      sync.RWMutex
	records map[string]entity.TranscriptRecord
}

// NewMemory creates the in-memory backend.
func NewMemory() Store {
	return &memory{
		records: make(map[string]entity.TranscriptRecord),
	}
}

func (s *memory) Init(ctx context.Context) (*entity.StorageInfo, error) {
	return &entity.StorageInfo{Backend: "memory", Ready: true}, nil
}

func (s *memory) Save(ctx context.Context, rec *entity.TranscriptRecord) (*entity.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.VideoID] = *rec
	return &entity.SaveResult{VideoID: rec.VideoID}, nil
}

func (s *memory) Get(ctx context.Context, videoID string) (*entity.TranscriptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *memory) GetAll(ctx context.Context, limit, offset int) ([]entity.TranscriptRecord, error) {
	limit, offset = clampLimit(limit, offset)

	s.mu.RLock()
	all := s.sortedLocked()
	s.mu.RUnlock()

	if offset >= len(all) {
		return []entity.TranscriptRecord{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	out := make([]entity.TranscriptRecord, 0, end-offset)
	for _, rec := range all[offset:end] {
		out = append(out, rec.WithoutText())
	}
	return out, nil
}

func (s *memory) Delete(ctx context.Context, videoID string) (*entity.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[videoID]; !ok {
		return nil, ErrNotFound
	}
	delete(s.records, videoID)
	return &entity.DeleteResult{VideoID: videoID}, nil
}

func (s *memory) Search(ctx context.Context, query string) ([]entity.TranscriptRecord, error) {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entity.TranscriptRecord
	for _, rec := range s.sortedLocked() {
		if strings.Contains(strings.ToLower(rec.Title), q) ||
			strings.Contains(strings.ToLower(rec.CleanText), q) ||
			strings.Contains(strings.ToLower(rec.ChannelName), q) {
			out = append(out, rec.WithoutText())
		}
	}
	return out, nil
}

func (s *memory) Stats(ctx context.Context) (*entity.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &entity.Stats{TotalCount: len(s.records)}
	for _, rec := range s.records {
		stats.TotalWords += rec.WordCount
		at := rec.CapturedAt
		if stats.FirstCapturedAt == nil || at.Before(*stats.FirstCapturedAt) {
			t := at
			stats.FirstCapturedAt = &t
		}
		if stats.LastCapturedAt == nil || at.After(*stats.LastCapturedAt) {
			t := at
			stats.LastCapturedAt = &t
		}
	}
	return stats, nil
}

func (s *memory) ExportAll(ctx context.Context) ([]entity.TranscriptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(), nil
}

func (s *memory) ImportAll(ctx context.Context, records []entity.TranscriptRecord) (*entity.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imported := 0
	for _, rec := range records {
		if rec.VideoID == "" {
			continue
		}
		s.records[rec.VideoID] = rec
		imported++
	}
	return &entity.ImportResult{ImportedCount: imported}, nil
}

func (s *memory) Close() error { return nil }

// sortedLocked returns all records newest first. Callers hold at least a
// read lock.
func (s *memory) sortedLocked() []entity.TranscriptRecord {
	all := make([]entity.TranscriptRecord, 0, len(s.records))
	for _, rec := range s.records {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CapturedAt.After(all[j].CapturedAt)
	})
	return all
}
