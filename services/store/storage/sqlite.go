package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tubescribe/backend/services/store/entity"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (or creates) the SQLite transcript database at path.
func NewSQLite(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &sqliteStore{db: db, path: path}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS transcripts (
		video_id          TEXT PRIMARY KEY,
		title             TEXT NOT NULL DEFAULT '',
		channel_name      TEXT NOT NULL DEFAULT '',
		clean_text        TEXT NOT NULL DEFAULT '',
		raw_size          INTEGER NOT NULL DEFAULT 0,
		word_count        INTEGER NOT NULL DEFAULT 0,
		char_count        INTEGER NOT NULL DEFAULT 0,
		language          TEXT NOT NULL DEFAULT '',
		is_auto_generated INTEGER NOT NULL DEFAULT 0,
		summary           TEXT NOT NULL DEFAULT '',
		captured_at       TEXT NOT NULL
	)`)
	return err
}

func (s *sqliteStore) Init(ctx context.Context) (*entity.StorageInfo, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &entity.StorageInfo{Backend: "sqlite", Ready: true}, nil
}

func (s *sqliteStore) Save(ctx context.Context, rec *entity.TranscriptRecord) (*entity.SaveResult, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (video_id, title, channel_name, clean_text, raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET
			title = excluded.title,
			channel_name = excluded.channel_name,
			clean_text = excluded.clean_text,
			raw_size = excluded.raw_size,
			word_count = excluded.word_count,
			char_count = excluded.char_count,
			language = excluded.language,
			is_auto_generated = excluded.is_auto_generated,
			summary = excluded.summary,
			captured_at = excluded.captured_at`,
		rec.VideoID, rec.Title, rec.ChannelName, rec.CleanText, rec.RawSize, rec.WordCount, rec.CharCount,
		rec.Language, boolToInt(rec.IsAutoGenerated), rec.Summary, rec.CapturedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: save: %w", err)
	}
	return &entity.SaveResult{VideoID: rec.VideoID}, nil
}

func (s *sqliteStore) Get(ctx context.Context, videoID string) (*entity.TranscriptRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, title, channel_name, clean_text, raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at
		 FROM transcripts WHERE video_id = ?`, videoID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	return rec, nil
}

func (s *sqliteStore) GetAll(ctx context.Context, limit, offset int) ([]entity.TranscriptRecord, error) {
	limit, offset = clampLimit(limit, offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, title, channel_name, '', raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at
		 FROM transcripts ORDER BY captured_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	return collectRecords(rows)
}

func (s *sqliteStore) Delete(ctx context.Context, videoID string) (*entity.DeleteResult, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = ?`, videoID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return &entity.DeleteResult{VideoID: videoID}, nil
}

func (s *sqliteStore) Search(ctx context.Context, query string) ([]entity.TranscriptRecord, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, title, channel_name, '', raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at
		 FROM transcripts
		 WHERE title LIKE ? COLLATE NOCASE
		    OR clean_text LIKE ? COLLATE NOCASE
		    OR channel_name LIKE ? COLLATE NOCASE
		 ORDER BY captured_at DESC`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	return collectRecords(rows)
}

func (s *sqliteStore) Stats(ctx context.Context) (*entity.Stats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(word_count), 0), MIN(captured_at), MAX(captured_at) FROM transcripts`)

	var first, last sql.NullString
	stats := &entity.Stats{}
	if err := row.Scan(&stats.TotalCount, &stats.TotalWords, &first, &last); err != nil {
		return nil, fmt.Errorf("sqlite: stats: %w", err)
	}
	if first.Valid {
		if t, err := time.Parse(time.RFC3339Nano, first.String); err == nil {
			stats.FirstCapturedAt = &t
		}
	}
	if last.Valid {
		if t, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
			stats.LastCapturedAt = &t
		}
	}
	return stats, nil
}

func (s *sqliteStore) ExportAll(ctx context.Context) ([]entity.TranscriptRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, title, channel_name, clean_text, raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at
		 FROM transcripts ORDER BY captured_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: export: %w", err)
	}
	return collectRecords(rows)
}

func (s *sqliteStore) ImportAll(ctx context.Context, records []entity.TranscriptRecord) (*entity.ImportResult, error) {
	imported := 0
	for _, rec := range records {
		if rec.VideoID == "" {
			continue
		}
		if _, err := s.Save(ctx, &rec); err != nil {
			// Best effort per record.
			continue
		}
		imported++
	}
	return &entity.ImportResult{ImportedCount: imported}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*entity.TranscriptRecord, error) {
	var rec entity.TranscriptRecord
	var auto int
	var capturedAt string
	err := row.Scan(&rec.VideoID, &rec.Title, &rec.ChannelName, &rec.CleanText,
		&rec.RawSize, &rec.WordCount, &rec.CharCount, &rec.Language, &auto, &rec.Summary, &capturedAt)
	if err != nil {
		return nil, err
	}
	rec.IsAutoGenerated = auto != 0
	if t, err := time.Parse(time.RFC3339Nano, capturedAt); err == nil {
		rec.CapturedAt = t
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]entity.TranscriptRecord, error) {
	defer rows.Close()
	out := []entity.TranscriptRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
