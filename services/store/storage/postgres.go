package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tubescribe/backend/services/store/entity"

	_ "github.com/lib/pq"
)

type postgresStore struct {
	db *sql.DB
}

// NewPostgres connects to Postgres and prepares the transcripts table.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := initPostgresSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: init schema: %w", err)
	}
	return &postgresStore{db: db}, nil
}

func initPostgresSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS transcripts (
		video_id          TEXT PRIMARY KEY,
		title             TEXT NOT NULL DEFAULT '',
		channel_name      TEXT NOT NULL DEFAULT '',
		clean_text        TEXT NOT NULL DEFAULT '',
		raw_size          INTEGER NOT NULL DEFAULT 0,
		word_count        INTEGER NOT NULL DEFAULT 0,
		char_count        INTEGER NOT NULL DEFAULT 0,
		language          TEXT NOT NULL DEFAULT '',
		is_auto_generated BOOLEAN NOT NULL DEFAULT FALSE,
		summary           TEXT NOT NULL DEFAULT '',
		captured_at       TIMESTAMPTZ NOT NULL
	)`)
	return err
}

func (s *postgresStore) Init(ctx context.Context) (*entity.StorageInfo, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &entity.StorageInfo{Backend: "postgres", Ready: true}, nil
}

func (s *postgresStore) Save(ctx context.Context, rec *entity.TranscriptRecord) (*entity.SaveResult, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (video_id, title, channel_name, clean_text, raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (video_id) DO UPDATE SET
			title = EXCLUDED.title,
			channel_name = EXCLUDED.channel_name,
			clean_text = EXCLUDED.clean_text,
			raw_size = EXCLUDED.raw_size,
			word_count = EXCLUDED.word_count,
			char_count = EXCLUDED.char_count,
			language = EXCLUDED.language,
			is_auto_generated = EXCLUDED.is_auto_generated,
			summary = EXCLUDED.summary,
			captured_at = EXCLUDED.captured_at`,
		rec.VideoID, rec.Title, rec.ChannelName, rec.CleanText, rec.RawSize, rec.WordCount, rec.CharCount,
		rec.Language, rec.IsAutoGenerated, rec.Summary, rec.CapturedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: save: %w", err)
	}
	return &entity.SaveResult{VideoID: rec.VideoID}, nil
}

func (s *postgresStore) Get(ctx context.Context, videoID string) (*entity.TranscriptRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, title, channel_name, clean_text, raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at
		 FROM transcripts WHERE video_id = $1`, videoID)
	rec, err := scanPGRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	return rec, nil
}

func (s *postgresStore) GetAll(ctx context.Context, limit, offset int) ([]entity.TranscriptRecord, error) {
	limit, offset = clampLimit(limit, offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, title, channel_name, '', raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at
		 FROM transcripts ORDER BY captured_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	return collectPGRecords(rows)
}

func (s *postgresStore) Delete(ctx context.Context, videoID string) (*entity.DeleteResult, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = $1`, videoID)
	if err != nil {
		return nil, fmt.Errorf("postgres: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return &entity.DeleteResult{VideoID: videoID}, nil
}

func (s *postgresStore) Search(ctx context.Context, query string) ([]entity.TranscriptRecord, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, title, channel_name, '', raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at
		 FROM transcripts
		 WHERE title ILIKE $1 OR clean_text ILIKE $1 OR channel_name ILIKE $1
		 ORDER BY captured_at DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	return collectPGRecords(rows)
}

func (s *postgresStore) Stats(ctx context.Context) (*entity.Stats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(word_count), 0), MIN(captured_at), MAX(captured_at) FROM transcripts`)

	var first, last sql.NullTime
	stats := &entity.Stats{}
	if err := row.Scan(&stats.TotalCount, &stats.TotalWords, &first, &last); err != nil {
		return nil, fmt.Errorf("postgres: stats: %w", err)
	}
	if first.Valid {
		stats.FirstCapturedAt = &first.Time
	}
	if last.Valid {
		stats.LastCapturedAt = &last.Time
	}
	return stats, nil
}

func (s *postgresStore) ExportAll(ctx context.Context) ([]entity.TranscriptRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, title, channel_name, clean_text, raw_size, word_count, char_count, language, is_auto_generated, summary, captured_at
		 FROM transcripts ORDER BY captured_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: export: %w", err)
	}
	return collectPGRecords(rows)
}

func (s *postgresStore) ImportAll(ctx context.Context, records []entity.TranscriptRecord) (*entity.ImportResult, error) {
	imported := 0
	for _, rec := range records {
		if rec.VideoID == "" {
			continue
		}
		if _, err := s.Save(ctx, &rec); err != nil {
			continue
		}
		imported++
	}
	return &entity.ImportResult{ImportedCount: imported}, nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

func scanPGRecord(row rowScanner) (*entity.TranscriptRecord, error) {
	var rec entity.TranscriptRecord
	err := row.Scan(&rec.VideoID, &rec.Title, &rec.ChannelName, &rec.CleanText,
		&rec.RawSize, &rec.WordCount, &rec.CharCount, &rec.Language, &rec.IsAutoGenerated, &rec.Summary, &rec.CapturedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectPGRecords(rows *sql.Rows) ([]entity.TranscriptRecord, error) {
	defer rows.Close()
	out := []entity.TranscriptRecord{}
	for rows.Next() {
		rec, err := scanPGRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
