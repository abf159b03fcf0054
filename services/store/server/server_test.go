package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tubescribe/backend/pkg/auth"
	"github.com/tubescribe/backend/services/store/entity"
	"github.com/tubescribe/backend/services/store/storage"
	"github.com/tubescribe/backend/services/store/usecase"
)

const testToken = "test-secret"

func newTestServer(t *testing.T, verifier auth.Verifier) *httptest.Server {
	t.Helper()
	usc := usecase.New(storage.NewMemory())
	srv := httptest.NewServer(New(0, verifier, usc, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, auth.Verifier{Secret: testToken})

	if resp := doJSON(t, http.MethodGet, srv.URL+"/stats", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, srv.URL+"/stats", "wrong-token", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, srv.URL+"/stats", testToken, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", resp.StatusCode)
	}
}

func TestMissingServerSecretIs500(t *testing.T) {
	srv := newTestServer(t, auth.Verifier{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/stats", "anything", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when no secret configured", resp.StatusCode)
	}
}

func TestPreflightBeforeAuth(t *testing.T) {
	srv := newTestServer(t, auth.Verifier{Secret: testToken})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/transcripts", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	// No credential on the preflight, yet it must not be a 401.
	if resp.StatusCode == http.StatusUnauthorized {
		t.Fatal("preflight was rejected by auth")
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestSaveGetDeleteRoundTrip(t *testing.T) {
	srv := newTestServer(t, auth.Verifier{Secret: testToken})

	rec := entity.TranscriptRecord{
		VideoID:   "round-1",
		Title:     "A Video",
		CleanText: "hello world",
		WordCount: 2,
		CharCount: 11,
	}
	if resp := doJSON(t, http.MethodPost, srv.URL+"/transcripts", testToken, rec); resp.StatusCode != http.StatusOK {
		t.Fatalf("save: status = %d", resp.StatusCode)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/transcripts/round-1", testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d", resp.StatusCode)
	}
	var got entity.TranscriptRecord
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CleanText != "hello world" {
		t.Errorf("clean text = %q", got.CleanText)
	}
	if got.CapturedAt.IsZero() {
		t.Error("save did not stamp captured_at")
	}

	if resp := doJSON(t, http.MethodDelete, srv.URL+"/transcripts/round-1", testToken, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, srv.URL+"/transcripts/round-1", testToken, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestSaveWithoutVideoID(t *testing.T) {
	srv := newTestServer(t, auth.Verifier{Secret: testToken})

	resp := doJSON(t, http.MethodPost, srv.URL+"/transcripts", testToken, entity.TranscriptRecord{Title: "no id"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t, auth.Verifier{Secret: testToken})

	doJSON(t, http.MethodPost, srv.URL+"/transcripts", testToken, entity.TranscriptRecord{
		VideoID: "s-1", Title: "Concurrency Patterns", CleanText: "fan out fan in",
	})

	resp := doJSON(t, http.MethodGet, srv.URL+"/transcripts/search?q=concurrency", testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: status = %d", resp.StatusCode)
	}
	var records []entity.TranscriptRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].VideoID != "s-1" {
		t.Errorf("search results = %+v", records)
	}

	if resp := doJSON(t, http.MethodGet, srv.URL+"/transcripts/search", testToken, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("search without q: status = %d, want 400", resp.StatusCode)
	}
}

func TestExportImportEndpoints(t *testing.T) {
	srv := newTestServer(t, auth.Verifier{Secret: testToken})

	doJSON(t, http.MethodPost, srv.URL+"/transcripts", testToken, entity.TranscriptRecord{
		VideoID: "x-1", CleanText: "exported text", WordCount: 2,
	})

	resp := doJSON(t, http.MethodGet, srv.URL+"/export", testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status = %d", resp.StatusCode)
	}
	var export entity.Export
	if err := json.NewDecoder(resp.Body).Decode(&export); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(export.Records) != 1 || export.ExportID == "" || export.ExportedAt.IsZero() {
		t.Fatalf("export = %+v", export)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/import", testToken, map[string]any{"records": export.Records})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: status = %d", resp.StatusCode)
	}
	var res entity.ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode import: %v", err)
	}
	if res.ImportedCount != 1 {
		t.Errorf("imported count = %d, want 1", res.ImportedCount)
	}
}

func TestRemoteBackendAgainstServer(t *testing.T) {
	srv := newTestServer(t, auth.Verifier{Secret: testToken})

	store := storage.NewRemote(srv.URL, testToken)
	ctx := t.Context()

	info, err := store.Init(ctx)
	if err != nil {
		t.Fatalf("remote init: %v", err)
	}
	if info.Backend != "remote:memory" {
		t.Errorf("backend = %q, want remote:memory", info.Backend)
	}

	if _, err := store.Save(ctx, &entity.TranscriptRecord{VideoID: "r-1", CleanText: "via remote"}); err != nil {
		t.Fatalf("remote save: %v", err)
	}
	rec, err := store.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("remote get: %v", err)
	}
	if rec.CleanText != "via remote" {
		t.Errorf("clean text = %q", rec.CleanText)
	}
	if _, err := store.Get(ctx, "absent"); err != storage.ErrNotFound {
		t.Errorf("remote get absent err = %v, want ErrNotFound", err)
	}
}
