package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tubescribe/backend/gateways/capture/clients/youtube"
	"github.com/tubescribe/backend/services/capture/handoff"
	"github.com/tubescribe/backend/services/capture/intercept"
	"github.com/tubescribe/backend/services/capture/session"
)

const captionPayload = `{"events":[{"tStartMs":0,"segs":[{"utf8":"a caption payload long enough to clear the minimum body length guard for capture sessions"}]}]}`

// seedSession wires a session into the monitor the way StartCapture does,
// without touching the network for watch-page metadata.
func seedSession(t *testing.T, m *CaptureMonitor, videoID string) *http.Client {
	t.Helper()
	client := &http.Client{}
	sess := session.New(videoID, client, m.channel, m.log)
	obs := intercept.New(func(raw string) { sess.OnCandidate(raw) }, nil)
	obs.Install(client)
	if err := sess.Arm(); err != nil {
		t.Fatalf("arm session: %v", err)
	}
	m.sessions[videoID] = &captureContext{
		session: sess,
		client:  client,
		info:    &youtube.VideoInfo{VideoID: videoID, Title: "seeded"},
	}
	return client
}

func TestConcurrentArmCreatesOneSession(t *testing.T) {
	m := New(handoff.NewMemory(), nil)

	const workers = 16
	contexts := make([]*captureContext, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cc, _, err := m.arm("vid1")
			if err != nil {
				t.Errorf("arm: %v", err)
				return
			}
			contexts[i] = cc
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if contexts[i] != contexts[0] {
			t.Fatal("racing starts produced distinct sessions")
		}
	}
	if len(m.sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(m.sessions))
	}
}

func TestStatusUnknownVideo(t *testing.T) {
	m := New(handoff.NewMemory(), nil)
	if _, err := m.Status("missing"); err == nil {
		t.Fatal("expected error for unknown video")
	}
}

func TestManualFetchCompletesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(captionPayload))
	}))
	defer srv.Close()

	channel := handoff.NewMemory()
	m := New(channel, nil)
	seedSession(t, m, "vid1")

	status, err := m.ManualFetch(t.Context(), "vid1", srv.URL+"/api/timedtext?fmt=json3")
	if err != nil {
		t.Fatalf("manual fetch: %v", err)
	}
	if status.State != session.Captured.String() {
		t.Fatalf("state = %q, want %q", status.State, session.Captured)
	}
	if status.Record == nil || !strings.Contains(status.Record.CleanText, "minimum body length") {
		t.Fatalf("record = %+v", status.Record)
	}
	if status.Transfer != handoff.Delivered.String() {
		t.Fatalf("transfer = %q, want delivered", status.Transfer)
	}

	// The payload crossed the bridge untouched.
	payload, ok, err := channel.Receive(t.Context())
	if err != nil || !ok {
		t.Fatalf("receive: ok=%v err=%v", ok, err)
	}
	if payload != captionPayload {
		t.Fatal("payload was altered in transit")
	}
}

func TestManualFetchFailureKeepsSessionRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	m := New(handoff.NewMemory(), nil)
	seedSession(t, m, "vid1")

	status, err := m.ManualFetch(t.Context(), "vid1", srv.URL+"/api/timedtext")
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if status == nil || status.State != session.FetchFailed.String() {
		t.Fatalf("status = %+v, want fetch failed state", status)
	}
	if status.FetchErr == "" {
		t.Fatal("fetch error missing from status")
	}
}

func TestLiveCaptureThroughInterceptedClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(captionPayload))
	}))
	defer srv.Close()

	m := New(handoff.NewMemory(), nil)
	client := seedSession(t, m, "vid1")

	// The host-page caption request: body is not read by the requester, the
	// observer still feeds the session.
	m.requestTrack(client, srv.URL+"/api/timedtext?fmt=json3", "vid1")

	status, err := m.Status("vid1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != session.Captured.String() {
		t.Fatalf("state = %q, want %q", status.State, session.Captured)
	}
}

func TestDefaultTrackPrefersAutoGenerated(t *testing.T) {
	manual := youtube.CaptionTrack{BaseURL: "http://e/manual", LanguageCode: "en"}
	asr := youtube.CaptionTrack{BaseURL: "http://e/asr", LanguageCode: "en", Kind: "asr"}

	if track, ok := defaultTrack([]youtube.CaptionTrack{manual, asr}); !ok || track.BaseURL != asr.BaseURL {
		t.Fatalf("track = %+v, want auto-generated", track)
	}
	if track, ok := defaultTrack([]youtube.CaptionTrack{manual}); !ok || track.BaseURL != manual.BaseURL {
		t.Fatalf("track = %+v, want first advertised", track)
	}
	if _, ok := defaultTrack(nil); ok {
		t.Fatal("expected no track for empty list")
	}
}
