package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tubescribe/backend/gateways/capture/clients/youtube"
	"github.com/tubescribe/backend/services/capture/handoff"
	"github.com/tubescribe/backend/services/capture/intercept"
	"github.com/tubescribe/backend/services/capture/session"
)

// CaptureMonitor owns one capture session per video. Each session gets its
// own intercepted HTTP client, so sessions never share wrapped transports.
type CaptureMonitor struct {
	channel  handoff.Channel
	sessions map[string]*captureContext
	mu       sync.RWMutex
	log      *slog.Logger
}

type captureContext struct {
	session *session.Session
	client  *http.Client
	info    *youtube.VideoInfo
}

// CaptureStatus is the externally visible view of one session.
type CaptureStatus struct {
	VideoID  string                 `json:"video_id"`
	State    string                 `json:"state"`
	Title    string                 `json:"title,omitempty"`
	Channel  string                 `json:"channel,omitempty"`
	Tracks   []youtube.CaptionTrack `json:"tracks,omitempty"`
	Record   *session.CaptureRecord `json:"record,omitempty"`
	Transfer string                 `json:"transfer,omitempty"`
	FetchErr string                 `json:"fetch_error,omitempty"`
}

func New(channel handoff.Channel, log *slog.Logger) *CaptureMonitor {
	if log == nil {
		log = slog.Default()
	}
	return &CaptureMonitor{
		channel:  channel,
		sessions: make(map[string]*captureContext),
		log:      log,
	}
}

// StartCapture arms a session for the video and kicks off the live-capture
// path: the default caption track is requested through the intercepted
// client, and the interceptor feeds whatever comes back to the session. An
// already armed session is reused; a finished one is replaced (a fresh page
// visit starts over).
func (m *CaptureMonitor) StartCapture(ctx context.Context, videoID string) (*CaptureStatus, error) {
	cc, created, err := m.arm(videoID)
	if err != nil {
		return nil, err
	}
	if !created {
		m.log.Debug("session already armed", slog.String("video_id", videoID))
		return m.Status(videoID)
	}
	m.log.Info("capture session armed", slog.String("video_id", videoID))

	yt := youtube.New(cc.client, m.log)
	info, err := yt.VideoInfo(ctx, videoID)
	if err != nil {
		// Arming still succeeded; the manual path can try later with a
		// user-supplied locator.
		m.log.Warn("watch page fetch failed",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()))
		return m.Status(videoID)
	}

	m.mu.Lock()
	if cur, ok := m.sessions[videoID]; ok && cur == cc {
		cc.info = info
	}
	m.mu.Unlock()

	if track, ok := defaultTrack(info.Tracks); ok {
		go m.requestTrack(cc.client, track.JSON3URL(), videoID)
	}

	return m.Status(videoID)
}

// arm reserves the slot for videoID and builds its session inside one
// critical section, so two racing starts for the same video cannot each
// create a session. It reports whether a new session was created.
func (m *CaptureMonitor) arm(videoID string) (*captureContext, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cc, ok := m.sessions[videoID]; ok && cc.session.State() != session.Captured {
		return cc, false, nil
	}

	// Fresh execution context: own client, own observer.
	client := &http.Client{Timeout: 30 * time.Second}
	sess := session.New(videoID, client, m.channel, m.log)
	obs := intercept.New(func(raw string) { sess.OnCandidate(raw) }, nil)
	obs.Install(client)

	if err := sess.Arm(); err != nil {
		return nil, false, fmt.Errorf("monitor: arm session: %w", err)
	}

	cc := &captureContext{
		session: sess,
		client:  client,
		info:    &youtube.VideoInfo{VideoID: videoID},
	}
	m.sessions[videoID] = cc
	return cc, true, nil
}

// requestTrack plays the role of the host page requesting its captions. The
// response body is not consumed here; the interceptor observes it and feeds
// the session.
func (m *CaptureMonitor) requestTrack(client *http.Client, url, videoID string) {
	resp, err := client.Get(url)
	if err != nil {
		m.log.Warn("live caption request failed",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()))
		return
	}
	resp.Body.Close()
}

// ManualFetch is the fallback path for a user-chosen track locator.
func (m *CaptureMonitor) ManualFetch(ctx context.Context, videoID, trackURL string) (*CaptureStatus, error) {
	m.mu.RLock()
	cc, ok := m.sessions[videoID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("monitor: no session for video %s", videoID)
	}

	if err := cc.session.ManualFetch(ctx, trackURL); err != nil {
		// Session state already reflects the failure; report it alongside.
		status, _ := m.Status(videoID)
		return status, err
	}
	return m.Status(videoID)
}

// Status reports the session state for a video.
func (m *CaptureMonitor) Status(videoID string) (*CaptureStatus, error) {
	m.mu.RLock()
	cc, ok := m.sessions[videoID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("monitor: no session for video %s", videoID)
	}

	status := &CaptureStatus{
		VideoID: videoID,
		State:   cc.session.State().String(),
		Title:   cc.info.Title,
		Channel: cc.info.Channel,
		Tracks:  cc.info.Tracks,
	}
	if rec := cc.session.Record(); rec != nil {
		status.Record = rec
		status.Transfer = rec.Transfer.String()
	}
	if err := cc.session.FetchErr(); err != nil {
		status.FetchErr = err.Error()
	}
	return status, nil
}

// Info exposes the watch-page metadata gathered when the session started.
func (m *CaptureMonitor) Info(videoID string) (*youtube.VideoInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cc, ok := m.sessions[videoID]
	if !ok {
		return nil, false
	}
	return cc.info, true
}

// defaultTrack prefers the auto-generated track, falling back to the first
// one advertised.
func defaultTrack(tracks []youtube.CaptionTrack) (youtube.CaptionTrack, bool) {
	for _, t := range tracks {
		if t.IsAutoGenerated() {
			return t, true
		}
	}
	if len(tracks) > 0 {
		return tracks[0], true
	}
	return youtube.CaptionTrack{}, false
}
