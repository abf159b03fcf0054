package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tubescribe/backend/services/capture/handoff"
	"github.com/tubescribe/backend/services/capture/normalize"
)

// ErrFetchFailed wraps manual-fetch failures; the session is left in
// FetchFailed and can be rearmed for another attempt.
var ErrFetchFailed = errors.New("session: manual fetch failed")

// ErrNotArmed is returned when an operation requires an armed session.
var ErrNotArmed = errors.New("session: not armed")

// defaultMinBodyLen guards against stale track locators that answer 200 with
// an empty or placeholder body. The exact threshold is a heuristic, not a
// contract.
const defaultMinBodyLen = 100

const transferTimeout = 5 * time.Second

// CaptureRecord is the result of one successful extraction. It is built once
// on capture and read-only afterwards; callers get copies by value.
type CaptureRecord struct {
	RawPayload string          `json:"raw_payload"`
	CleanText  string          `json:"clean_text"`
	WordCount  int             `json:"word_count"`
	CharCount  int             `json:"char_count"`
	Transfer   handoff.Outcome `json:"-"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Session orchestrates one extraction attempt for one video. Candidates can
// arrive from the interceptor or from a manual fetch; the first one passing
// the shape predicate wins and later candidates are ignored.
type Session struct {
	videoID string
	client  *http.Client
	channel handoff.Channel
	log     *slog.Logger

	minBodyLen int

	mu       sync.Mutex
	state    State
	record   *CaptureRecord
	fetchErr error
}

func New(videoID string, client *http.Client, channel handoff.Channel, log *slog.Logger) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		videoID:    videoID,
		client:     client,
		channel:    channel,
		log:        log,
		minBodyLen: defaultMinBodyLen,
		state:      Idle,
	}
}

// Arm moves the session from Idle to Armed.
func (s *Session) Arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := Transition(s.state, TriggerArm)
	if !ok {
		return fmt.Errorf("session: cannot arm from state %s", s.state)
	}
	s.state = next
	return nil
}

// Rearm moves the session from FetchFailed back to Armed for a retry.
func (s *Session) Rearm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := Transition(s.state, TriggerRearm)
	if !ok {
		return fmt.Errorf("session: cannot rearm from state %s", s.state)
	}
	s.state = next
	s.fetchErr = nil
	return nil
}

func (s *Session) VideoID() string {
	return s.videoID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Record returns a copy of the capture record, or nil before capture.
func (s *Session) Record() *CaptureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil
	}
	rec := *s.record
	return &rec
}

// FetchErr reports the last manual-fetch failure, if any.
func (s *Session) FetchErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchErr
}

// OnCandidate feeds one raw candidate payload into the state machine. It
// reports whether the candidate was accepted. Candidates arriving before
// arming, after capture, or failing the shape predicate are ignored. This is
// the interceptor callback, so it must never fail loudly.
func (s *Session) OnCandidate(raw string) bool {
	if !normalize.HasEvents(raw) {
		return false
	}

	s.mu.Lock()
	next, ok := Transition(s.state, TriggerCandidate)
	if !ok {
		s.mu.Unlock()
		s.log.Debug("candidate ignored",
			slog.String("video_id", s.videoID),
			slog.String("state", s.state.String()))
		return false
	}

	res, err := normalize.Normalize(raw)
	if err != nil {
		// HasEvents already parsed the payload; this cannot happen.
		s.mu.Unlock()
		return false
	}

	s.state = next
	rec := &CaptureRecord{
		RawPayload: raw,
		CleanText:  res.CleanText,
		WordCount:  res.WordCount,
		CharCount:  res.CharCount,
		CapturedAt: time.Now().UTC(),
	}
	s.record = rec
	s.mu.Unlock()

	s.log.Info("capture complete",
		slog.String("video_id", s.videoID),
		slog.Int("word_count", res.WordCount),
		slog.Int("char_count", res.CharCount))

	// Hand the raw payload off to the companion context. A failed transfer
	// never undoes the capture; the outcome is recorded as a warning.
	outcome := s.transfer(raw)
	s.mu.Lock()
	s.record.Transfer = outcome
	s.mu.Unlock()
	if outcome != handoff.Delivered {
		s.log.Warn("handoff transfer did not deliver",
			slog.String("video_id", s.videoID),
			slog.String("outcome", outcome.String()))
	}
	return true
}

func (s *Session) transfer(raw string) handoff.Outcome {
	if s.channel == nil {
		return handoff.Unavailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), transferTimeout)
	defer cancel()
	return s.channel.Send(ctx, raw)
}

// ManualFetch is the fallback path: fetch a user-chosen caption-track locator
// directly and feed the body through the same candidate gate. Network errors,
// bad statuses, implausibly short bodies and shapeless payloads all land the
// session in FetchFailed.
func (s *Session) ManualFetch(ctx context.Context, trackURL string) error {
	s.mu.Lock()
	if s.state == FetchFailed {
		s.state, _ = Transition(s.state, TriggerRearm)
		s.fetchErr = nil
	}
	if s.state != Armed {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrNotArmed, state)
	}
	s.mu.Unlock()

	body, err := s.fetchTrack(ctx, trackURL)
	if err != nil {
		s.failFetch(err)
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	if s.OnCandidate(body) {
		return nil
	}
	// The interception path may have won the race while we were fetching;
	// that still counts as a successful capture.
	if s.State() == Captured {
		return nil
	}
	err = errors.New("response has no caption events")
	s.failFetch(err)
	return fmt.Errorf("%w: %v", ErrFetchFailed, err)
}

func (s *Session) fetchTrack(ctx context.Context, trackURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if len(body) < s.minBodyLen {
		return "", fmt.Errorf("body too short (%d bytes), likely a stale track locator", len(body))
	}
	return string(body), nil
}

func (s *Session) failFetch(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next, ok := Transition(s.state, TriggerFetchError); ok {
		s.state = next
		s.fetchErr = cause
	}
	s.log.Warn("manual fetch failed",
		slog.String("video_id", s.videoID),
		slog.String("error", cause.Error()))
}
