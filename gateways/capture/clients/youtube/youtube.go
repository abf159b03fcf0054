package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	watchURL  = "https://www.youtube.com/watch?v="
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// CaptionTrack is one subtitle track advertised in the watch page's embedded
// player metadata. Kind "asr" marks auto-generated captions.
type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind,omitempty"`
	Name         struct {
		SimpleText string `json:"simpleText"`
	} `json:"name"`
}

// IsAutoGenerated reports whether the track carries machine captions.
func (t CaptionTrack) IsAutoGenerated() bool {
	return t.Kind == "asr"
}

// JSON3URL is the track locator in the JSON caption format the normalizer
// accepts.
func (t CaptionTrack) JSON3URL() string {
	if strings.Contains(t.BaseURL, "fmt=") {
		return t.BaseURL
	}
	sep := "?"
	if strings.Contains(t.BaseURL, "?") {
		sep = "&"
	}
	return t.BaseURL + sep + "fmt=json3"
}

// VideoInfo is the watch-page metadata a capture session needs: identity plus
// the caption-track locators available for the manual-fetch fallback.
type VideoInfo struct {
	VideoID string         `json:"video_id"`
	Title   string         `json:"title"`
	Channel string         `json:"channel"`
	Tracks  []CaptionTrack `json:"tracks"`
}

type Client struct {
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a watch-page client. The HTTP client is the session's own
// (usually intercepted) client so caption traffic stays observable.
func New(httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		log:        log,
	}
}

// VideoInfo fetches the watch page and pulls the caption-track list out of
// the embedded player response.
func (c *Client) VideoInfo(ctx context.Context, videoID string) (*VideoInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL+videoID, nil)
	if err != nil {
		return nil, fmt.Errorf("youtube: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube: fetch watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube: watch page status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("youtube: read watch page: %w", err)
	}

	info := &VideoInfo{VideoID: videoID}
	info.Tracks = extractTracks(string(body))
	info.Title, info.Channel = extractDetails(string(body))
	c.log.Debug("watch page parsed",
		slog.String("video_id", videoID),
		slog.Int("track_count", len(info.Tracks)))
	return info, nil
}

// extractTracks decodes the captionTracks array embedded in the page. The
// decoder stops at the closing bracket, so the rest of the page is ignored.
func extractTracks(page string) []CaptionTrack {
	const marker = `"captionTracks":`
	idx := strings.Index(page, marker)
	if idx < 0 {
		return nil
	}
	var tracks []CaptionTrack
	dec := json.NewDecoder(strings.NewReader(page[idx+len(marker):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil
	}
	return tracks
}

func extractDetails(page string) (title, channel string) {
	const marker = `"videoDetails":`
	idx := strings.Index(page, marker)
	if idx < 0 {
		return "", ""
	}
	var details struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	dec := json.NewDecoder(strings.NewReader(page[idx+len(marker):]))
	if err := dec.Decode(&details); err != nil {
		return "", ""
	}
	return details.Title, details.Author
}
