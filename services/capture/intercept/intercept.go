package intercept

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// DoFunc is a fetch-style request function, the second network primitive a
// capture context originates requests through.
type DoFunc func(*http.Request) (*http.Response, error)

// Matcher classifies an outbound request URL as a caption candidate.
type Matcher func(url string) bool

// DefaultMatcher matches the caption timedtext endpoint while excluding the
// sibling non-JSON formats (srv1/srv2/srv3) that share the same path.
func DefaultMatcher(url string) bool {
	return strings.Contains(url, "/api/timedtext") && !strings.Contains(url, "fmt=srv")
}

// Observer decorates the network primitives of one capture context. Every
// observed request still performs the real network operation and returns the
// real result to its caller; bodies of matching responses are duplicated and
// forwarded to the candidate callback. Nothing the observer does may surface
// as an error to the original caller.
type Observer struct {
	next        http.RoundTripper
	onCandidate func(rawText string)
	matches     Matcher
}

// New creates an observer forwarding matching response bodies to onCandidate.
// A nil matches falls back to DefaultMatcher.
func New(onCandidate func(rawText string), matches Matcher) *Observer {
	if matches == nil {
		matches = DefaultMatcher
	}
	return &Observer{
		onCandidate: onCandidate,
		matches:     matches,
	}
}

// Install wraps the client's transport. Installing twice on the same client
// is a no-op: an already-observing transport is the sentinel.
func (o *Observer) Install(c *http.Client) {
	if _, ok := c.Transport.(*Observer); ok {
		return
	}
	next := c.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	o.next = next
	c.Transport = o
}

// Installed reports whether a client already routes through an observer.
func Installed(c *http.Client) bool {
	_, ok := c.Transport.(*Observer)
	return ok
}

// WrapDo decorates a fetch-style request function the same way Install
// decorates a transport. Function values carry no sentinel, so callers wrap
// once at context construction rather than relying on install idempotence.
func (o *Observer) WrapDo(do DoFunc) DoFunc {
	return func(req *http.Request) (*http.Response, error) {
		resp, err := do(req)
		if err != nil || resp == nil {
			return resp, err
		}
		if o.matches(req.URL.String()) {
			o.observe(resp)
		}
		return resp, nil
	}
}

func (o *Observer) RoundTrip(req *http.Request) (*http.Response, error) {
	next := o.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}
	if o.matches(req.URL.String()) {
		o.observe(resp)
	}
	return resp, nil
}

// observe duplicates the response body and hands the text to the candidate
// callback. The body is single-read, so the original stream is replaced with
// a replay that preserves both the bytes already read and any read error.
func (o *Observer) observe(resp *http.Response) {
	defer func() {
		// A panicking callback must not break the host request.
		_ = recover()
	}()

	if resp.Body == nil {
		return
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = &replayBody{r: bytes.NewReader(body), err: err}
	if err != nil {
		return
	}
	if o.onCandidate != nil {
		o.onCandidate(string(body))
	}
}

// replayBody yields the buffered bytes, then the original read error if the
// upstream body failed mid-stream.
type replayBody struct {
	r   *bytes.Reader
	err error
}

func (b *replayBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF && b.err != nil {
		return n, b.err
	}
	return n, err
}

func (b *replayBody) Close() error { return nil }
