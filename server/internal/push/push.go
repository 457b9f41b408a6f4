package push

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 30 * time.Second

	// DefaultMaxAttempts bounds how many times a transient failure is retried.
	DefaultMaxAttempts = 5

	uploadPath = "/api/upload-data"
)

// Options configures a Pusher.
type Options struct {
	// Server is the base URL of the trialdash server, e.g. http://localhost:8000.
	Server string

	// Header and Key set the API key sent with each upload. Empty Key sends none.
	Header string
	Key    string

	InsecureSkipVerify bool

	// MaxAttempts is the total number of tries (default DefaultMaxAttempts).
	MaxAttempts int
}

// Result is the server's reply to an accepted upload.
type Result struct {
	Message        string `json:"message"`
	DatasetID      string `json:"dataset_id"`
	ResourcesCount int    `json:"resources_count"`
	TrialsCount    int    `json:"trials_count"`
}

// RejectedError is returned when the server refuses the upload.
type RejectedError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *RejectedError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("push: rejected (%d): %s", e.StatusCode, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("push: rejected (%d): %s", e.StatusCode, e.Message)
}

// Pusher uploads datasets with retry.
type Pusher struct {
	opts   Options
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error // injectable for tests
}

// New creates a Pusher for opts.
func New(opts Options) *Pusher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Header == "" {
		opts.Header = "X-API-Key"
	}
	opts.Server = strings.TrimRight(opts.Server, "/")
	return &Pusher{
		opts: opts,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}, //nolint:gosec // user-configured
				Proxy:           http.ProxyFromEnvironment,
			},
			Timeout: sendTimeout,
		},
		sleep: sleepCtx,
	}
}

// Push uploads data under filename, retrying transient failures until
// MaxAttempts is reached or ctx is cancelled.
func (p *Pusher) Push(ctx context.Context, filename string, data []byte) (*Result, error) {
	bo := newBackoff()
	var lastErr error

	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		res, err := p.send(ctx, filename, data)
		if err == nil {
			slog.Info("push: dataset delivered",
				"server", p.opts.Server, "dataset_id", res.DatasetID, "attempt", attempt)
			return res, nil
		}
		var rej *RejectedError
		if errors.As(err, &rej) {
			return nil, err
		}
		lastErr = err
		if attempt == p.opts.MaxAttempts {
			break
		}

		wait := bo.next()
		slog.Warn("push: upload failed, will retry",
			"server", p.opts.Server, "err", err, "attempt", attempt, "retry_in", wait)
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("push: giving up after %d attempts: %w", p.opts.MaxAttempts, lastErr)
}

// send performs one multipart upload.
func (p *Pusher) send(ctx context.Context, filename string, data []byte) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, &RejectedError{Message: err.Error()}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &RejectedError{Message: err.Error()}
	}
	if err := mw.Close(); err != nil {
		return nil, &RejectedError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.Server+uploadPath, &body)
	if err != nil {
		return nil, &RejectedError{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if p.opts.Key != "" {
		req.Header.Set(p.opts.Header, p.opts.Key)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &RejectedError{Message: ctx.Err().Error()}
		}
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusOK:
		var res Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, &RejectedError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
		}
		return &res, nil
	case isTransient(resp.StatusCode):
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	default:
		return nil, rejection(resp.StatusCode, raw)
	}
}

// isTransient reports whether a status is worth retrying.
func isTransient(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// rejection decodes either a validation reply or a plain error reply.
func rejection(code int, raw []byte) *RejectedError {
	var body struct {
		Error  string   `json:"error"`
		Errors []string `json:"errors"`
	}
	rej := &RejectedError{StatusCode: code}
	if err := json.Unmarshal(raw, &body); err != nil {
		rej.Message = strings.TrimSpace(string(raw))
		return rej
	}
	rej.Message = body.Error
	rej.Errors = body.Errors
	return rej
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}
