// Package download fetches release archives over HTTP with retry, resumable
// single-stream transfers, and an optional bounded chunked mode for servers
// that advertise range support. Transport failures and non-2xx statuses are
// classified transient so the retry executor can take another pass.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/retry"
)

const (
	// PartSuffix marks an in-progress transfer next to the destination.
	PartSuffix = ".part"
	// chunkThreshold is the smallest body worth splitting across workers.
	chunkThreshold = 8 << 20
	defaultWorkers = 4
)

// Client fetches files. The zero value is not usable; construct with New.
type Client struct {
	http    *http.Client
	exec    *retry.Executor
	policy  retry.Policy
	workers int
}

// Option mutates client construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithRetry sets the executor and policy wrapping each transfer.
func WithRetry(exec *retry.Executor, policy retry.Policy) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
		c.policy = policy
	}
}

// WithChunkWorkers bounds the concurrent range workers.
func WithChunkWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New constructs a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Minute},
		exec:    retry.New(),
		policy:  retry.Policy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 2.0, Jitter: true},
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch downloads url to destPath, retrying per the client's policy. Partial
// transfers are kept in a .part sibling and resumed with a Range request on
// the next attempt; the destination only appears once the body is complete.
func (c *Client) Fetch(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	size, ranged, err := c.probe(ctx, url)
	if err != nil {
		// HEAD support is optional; fall back to a plain streaming get.
		size, ranged = 0, false
	}

	return c.exec.Do(ctx, c.policy, func(ctx context.Context) error {
		if ranged && size >= chunkThreshold {
			if err := c.fetchChunked(ctx, url, destPath, size); err != nil {
				return err
			}
		} else if err := c.fetchStream(ctx, url, destPath, ranged); err != nil {
			return err
		}
		return os.Rename(destPath+PartSuffix, destPath)
	})
}

// probe issues a HEAD request to learn the body size and range support.
func (c *Client) probe(ctx context.Context, url string) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, false, faults.Permanent(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, false, faults.Transient(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false, statusError(url, resp.StatusCode)
	}
	ranged := resp.Header.Get("Accept-Ranges") == "bytes"
	return resp.ContentLength, ranged, nil
}

func (c *Client) fetchStream(ctx context.Context, url, destPath string, ranged bool) error {
	partPath := destPath + PartSuffix
	var offset int64
	if ranged {
		if info, err := os.Stat(partPath); err == nil {
			offset = info.Size()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return faults.Permanent(err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return faults.Transient(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		offset = 0 // server ignored the range; restart
	case http.StatusPartialContent:
	default:
		return statusError(url, resp.StatusCode)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if offset == 0 {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	out, err := os.OpenFile(partPath, flags, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return faults.Transient(err)
	}
	return out.Close()
}

// fetchChunked splits the body into worker-sized ranges written at their
// offsets in a preallocated part file.
func (c *Client) fetchChunked(ctx context.Context, url, destPath string, size int64) error {
	partPath := destPath + PartSuffix
	out, err := os.OpenFile(partPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.Truncate(size); err != nil {
		return err
	}

	chunk := size / int64(c.workers)
	if chunk < chunkThreshold/defaultWorkers {
		chunk = chunkThreshold / defaultWorkers
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)
	for start := int64(0); start < size; start += chunk {
		end := start + chunk - 1
		if end >= size {
			end = size - 1
		}
		start, end := start, end
		group.Go(func() error {
			return c.fetchRange(groupCtx, url, out, start, end)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return out.Sync()
}

func (c *Client) fetchRange(ctx context.Context, url string, out *os.File, start, end int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return faults.Permanent(err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	resp, err := c.http.Do(req)
	if err != nil {
		return faults.Transient(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return statusError(url, resp.StatusCode)
	}

	buf := make([]byte, 128<<10)
	offset := start
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.WriteAt(buf[:n], offset); err != nil {
				return err
			}
			offset += int64(n)
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return faults.Transient(readErr)
		}
	}
}

func statusError(url string, code int) error {
	err := StatusError{URL: url, StatusCode: code}
	if code == http.StatusNotFound {
		// A 404 rarely heals on retry; keep it retry-eligible like
		// every other non-2xx, but give the operator a hint.
		err.Hint = "resource may have been moved or deleted"
	}
	return faults.Transient(err)
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
	Hint       string
}

func (e StatusError) Error() string {
	msg := "unexpected HTTP status " + strconv.Itoa(e.StatusCode) + " for " + e.URL
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}
