// Package source fetches SMF bytes from a local path or an http(s) URL.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultMaxBytes caps how much a single load reads.
const DefaultMaxBytes = 16 << 20

var ErrTooLarge = errors.New("source: input exceeds size limit")

// Options control a load. Zero values pick defaults.
type Options struct {
	Timeout  time.Duration // network fetch only
	MaxBytes int64
	Client   *http.Client
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Load returns the bytes at location. Retries are left to the caller.
func Load(ctx context.Context, location string, opts Options) ([]byte, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if IsRemote(location) {
		return fetch(ctx, location, opts)
	}
	return readFile(location, opts.MaxBytes)
}

func readFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f, limit)
}

func fetch(ctx context.Context, location string, opts Options) ([]byte, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "audio/midi, audio/x-midi, application/octet-stream, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", location, resp.Status)
	}
	if resp.ContentLength > opts.MaxBytes {
		return nil, fmt.Errorf("fetch %s: %w (%d bytes)", location, ErrTooLarge, resp.ContentLength)
	}
	data, err := readLimited(resp.Body, opts.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	return data, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
