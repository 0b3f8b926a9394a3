package source

import (
	"fmt"
	"io"
	"net/http"

	"github.com/packmerge/packmerge/internal/pack"
)

// Fetcher retrieves a remote archive as complete bytes. A fetch is
// atomic: it returns either the whole payload or an error, never a
// partial body.
type Fetcher interface {
	// Fetch downloads the archive at url.
	Fetch(url string) ([]byte, error)
}

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the default client.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: http.DefaultClient}
}

// Fetch downloads the archive at url.
func (f *HTTPFetcher) Fetch(url string) ([]byte, error) {
	resp, err := f.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrNetwork, url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned %s", ErrNetwork, url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s body: %v", ErrNetwork, url, err)
	}
	return body, nil
}

// FakeFetcher implements Fetcher with canned payloads for testing.
type FakeFetcher struct {
	payloads map[string][]byte
}

// NewFakeFetcher creates a new FakeFetcher.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{payloads: make(map[string][]byte)}
}

// SetPayload sets the bytes returned for a URL (for testing).
func (f *FakeFetcher) SetPayload(url string, data []byte) {
	f.payloads[url] = data
}

// Fetch returns the canned payload for url.
func (f *FakeFetcher) Fetch(url string) ([]byte, error) {
	data, ok := f.payloads[url]
	if !ok {
		return nil, fmt.Errorf("%w: no payload for %s", ErrNetwork, url)
	}
	return data, nil
}

// Remote reads a zip archive fetched from a URL. The payload is fetched
// per Entries call and then read exactly like in-memory zip bytes.
type Remote struct {
	url     string
	fetcher Fetcher
}

// NewRemote creates a remote source for url using the given fetcher.
func NewRemote(url string, fetcher Fetcher) *Remote {
	return &Remote{url: url, fetcher: fetcher}
}

// Name identifies the source in diagnostics and merge listings.
func (r *Remote) Name() string {
	return r.url
}

// Entries fetches the archive and enumerates its file records.
func (r *Remote) Entries(bufferSize int, fn func(pack.Entry) error) error {
	data, err := r.fetcher.Fetch(r.url)
	if err != nil {
		return err
	}
	return NewZipBytes(r.url, data).Entries(bufferSize, fn)
}
