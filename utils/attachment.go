package utils

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// storagePrefix is the blob path segment baked into upload URLs.
const storagePrefix = "files/"

// probeLimit caps how much of a response body is read when sniffing.
// DecodeConfig only needs the header.
const probeLimit = 1 << 20

// AttachmentClassifier decides whether an attachment URL renders as an
// inline image or as a download link. It is a probe, not a content-type
// trust decision: it fetches the resource and tries to decode it as a
// raster image. Results are cached by URL.
type AttachmentClassifier struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]bool
}

func NewAttachmentClassifier(client *http.Client) *AttachmentClassifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &AttachmentClassifier{client: client, cache: map[string]bool{}}
}

// Classify reports whether rawURL resolves to a decodable raster image.
// It never returns an error: any failure (bad URL, network error, non-2xx,
// non-image bytes) is uniformly "not an image".
func (ac *AttachmentClassifier) Classify(ctx context.Context, rawURL string) bool {
	ac.mu.Lock()
	if v, ok := ac.cache[rawURL]; ok {
		ac.mu.Unlock()
		return v
	}
	ac.mu.Unlock()

	ok := ac.probe(ctx, rawURL)

	ac.mu.Lock()
	ac.cache[rawURL] = ok
	ac.mu.Unlock()
	return ok
}

func (ac *AttachmentClassifier) probe(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := ac.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	_, _, err = image.DecodeConfig(io.LimitReader(resp.Body, probeLimit))
	return err == nil
}

// FileNameFromURL derives a display filename from an attachment URL:
// last path segment, query stripped, percent-decoded, storage prefix
// removed. The step runs to a fixpoint so the function is idempotent:
// FileNameFromURL(FileNameFromURL(x)) == FileNameFromURL(x).
func FileNameFromURL(rawURL string) string {
	name := rawURL
	for {
		next := fileNameStep(name)
		if next == name {
			return name
		}
		name = next
	}
}

func fileNameStep(s string) string {
	parts := strings.Split(s, "/")
	name := parts[len(parts)-1]
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return strings.Replace(name, storagePrefix, "", 1)
}
