package tasks

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trx/internal/repositories"
	"github.com/desertthunder/trx/internal/shared"
	"github.com/desertthunder/trx/internal/storage"
)

const (
	// minCoverBytes rejects tracking pixels and truncated downloads.
	minCoverBytes = 1024

	// maxCoverUploadBytes is the platform's cap on the base64 cover payload.
	maxCoverUploadBytes = 256 * 1024

	coverUserAgent = "trx/1.0"
	coverPrefix    = "covers/"
)

// CoverOpts tunes the pipeline's retry behavior.
type CoverOpts struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultCoverOpts returns the production retry settings.
func DefaultCoverOpts() CoverOpts {
	return CoverOpts{MaxRetries: 3, Backoff: 500 * time.Millisecond}
}

// CoverResult reports where a persisted cover ended up.
type CoverResult struct {
	FinalURL string
}

// CoverPipeline copies playlist cover images from ephemeral source URLs into
// durable blob storage and records the durable URL on the playlist row.
//
// Each stage retries locally with backoff. Only a failed or corrupt download
// restarts the pipeline; the source URL may be ephemeral, so bytes that have
// already passed verification are never thrown away to retry a later stage.
type CoverPipeline struct {
	store     storage.BlobStore
	playlists *repositories.PlaylistRepository
	client    *http.Client
	logger    *log.Logger
	opts      CoverOpts
}

// NewCoverPipeline wires the pipeline. client may be nil; a default with a
// 30 second timeout is used.
func NewCoverPipeline(store storage.BlobStore, playlists *repositories.PlaylistRepository, client *http.Client, logger *log.Logger, opts CoverOpts) *CoverPipeline {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	return &CoverPipeline{store: store, playlists: playlists, client: client, logger: logger, opts: opts}
}

// Save persists the image at sourceURL and points the playlist's cover at the
// durable copy.
//
// A sourceURL already inside the store short-circuits to a pointer update.
// Otherwise the image is downloaded and verified, retrying from download up
// to MaxRetries times; the verified bytes are then uploaded and the pointer
// recorded, each stage retrying on its own without re-fetching the source.
// The playlist's prior cover pointer is preserved when any stage gives up.
func (p *CoverPipeline) Save(ctx context.Context, sourceURL string, playlistID int64) (*CoverResult, error) {
	if sourceURL == "" {
		return nil, fmt.Errorf("%w: cover source url is empty", shared.ErrInvalidInput)
	}

	if p.store.Owns(sourceURL) {
		if err := p.updatePointer(playlistID, sourceURL); err != nil {
			return nil, err
		}
		return &CoverResult{FinalURL: sourceURL}, nil
	}

	data, err := p.downloadVerified(ctx, sourceURL, playlistID)
	if err != nil {
		return nil, err
	}

	finalURL, err := p.uploadVerified(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := p.updatePointer(playlistID, finalURL); err != nil {
		return nil, err
	}
	return &CoverResult{FinalURL: finalURL}, nil
}

// downloadVerified fetches the source bytes and checks them against the image
// signature and size floor, retrying the fetch with backoff. A source that
// never yields a plausible image fails the whole pipeline.
func (p *CoverPipeline) downloadVerified(ctx context.Context, sourceURL string, playlistID int64) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < p.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, p.opts.Backoff*time.Duration(1<<(attempt-1))); err != nil {
				return nil, err
			}
			p.logger.Debug("retrying cover download", "playlist_id", playlistID, "attempt", attempt+1)
		}

		data, err := p.download(ctx, sourceURL)
		if err != nil {
			lastErr = err
			continue
		}
		if err := verifyImage(data); err != nil {
			lastErr = err
			continue
		}

		return data, nil
	}

	return nil, fmt.Errorf("failed to download cover after %d attempts: %w", p.opts.MaxRetries, lastErr)
}

// EncodeJPEG downloads sourceURL, re-encodes it as JPEG and returns the
// base64 payload the platform's cover endpoint accepts.
func (p *CoverPipeline) EncodeJPEG(ctx context.Context, sourceURL string) ([]byte, error) {
	data, err := p.download(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if err := verifyImage(data); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode cover jpeg: %w", err)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(encoded, buf.Bytes())
	if len(encoded) > maxCoverUploadBytes {
		return nil, fmt.Errorf("%w: encoded cover is %d bytes, cap is %d", shared.ErrInvalidInput, len(encoded), maxCoverUploadBytes)
	}

	return encoded, nil
}

// uploadVerified stores the already-verified bytes and re-reads the stored
// object to confirm the write. Upload and read-back failures retry here with
// backoff; the source is never re-fetched.
func (p *CoverPipeline) uploadVerified(ctx context.Context, data []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt < p.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, p.opts.Backoff*time.Duration(1<<(attempt-1))); err != nil {
				return "", err
			}
		}

		name := coverPrefix + shared.GenerateID() + imageExtension(data)
		finalURL, err := p.store.Upload(ctx, name, data, imageContentType(data))
		if err != nil {
			// drop any partial object so a retry starts clean
			if removeErr := p.store.Remove(ctx, name); removeErr != nil {
				p.logger.Debug("failed to remove partial cover object", "name", name, "error", removeErr)
			}
			lastErr = fmt.Errorf("failed to upload cover: %w", err)
			continue
		}

		stored, err := p.store.Fetch(ctx, name)
		if err != nil {
			lastErr = fmt.Errorf("failed to read back cover: %w", err)
			continue
		}
		if err := verifyImage(stored); err != nil {
			if removeErr := p.store.Remove(ctx, name); removeErr != nil {
				p.logger.Debug("failed to remove corrupt cover object", "name", name, "error", removeErr)
			}
			lastErr = fmt.Errorf("stored cover failed verification: %w", err)
			continue
		}

		return finalURL, nil
	}

	return "", fmt.Errorf("failed to store cover after %d attempts: %w", p.opts.MaxRetries, lastErr)
}

// download fetches the raw image bytes. Inline data: URLs are decoded
// directly; anything else is fetched over HTTP.
func (p *CoverPipeline) download(ctx context.Context, sourceURL string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(sourceURL, "data:"); ok {
		_, payload, found := strings.Cut(rest, ";base64,")
		if !found {
			return nil, fmt.Errorf("%w: unsupported data url", shared.ErrInvalidInput)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline image: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", coverUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover body: %w", err)
	}

	return data, nil
}

// updatePointer writes the cover URL and verifies the write by reading the
// column back. The loop retries the full write-verify cycle; the playlist's
// prior pointer is untouched if every attempt fails.
func (p *CoverPipeline) updatePointer(playlistID int64, url string) error {
	var lastErr error
	for attempt := 0; attempt < p.opts.MaxRetries; attempt++ {
		if err := p.playlists.UpdateCoverImageURL(playlistID, &url); err != nil {
			lastErr = err
			continue
		}

		stored, err := p.playlists.CoverImageURL(playlistID)
		if err != nil {
			lastErr = err
			continue
		}
		if stored == nil || *stored != url {
			lastErr = fmt.Errorf("%w: cover pointer read back mismatch", shared.ErrVerificationFailed)
			continue
		}

		return nil
	}

	return fmt.Errorf("failed to record cover url: %w", lastErr)
}

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte("\xff\xd8\xff")
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// verifyImage checks the payload is a plausible PNG, JPEG or WebP image.
func verifyImage(data []byte) error {
	if len(data) < minCoverBytes {
		return fmt.Errorf("%w: image is %d bytes, want at least %d", shared.ErrVerificationFailed, len(data), minCoverBytes)
	}

	switch {
	case bytes.HasPrefix(data, pngMagic):
		return nil
	case bytes.HasPrefix(data, jpegMagic):
		return nil
	case bytes.HasPrefix(data, riffMagic) && len(data) >= 12 && bytes.Equal(data[8:12], webpMagic):
		return nil
	}

	return fmt.Errorf("%w: payload is not a supported image format", shared.ErrVerificationFailed)
}

func imageExtension(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return ".png"
	case bytes.HasPrefix(data, jpegMagic):
		return ".jpg"
	default:
		return ".webp"
	}
}

func imageContentType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return "image/png"
	case bytes.HasPrefix(data, jpegMagic):
		return "image/jpeg"
	default:
		return "image/webp"
	}
}
