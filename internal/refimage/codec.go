// Package refimage normalizes motif references (remote URLs, uploaded
// blobs, data URLs) into inline base64 payloads for multimodal requests.
package refimage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

const defaultMaxBytes = 20 << 20

// Inline is an embeddable image: a media type and its base64 payload.
type Inline struct {
	MediaType string
	Data      string
}

func (i Inline) DataURL() string {
	return "data:" + i.MediaType + ";base64," + i.Data
}

// Bytes decodes the base64 payload.
func (i Inline) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(i.Data)
}

// Extension returns the file extension for the media type, ".jpg" when
// unknown.
func (i Inline) Extension() string {
	if m := mimetype.Lookup(i.MediaType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".jpg"
}

// FromBytes builds an Inline from raw bytes, sniffing the media type when
// mediaType is empty or generic.
func FromBytes(data []byte, mediaType string) (Inline, error) {
	if len(data) == 0 {
		return Inline{}, errors.New("image data is empty")
	}
	mt := resolveMediaType(mediaType, data)
	if mt == "" {
		return Inline{}, fmt.Errorf("not an image: %s", mimetype.Detect(data).String())
	}
	return Inline{MediaType: mt, Data: base64.StdEncoding.EncodeToString(data)}, nil
}

func IsDataURL(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), "data:")
}

// ParseDataURL splits a base64 data URL. It rejects anything that would
// yield a payload without a media type.
func ParseDataURL(ref string) (Inline, bool) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "data:") {
		return Inline{}, false
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || payload == "" {
		return Inline{}, false
	}

	params := strings.Split(meta, ";")
	mediaType := strings.TrimSpace(params[0])
	if mediaType == "" {
		return Inline{}, false
	}

	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return Inline{}, false
	}

	return Inline{MediaType: mediaType, Data: payload}, true
}

type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	MaxBytes   int64
}

type Codec struct {
	httpClient *http.Client
	logger     *slog.Logger
	maxBytes   int64
}

func New(opts Options) *Codec {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	return &Codec{
		httpClient: httpClient,
		logger:     logger,
		maxBytes:   maxBytes,
	}
}

// Encode turns a motif reference into an inline image. Data URLs pass
// through unchanged; http(s) URLs are fetched. Any failure yields nil so
// the caller can proceed without this reference.
func (c *Codec) Encode(ctx context.Context, ref string) *Inline {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	if IsDataURL(ref) {
		in, ok := ParseDataURL(ref)
		if !ok {
			c.logger.Warn("malformed data url reference")
			return nil
		}
		return &in
	}

	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		c.logger.Warn("unfetchable reference", "ref", truncate(ref, 64))
		return nil
	}

	in, err := c.fetch(ctx, ref)
	if err != nil {
		c.logger.Warn("reference fetch failed", "ref", truncate(ref, 128), "err", err)
		return nil
	}
	return &in
}

func (c *Codec) fetch(ctx context.Context, url string) (Inline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Inline{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Inline{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Inline{}, fmt.Errorf("fetch %s: %s", truncate(url, 128), resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return Inline{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return Inline{}, fmt.Errorf("reference larger than %d bytes", c.maxBytes)
	}

	return FromBytes(data, resp.Header.Get("content-type"))
}

// resolveMediaType prefers a declared image/* type and falls back to content
// sniffing. It returns "" when the bytes are not an image.
func resolveMediaType(declared string, data []byte) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if strings.HasPrefix(mt, "image/") {
		return mt
	}

	detected := mimetype.Detect(data).String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return ""
}

// truncate cuts s to at most max bytes on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}
