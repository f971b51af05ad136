package thumbnails

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"path"
	"strings"

	"tokencast/internal/database"
	"tokencast/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

type streamStore interface {
	Get(ctx context.Context, id string) (*models.Stream, error)
	SetThumbnailURL(ctx context.Context, id string, url *string) error
}

var _ streamStore = (*database.StreamRepository)(nil)

type userStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

var _ userStore = (*database.UserRepository)(nil)

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const (
	placeholderWidth  = 320
	placeholderHeight = 180
)

// Service resolves displayable thumbnail URLs with a fallback chain: cache,
// persisted reference, owner avatar, generated placeholder. Thumbnails for
// live streams are captured client-side; the server only stores the URL it
// is given.
type Service struct {
	streams streamStore
	users   userStore
	cache   Store
	content afero.Fs
	baseURL string
}

// NewService creates the thumbnail service. content is the file store serving
// the /thumbnails/ static route.
func NewService(streams streamStore, users userStore, cache Store, content afero.Fs, baseURL string) *Service {
	return &Service{
		streams: streams,
		users:   users,
		cache:   cache,
		content: content,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Resolve returns a displayable thumbnail URL for the stream.
func (s *Service) Resolve(ctx context.Context, streamID string) (string, error) {
	if url, ok := s.cache.Get(streamID); ok {
		return url, nil
	}

	stream, err := s.streams.Get(ctx, streamID)
	if err != nil {
		return "", fmt.Errorf("resolve thumbnail: %w", err)
	}
	if stream == nil {
		return "", fmt.Errorf("%w: stream %s", models.ErrNotFound, streamID)
	}

	if stream.ThumbnailURL != nil && *stream.ThumbnailURL != "" && !s.selfReferential(streamID, *stream.ThumbnailURL) {
		s.cache.Set(streamID, *stream.ThumbnailURL)
		return *stream.ThumbnailURL, nil
	}

	owner, err := s.users.Get(ctx, stream.UserID)
	if err != nil {
		return "", fmt.Errorf("resolve thumbnail: %w", err)
	}
	if owner != nil && owner.AvatarURL != nil && *owner.AvatarURL != "" {
		return *owner.AvatarURL, nil
	}

	url, err := s.placeholderURL(streamID)
	if err != nil {
		return "", fmt.Errorf("resolve thumbnail: %w", err)
	}
	return url, nil
}

// selfReferential guards against a persisted URL that points back into the
// resolve endpoint for the same stream, which would redirect forever.
func (s *Service) selfReferential(streamID, url string) bool {
	return strings.Contains(url, "/api/streams/"+streamID+"/thumbnail")
}

// CacheURL inserts or overwrites the cache entry for a stream.
func (s *Service) CacheURL(streamID, url string) {
	s.cache.Set(streamID, url)
}

// Upload stores thumbnail bytes for a stream the caller owns and updates the
// persisted reference.
func (s *Service) Upload(ctx context.Context, streamID, callerUserID string, data []byte) (string, error) {
	stream, err := s.streams.Get(ctx, streamID)
	if err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}
	if stream == nil {
		return "", fmt.Errorf("%w: stream %s", models.ErrNotFound, streamID)
	}
	if stream.UserID != callerUserID {
		return "", fmt.Errorf("%w: stream %s is not owned by caller", models.ErrUnauthorized, streamID)
	}

	detected := mimetype.Detect(data)
	if !allowedUploadTypes[detected.String()] {
		return "", fmt.Errorf("%w: unsupported thumbnail type %s", models.ErrValidation, detected.String())
	}

	name := path.Join("streams", streamID+detected.Extension())
	if err := afero.WriteFile(s.content, name, data, 0644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}

	url := s.baseURL + "/thumbnails/" + name
	if err := s.streams.SetThumbnailURL(ctx, streamID, &url); err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}

	s.cache.Set(streamID, url)
	slog.Info("[thumbnails] stored upload", "stream_id", streamID, "type", detected.String(), "bytes", len(data))
	return url, nil
}

// placeholderURL lazily renders a flat-color PNG for the stream and returns
// its static URL. The color is derived from the stream ID so a page of
// placeholders doesn't look uniform.
func (s *Service) placeholderURL(streamID string) (string, error) {
	name := path.Join("placeholders", streamID+".png")

	exists, err := afero.Exists(s.content, name)
	if err != nil {
		return "", fmt.Errorf("check placeholder: %w", err)
	}
	if !exists {
		data, err := renderPlaceholder(streamID)
		if err != nil {
			return "", fmt.Errorf("render placeholder: %w", err)
		}
		if err := afero.WriteFile(s.content, name, data, 0644); err != nil {
			return "", fmt.Errorf("write placeholder: %w", err)
		}
	}

	return s.baseURL + "/thumbnails/" + name, nil
}

func renderPlaceholder(streamID string) ([]byte, error) {
	h := fnv.New32a()
	h.Write([]byte(streamID))
	sum := h.Sum32()

	fill := color.RGBA{
		R: uint8(64 + (sum>>16)%128),
		G: uint8(64 + (sum>>8)%128),
		B: uint8(64 + sum%128),
		A: 255,
	}

	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	for y := 0; y < placeholderHeight; y++ {
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
