// Package media ingests local evidence files into clinical.MediaSample values
// and converts samples to and from their base64 transport form.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder for DecodeConfig
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // register decoder for DecodeConfig
	_ "golang.org/x/image/tiff" // register decoder for DecodeConfig
	_ "golang.org/x/image/webp" // register decoder for DecodeConfig

	"hakim/pkg/clinical"
	"hakim/pkg/logx"
)

// DefaultMaxBytes matches the inline payload limit of the model API.
const DefaultMaxBytes int64 = 20 << 20

// Sentinel errors.
var (
	ErrEmpty       = errors.New("media file is empty")
	ErrTooLarge    = errors.New("media file exceeds size limit")
	ErrUnsupported = errors.New("unsupported media type")
)

// extensionTypes covers formats whose system mime tables are unreliable.
//
//nolint:gochecknoglobals
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
}

// sniffAliases maps sniffed container types to the audio type a recorder
// produces.
//
//nolint:gochecknoglobals
var sniffAliases = map[string]string{
	"video/webm":      "audio/webm",
	"application/ogg": "audio/ogg",
	"audio/wave":      "audio/wav",
}

// Loader reads evidence files under a size cap.
type Loader struct {
	maxBytes int64
	now      func() time.Time
	logger   *logx.Logger
}

// NewLoader creates a loader. A non-positive cap selects DefaultMaxBytes.
func NewLoader(maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logx.NewLogger("media"),
	}
}

// Load reads the file at path and returns a sample tagged with preset. The
// file is closed before Load returns.
func (l *Loader) Load(path string, preset clinical.BodyRegion) (clinical.MediaSample, error) {
	data, err := l.readCapped(path)
	if err != nil {
		return clinical.MediaSample{}, err
	}
	sample, err := l.FromBytes(filepath.Base(path), data, "", preset)
	if err != nil {
		return clinical.MediaSample{}, fmt.Errorf("%s: %w", path, err)
	}
	l.logger.Debug("Loaded %s", sample.Describe())
	return sample, nil
}

// FromBytes builds a sample from in-memory data. An empty mimeType is
// detected from name, then from the content.
func (l *Loader) FromBytes(name string, data []byte, mimeType string, preset clinical.BodyRegion) (clinical.MediaSample, error) {
	if len(data) == 0 {
		return clinical.MediaSample{}, ErrEmpty
	}
	if int64(len(data)) > l.maxBytes {
		return clinical.MediaSample{}, fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, len(data), l.maxBytes)
	}
	if preset == "" {
		preset = clinical.RegionGeneral
	}

	if mimeType == "" {
		mimeType = DetectMIME(name, data)
	} else {
		mimeType = baseType(mimeType)
	}
	if !supported(mimeType) {
		return clinical.MediaSample{}, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}

	sample := clinical.MediaSample{
		ID:         uuid.NewString(),
		Kind:       clinical.KindForMIME(mimeType),
		Data:       data,
		MIMEType:   mimeType,
		Preset:     preset,
		Name:       name,
		CapturedAt: l.now().UTC(),
	}
	if sample.Kind == clinical.MediaImage {
		sample.Width, sample.Height = probeDimensions(data)
	}
	return sample, nil
}

func (l *Loader) readCapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open media: %w", err)
	}
	defer func() { _ = f.Close() }()

	if info, statErr := f.Stat(); statErr == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		if info.Size() > l.maxBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, info.Size(), l.maxBytes)
		}
	}

	data, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s, limit %d", ErrTooLarge, path, l.maxBytes)
	}
	return data, nil
}

// DetectMIME returns the media type for a file, trying the extension first
// and the content second.
func DetectMIME(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return baseType(t)
		}
	}
	sniffed := baseType(http.DetectContentType(data))
	if alias, ok := sniffAliases[sniffed]; ok {
		return alias
	}
	return sniffed
}

func baseType(t string) string {
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(t))
}

func supported(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "audio/")
}

func probeDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
