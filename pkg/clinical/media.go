package clinical

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind classifies captured evidence.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

// KindForMIME classifies by mime prefix. Anything that is not audio is
// treated as an image.
func KindForMIME(mimeType string) MediaKind {
	if strings.HasPrefix(strings.ToLower(mimeType), "audio/") {
		return MediaAudio
	}
	return MediaImage
}

// BodyRegion tags which capture workflow produced a sample.
type BodyRegion string

const (
	RegionThroat  BodyRegion = "THROAT"
	RegionSkin    BodyRegion = "SKIN"
	RegionWound   BodyRegion = "WOUND"
	RegionGeneral BodyRegion = "GENERAL"
)

// BodyRegions lists presets in menu order.
//
//nolint:gochecknoglobals
var BodyRegions = []BodyRegion{RegionThroat, RegionSkin, RegionWound, RegionGeneral}

// ParseBodyRegion accepts any casing; an empty string means General.
func ParseBodyRegion(s string) (BodyRegion, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RegionGeneral, nil
	}
	for _, r := range BodyRegions {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown body region %q (want THROAT, SKIN, WOUND or GENERAL)", s)
}

// Title returns the display form, e.g. "Throat".
func (r BodyRegion) Title() string {
	if r == "" {
		return "General"
	}
	return string(r[0]) + strings.ToLower(string(r[1:]))
}

// MediaSample is one captured piece of evidence. Samples are never mutated
// after capture.
type MediaSample struct {
	ID         string
	Kind       MediaKind
	Data       []byte
	MIMEType   string
	Preset     BodyRegion
	Name       string
	Width      int // 0 when unknown or not an image
	Height     int
	CapturedAt time.Time
}

// Describe returns a one-line summary used in prompts and status lines.
func (m *MediaSample) Describe() string {
	desc := fmt.Sprintf("%s %s (%s, %d bytes", m.Preset.Title(), m.Kind, m.MIMEType, len(m.Data))
	if m.Width > 0 && m.Height > 0 {
		desc += fmt.Sprintf(", %dx%d", m.Width, m.Height)
	}
	return desc + ")"
}
