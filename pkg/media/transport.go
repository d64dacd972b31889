package media

import (
	"cmp"
	"encoding/base64"
	"fmt"
	"time"

	"hakim/pkg/clinical"
)

// Encoded is the transport form of a sample: metadata plus base64 payload.
// Case files carry inline evidence in this form.
type Encoded struct {
	ID         string              `json:"id" yaml:"id"`
	Kind       clinical.MediaKind  `json:"kind" yaml:"kind"`
	MIMEType   string              `json:"mimeType" yaml:"mime_type"`
	Preset     clinical.BodyRegion `json:"preset" yaml:"preset"`
	Name       string              `json:"name,omitempty" yaml:"name,omitempty"`
	Width      int                 `json:"width,omitempty" yaml:"width,omitempty"`
	Height     int                 `json:"height,omitempty" yaml:"height,omitempty"`
	CapturedAt time.Time           `json:"capturedAt" yaml:"captured_at"`
	Data       string              `json:"data" yaml:"data"`
}

// Encode converts a sample to its transport form.
func Encode(s clinical.MediaSample) Encoded {
	return Encoded{
		ID:         s.ID,
		Kind:       s.Kind,
		MIMEType:   s.MIMEType,
		Preset:     s.Preset,
		Name:       s.Name,
		Width:      s.Width,
		Height:     s.Height,
		CapturedAt: s.CapturedAt,
		Data:       base64.StdEncoding.EncodeToString(s.Data),
	}
}

// Decode reverses Encode byte for byte.
func Decode(e Encoded) (clinical.MediaSample, error) {
	data, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return clinical.MediaSample{}, fmt.Errorf("media %s: invalid base64 payload: %w", e.ID, err)
	}
	if e.MIMEType == "" {
		return clinical.MediaSample{}, fmt.Errorf("media %s: mime type is required", e.ID)
	}
	kind := e.Kind
	if kind == "" {
		kind = clinical.KindForMIME(e.MIMEType)
	}
	preset := e.Preset
	if preset == "" {
		preset = clinical.RegionGeneral
	}
	return clinical.MediaSample{
		ID:         e.ID,
		Kind:       kind,
		Data:       data,
		MIMEType:   e.MIMEType,
		Preset:     preset,
		Name:       e.Name,
		Width:      e.Width,
		Height:     e.Height,
		CapturedAt: e.CapturedAt,
	}, nil
}

// Import decodes a transport-form sample and applies the checks Load applies:
// size cap, supported type, image dimensions. The ID and capture time are
// kept when set.
func (l *Loader) Import(e Encoded) (clinical.MediaSample, error) {
	decoded, err := Decode(e)
	if err != nil {
		return clinical.MediaSample{}, err
	}
	sample, err := l.FromBytes(decoded.Name, decoded.Data, decoded.MIMEType, decoded.Preset)
	if err != nil {
		return clinical.MediaSample{}, fmt.Errorf("media %s: %w", cmp.Or(e.Name, e.ID), err)
	}
	if decoded.ID != "" {
		sample.ID = decoded.ID
	}
	if !decoded.CapturedAt.IsZero() {
		sample.CapturedAt = decoded.CapturedAt
	}
	l.logger.Debug("Imported %s", sample.Describe())
	return sample, nil
}
