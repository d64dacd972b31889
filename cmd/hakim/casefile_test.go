package main

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakim/pkg/clinical"
	"hakim/pkg/gateway"
	"hakim/pkg/intake"
	"hakim/pkg/media"
)

func TestLoadCaseFileResolvesMediaPaths(t *testing.T) {
	path := writeCase(t, throatCase)

	cf, err := LoadCaseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sore throat and fever for three days", cf.Complaint)
	assert.Equal(t, []string{"yes", "7", "no", "after a cold"}, cf.Answers)
	require.Len(t, cf.Media, 1)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "throat.png"), cf.Media[0].Path)
	assert.Equal(t, "throat", cf.Media[0].Preset)
	assert.False(t, cf.Emergency)
}

func TestLoadCaseFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing complaint", "answers: [yes]\n"},
		{"bad yaml", "complaint: [\n"},
		{"unknown preset", "complaint: rash\nmedia:\n  - path: a.png\n    preset: elbow\n"},
		{"media without path", "complaint: rash\nmedia:\n  - preset: skin\n"},
		{"path and inline", "complaint: rash\nmedia:\n  - path: a.png\n    inline:\n      mime_type: image/png\n      data: AAAA\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCaseFile(writeCase(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadCaseFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCaseFileEmergencyNeedsNoComplaint(t *testing.T) {
	cf, err := LoadCaseFile(writeCase(t, "emergency: true\n"))
	require.NoError(t, err)
	assert.True(t, cf.Emergency)
}

func TestRunCaseWithInlineEvidence(t *testing.T) {
	client := healthyClient()
	stubGateway(t, client)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 7, 3))))
	body := "complaint: itchy rash on the forearm\n" +
		"media:\n" +
		"  - preset: skin\n" +
		"    inline:\n" +
		"      id: phone-capture-1\n" +
		"      name: forearm.png\n" +
		"      mime_type: image/png\n" +
		"      data: " + base64.StdEncoding.EncodeToString(buf.Bytes()) + "\n"

	cf, err := LoadCaseFile(writeCase(t, body))
	require.NoError(t, err)
	require.NotNil(t, cf.Media[0].Inline)
	assert.Empty(t, cf.Media[0].Path)

	ctrl := intake.NewController(gateway.New(client, gateway.Options{}))
	s, err := runCase(ctrl, cf, media.NewLoader(0))
	require.NoError(t, err)

	require.Len(t, s.MediaSamples, 1)
	sample := s.MediaSamples[0]
	assert.Equal(t, "phone-capture-1", sample.ID)
	assert.Equal(t, clinical.RegionSkin, sample.Preset)
	assert.Equal(t, 7, sample.Width)
	assert.Equal(t, buf.Bytes(), sample.Data)

	req, ok := client.LastRequest()
	require.True(t, ok)
	require.Len(t, req.Messages, 2)
	attachments := req.Messages[1].Attachments
	require.Len(t, attachments, 1)
	assert.Equal(t, "image/png", attachments[0].MIMEType)
	assert.Equal(t, buf.Bytes(), attachments[0].Data)
}
