// Package frame decodes screenshot payloads delivered by the automation
// engine and persists the most recent one for the operator to view. Frames
// are overwritten, not accumulated: the client keeps no history.
package frame

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Registered so image.DecodeConfig can size the common engine formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Frame is one decoded screenshot.
type Frame struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Decode decodes a base64 screenshot payload. An empty payload yields a nil
// frame without error; undecodable or unrecognized data fails.
func Decode(payload string) (*Frame, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 screenshot payload: %w", err)
	}

	mimeType := detectMimeType(data)
	if mimeType == "" {
		return nil, fmt.Errorf("unrecognized screenshot format (%d bytes)", len(data))
	}

	f := &Frame{Data: data, MimeType: mimeType}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		f.Width = cfg.Width
		f.Height = cfg.Height
	}
	return f, nil
}

// Ext returns the file extension for the frame's format, without the dot.
func (f *Frame) Ext() string {
	switch f.MimeType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}

// Save writes the frame to <dir>/latest.<ext>, replacing any previous frame.
// The write goes through a temp file so a concurrent viewer never sees a
// partial image. Returns the final path.
func (f *Frame) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	final := filepath.Join(dir, "latest."+f.Ext())
	tmp, err := os.CreateTemp(dir, ".frame-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp frame: %w", err)
	}
	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to replace frame: %w", err)
	}
	return final, nil
}

func detectMimeType(data []byte) string {
	if len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	if len(data) >= 3 && data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return ""
}
