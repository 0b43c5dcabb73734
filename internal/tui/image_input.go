package tui

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-homedir"

	"github.com/evanschultz/lapse/internal/domain"
)

// maxEmbeddedImageBytes caps files encoded into the record.
const maxEmbeddedImageBytes = 2 << 20

var errNotAnImage = errors.New("not an image")

// resolveImageInput turns what the user typed or pasted into an image. Blank
// clears the image, URLs and data URIs are stored as given, and anything else
// is read as a local file and embedded.
func resolveImageInput(raw string, readFile func(string) ([]byte, error)) (domain.Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.NoImage(), nil
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return domain.ParseImage(raw)
	}

	path, err := homedir.Expand(raw)
	if err != nil {
		return domain.Image{}, fmt.Errorf("expand image path: %w", err)
	}
	data, err := readFile(path)
	if err != nil {
		return domain.Image{}, fmt.Errorf("read image file: %w", err)
	}
	if len(data) > maxEmbeddedImageBytes {
		return domain.Image{}, fmt.Errorf("image file is %s; limit is %s",
			humanize.IBytes(uint64(len(data))), humanize.IBytes(maxEmbeddedImageBytes))
	}
	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		return domain.Image{}, fmt.Errorf("%w: detected %s", errNotAnImage, mediaType)
	}
	return domain.EmbeddedImage(mediaType, data)
}

// imageInfo describes an embedded image by decoding its header. A decode
// failure is the terminal's equivalent of a failed image load.
func imageInfo(img domain.Image) (string, error) {
	switch img.Kind() {
	case domain.ImageEmbedded:
		cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data()))
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", img.MediaType(), err)
		}
		return fmt.Sprintf("%d×%d %s, %s", cfg.Width, cfg.Height, format, humanize.Bytes(uint64(img.Size()))), nil
	case domain.ImageRemote:
		return img.URL(), nil
	default:
		return "none", nil
	}
}
