package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ImageKind tags which variant an Image holds.
type ImageKind string

// ImageKind values.
const (
	ImageAbsent   ImageKind = "absent"
	ImageRemote   ImageKind = "remote"
	ImageEmbedded ImageKind = "embedded"
)

// Image is the picture shown inside a bubble: a remote reference, an embedded
// payload, or nothing. The zero value is Absent.
type Image struct {
	kind      ImageKind
	url       string
	mediaType string
	data      []byte
}

// NoImage returns the Absent image.
func NoImage() Image {
	return Image{}
}

// RemoteImage returns an image referenced by URL.
func RemoteImage(raw string) (Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Image{}, ErrInvalidImage
	}
	if _, err := url.Parse(raw); err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return Image{kind: ImageRemote, url: raw}, nil
}

// EmbeddedImage returns an image carried inline as bytes.
func EmbeddedImage(mediaType string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrInvalidImage
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return Image{
		kind:      ImageEmbedded,
		mediaType: mediaType,
		data:      bytes.Clone(data),
	}, nil
}

// UnreadableImage keeps a stored reference that no longer parses so it can be
// written back unchanged. It is reported as Remote and should be paired with a
// load failure.
func UnreadableImage(ref string) Image {
	if ref == "" {
		return NoImage()
	}
	return Image{kind: ImageRemote, url: ref}
}

// ParseImage decodes a stored or user-supplied image reference. An empty
// reference is Absent, a data URI is Embedded, anything else is Remote.
func ParseImage(ref string) (Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return NoImage(), nil
	}
	if strings.HasPrefix(strings.ToLower(ref), "data:") {
		return parseDataURI(ref)
	}
	return RemoteImage(ref)
}

// parseDataURI handles `data:[<mediatype>][;base64],<payload>`.
func parseDataURI(ref string) (Image, error) {
	header, payload, ok := strings.Cut(ref[len("data:"):], ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: data uri missing payload", ErrInvalidImage)
	}
	isBase64 := false
	mediaType := header
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		isBase64 = true
		mediaType = header[:len(header)-len(";base64")]
	}
	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		data = []byte(unescaped)
	}
	return EmbeddedImage(mediaType, data)
}

// Kind returns the variant tag.
func (i Image) Kind() ImageKind {
	if i.kind == "" {
		return ImageAbsent
	}
	return i.kind
}

// IsAbsent reports whether no image is set.
func (i Image) IsAbsent() bool {
	return i.Kind() == ImageAbsent
}

// URL returns the remote reference, or "" for other kinds.
func (i Image) URL() string {
	return i.url
}

// MediaType returns the embedded content type, or "" for other kinds.
func (i Image) MediaType() string {
	return i.mediaType
}

// Data returns a copy of the embedded bytes.
func (i Image) Data() []byte {
	return bytes.Clone(i.data)
}

// Size returns the embedded payload length in bytes.
func (i Image) Size() int {
	return len(i.data)
}

// Ref encodes the image back into its stored reference form.
func (i Image) Ref() string {
	switch i.Kind() {
	case ImageRemote:
		return i.url
	case ImageEmbedded:
		return "data:" + i.mediaType + ";base64," + base64.StdEncoding.EncodeToString(i.data)
	default:
		return ""
	}
}

// Equal reports whether two images carry the same reference.
func (i Image) Equal(o Image) bool {
	if i.Kind() != o.Kind() {
		return false
	}
	return i.url == o.url && i.mediaType == o.mediaType && bytes.Equal(i.data, o.data)
}

// ResolveImage picks the reference a presentation layer should display. Absent
// images and images whose last load failed fall back.
func ResolveImage(img Image, loadFailed bool, fallback string) string {
	if loadFailed || img.IsAbsent() {
		return fallback
	}
	return img.Ref()
}
