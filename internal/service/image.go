package service

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const DefaultMaxImageBytes = 8 << 20

// StagedImage is an image accepted for analysis. Ref is the opaque reference
// stored on the resulting food entry.
type StagedImage struct {
	Ref      string
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// StageImage checks that data looks like an image and gives it a reference.
// An empty mimeType is sniffed from the bytes.
func StageImage(data []byte, mimeType string, maxBytes int) (StagedImage, error) {
	if len(data) == 0 {
		return StagedImage{}, invalid("image", "image is empty")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	if len(data) > maxBytes {
		return StagedImage{}, invalid("image", "image is %d bytes, limit is %d", len(data), maxBytes)
	}

	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return StagedImage{}, invalid("image", "invalid content type %q", mimeType)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return StagedImage{}, invalid("image", "content type %q is not an image", mediaType)
	}

	staged := StagedImage{
		Ref:      uuid.NewString(),
		MIMEType: mediaType,
		Data:     data,
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	switch {
	case err == nil:
		staged.Width, staged.Height = cfg.Width, cfg.Height
		if declared := strings.TrimPrefix(mediaType, "image/"); declared != format && !(declared == "jpg" && format == "jpeg") {
			staged.MIMEType = "image/" + format
		}
	case decodable(mediaType):
		return StagedImage{}, invalid("image", "image data is not a valid %s", mediaType)
	}
	return staged, nil
}

func decodable(mediaType string) bool {
	switch mediaType {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}
