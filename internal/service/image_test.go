package service_test

import (
	"bytes"
	"testing"

	"github.com/saadjs/kcal-snap/internal/service"
)

func TestStageImageSniffsType(t *testing.T) {
	t.Parallel()
	img, err := service.StageImage(pngHeader, "", 0)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if img.MIMEType != "image/png" || img.Width != 1 || img.Height != 1 {
		t.Fatalf("unexpected staged image: %+v", img)
	}
	if img.Ref == "" {
		t.Fatalf("expected a reference")
	}

	other, err := service.StageImage(pngHeader, "image/png", 0)
	if err != nil {
		t.Fatalf("stage again: %v", err)
	}
	if other.Ref == img.Ref {
		t.Fatalf("expected distinct references")
	}
}

func TestStageImageCorrectsDeclaredType(t *testing.T) {
	t.Parallel()
	img, err := service.StageImage(pngHeader, "image/heic", 0)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Fatalf("expected decoded format to win, got %s", img.MIMEType)
	}
}

func TestStageImageRejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		data []byte
		mime string
		max  int
	}{
		{"empty", nil, "image/png", 0},
		{"too large", bytes.Repeat([]byte{1}, 64), "image/png", 16},
		{"not an image", []byte("hello, world"), "", 0},
		{"text declared", pngHeader, "text/plain", 0},
		{"corrupt jpeg", []byte{0xff, 0xd8, 0xff, 0x00, 0x01}, "image/jpeg", 0},
	}
	for _, tc := range cases {
		_, err := service.StageImage(tc.data, tc.mime, tc.max)
		var ve *service.ValidationError
		if !asValidation(err, &ve) || ve.Field != "image" {
			t.Fatalf("%s: expected image validation error, got %v", tc.name, err)
		}
	}
}

func TestStageImageAcceptsUndecodableFormats(t *testing.T) {
	t.Parallel()
	img, err := service.StageImage([]byte("....ftypheic...."), "image/heic", 0)
	if err != nil {
		t.Fatalf("stage heic: %v", err)
	}
	if img.MIMEType != "image/heic" || img.Width != 0 {
		t.Fatalf("unexpected staged image: %+v", img)
	}
}
