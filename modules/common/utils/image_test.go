package utils

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestEncodeDataURI(t *testing.T) {
	uri := EncodeDataURI("image/png", []byte{0x89, 0x50})
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 0x50})
	if uri != want {
		t.Errorf("uri = %q, want %q", uri, want)
	}
}

func TestParseDataURIExtractsEmbeddedMime(t *testing.T) {
	payload := []byte("hello image")
	uri := EncodeDataURI("image/webp", payload)

	mimeType, data, err := ParseDataURI(uri, "image/jpeg")
	if err != nil {
		t.Fatalf("ParseDataURI: %v", err)
	}
	if mimeType != "image/webp" {
		t.Errorf("mime = %q, want image/webp", mimeType)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("data = %q, want %q", data, payload)
	}
}

func TestParseDataURIFallsBackWhenMimeMissing(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("raw"))

	mimeType, data, err := ParseDataURI(payload, "image/jpeg")
	if err != nil {
		t.Fatalf("ParseDataURI: %v", err)
	}
	if mimeType != "image/jpeg" {
		t.Errorf("mime = %q, want fallback image/jpeg", mimeType)
	}
	if string(data) != "raw" {
		t.Errorf("data = %q", data)
	}
}

func TestParseDataURIRejectsGarbage(t *testing.T) {
	if _, _, err := ParseDataURI("data:image/png;base64,!!!not-base64!!!", "image/png"); err == nil {
		t.Error("expected error for invalid base64 payload")
	}
	if _, _, err := ParseDataURI("data:image/png;base64,", "image/png"); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestParseDataURIRoundTrip(t *testing.T) {
	original := []byte{0x00, 0x01, 0xFF, 0xFE}
	mimeType, data, err := ParseDataURI(EncodeDataURI("image/png", original), "image/jpeg")
	if err != nil {
		t.Fatalf("ParseDataURI: %v", err)
	}
	if mimeType != "image/png" || !bytes.Equal(data, original) {
		t.Errorf("round trip lost data: %q %v", mimeType, data)
	}
}

func TestNormalizePNGPassesThroughPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	original := buf.Bytes()

	out, err := NormalizePNG(original)
	if err != nil {
		t.Fatalf("NormalizePNG: %v", err)
	}
	// 이미 PNG면 원본 그대로
	if !bytes.Equal(out, original) {
		t.Error("PNG input should be returned unchanged")
	}
}

func TestNormalizePNGConvertsJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}

	out, err := NormalizePNG(buf.Bytes())
	if err != nil {
		t.Fatalf("NormalizePNG: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("output is not valid PNG: %v", err)
	}
}

func TestNormalizePNGRejectsNonImage(t *testing.T) {
	if _, err := NormalizePNG([]byte("definitely not an image")); err == nil {
		t.Error("expected decode error")
	}
}
