package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	"image/png"
	"regexp"
	"strings"
)

// dataURIPattern - data URI에서 MIME 타입 추출용
var dataURIPattern = regexp.MustCompile(`^data:(.*?);base64,`)

// EncodeDataURI - 이미지 바이너리를 data URI 문자열로 변환
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI - data URI에서 MIME 타입과 바이너리 추출
// MIME 타입이 없으면 fallbackMime 사용
func ParseDataURI(uri string, fallbackMime string) (string, []byte, error) {
	mimeType := fallbackMime
	if m := dataURIPattern.FindStringSubmatch(uri); m != nil && m[1] != "" {
		mimeType = m[1]
	}

	// 페이로드는 첫 번째 콤마 뒤 전체
	payload := uri
	if idx := strings.Index(uri, ","); idx >= 0 {
		payload = uri[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty image payload")
	}

	return mimeType, data, nil
}

// NormalizePNG - 이미지 바이너리를 PNG로 변환 (WebP, JPEG 자동 감지)
// 이미 PNG면 원본 그대로 반환
func NormalizePNG(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if format == "png" {
		return data, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
