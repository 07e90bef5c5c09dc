package gemini

import (
	"errors"
	"fmt"
)

// 스타일 분석 지시문 - 결과가 생성 프롬프트의 접두어로 재사용됨
const styleInstruction = "Describe the artistic style of this image in a detailed, vibrant, and evocative manner. " +
	"Focus on color palette, lighting, composition, mood, and any discernible techniques " +
	"(e.g., 'oil painting', 'photorealistic', 'watercolor', 'art deco'). " +
	"This description will be used as a prompt for an image generation AI, so be specific and inspiring."

// MIME 타입이 data URI에 없을 때의 기본값
const (
	describeFallbackMime = "image/jpeg"
	editFallbackMime     = "image/png"
)

// ErrEmptyResult - 호출은 성공했지만 응답에 사용할 이미지가 없는 경우
var ErrEmptyResult = errors.New("no image data in Gemini response")

// ServiceError - 원격 호출 자체가 실패한 경우 (네트워크/인증/쿼터)
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("gemini %s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
