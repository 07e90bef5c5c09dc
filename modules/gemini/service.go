package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"carousel-studio-server/modules/common/config"
	"carousel-studio-server/modules/common/utils"
)

type Service struct {
	genaiClient *genai.Client
	textModel   string
	imageModel  string
}

// NewService - Genai 클라이언트 초기화 (API 키는 config에서 주입)
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Genai client: %w", err)
	}

	log.Println("✅ [Gemini] Service initialized")
	return &Service{
		genaiClient: genaiClient,
		textModel:   cfg.GeminiTextModel,
		imageModel:  cfg.GeminiImageModel,
	}, nil
}

// DescribeStyle - 기준 이미지의 화풍 설명 생성
// 반환된 텍스트는 이후 모든 생성 프롬프트의 접두어로 쓰임
func (s *Service) DescribeStyle(ctx context.Context, imageURI string) (string, error) {
	mimeType, imageData, err := utils.ParseDataURI(imageURI, describeFallbackMime)
	if err != nil {
		return "", fmt.Errorf("invalid base image: %w", err)
	}

	log.Printf("🔍 [Gemini] Analyzing image style: %s, %d bytes", mimeType, len(imageData))

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromBytes(imageData, mimeType),
			genai.NewPartFromText(styleInstruction),
		},
	}

	result, err := s.genaiClient.Models.GenerateContent(ctx, s.textModel, []*genai.Content{content}, nil)
	if err != nil {
		log.Printf("❌ [Gemini] Style analysis error: %v", err)
		return "", &ServiceError{Op: "describe style", Err: err}
	}

	// 텍스트 파트 수집
	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		break
	}

	description := sb.String()
	log.Printf("✅ [Gemini] Style described: %s", truncateString(description, 80))
	return description, nil
}

// GenerateImage - 화풍 설명 + 카드 텍스트로 1:1 이미지 한 장 생성
func (s *Service) GenerateImage(ctx context.Context, prompt string, styleDescription string) (string, error) {
	fullPrompt := fmt.Sprintf("%s. Create an image depicting: %s", styleDescription, prompt)

	log.Printf("🎨 [Gemini] Generating image - model: %s, prompt: %s",
		s.imageModel, truncateString(prompt, 50))

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(fullPrompt),
		},
	}

	result, err := s.genaiClient.Models.GenerateContent(
		ctx,
		s.imageModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			CandidateCount: 1,
			ImageConfig: &genai.ImageConfig{
				AspectRatio: "1:1",
			},
		},
	)
	if err != nil {
		log.Printf("❌ [Gemini] Image generation error: %v", err)
		return "", &ServiceError{Op: "generate image", Err: err}
	}

	// 응답에서 이미지 추출
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("✅ [Gemini] Image generated: %d bytes", len(part.InlineData.Data))
				return inlineDataURI(part), nil
			}
		}
	}

	log.Printf("⚠️ [Gemini] Generation succeeded but returned no images")
	return "", ErrEmptyResult
}

// EditImage - 이미지 + 자유 지시문으로 편집
// 응답 파트를 순서대로 훑어 첫 번째 인라인 이미지 반환
func (s *Service) EditImage(ctx context.Context, imageURI string, instruction string) (string, error) {
	mimeType, imageData, err := utils.ParseDataURI(imageURI, editFallbackMime)
	if err != nil {
		return "", fmt.Errorf("invalid input image: %w", err)
	}

	log.Printf("✏️  [Gemini] Editing image - %s, %d bytes, instruction: %s",
		mimeType, len(imageData), truncateString(instruction, 50))

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromBytes(imageData, mimeType),
			genai.NewPartFromText(instruction),
		},
	}

	result, err := s.genaiClient.Models.GenerateContent(
		ctx,
		s.imageModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	)
	if err != nil {
		log.Printf("❌ [Gemini] Image edit error: %v", err)
		return "", &ServiceError{Op: "edit image", Err: err}
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("✅ [Gemini] Image edited: %d bytes, type: %s",
					len(part.InlineData.Data), part.InlineData.MIMEType)
				return inlineDataURI(part), nil
			}
		}
	}

	log.Printf("⚠️ [Gemini] Edit succeeded but returned no image parts")
	return "", ErrEmptyResult
}

// inlineDataURI - 인라인 이미지 파트를 data URI로 포장
func inlineDataURI(part *genai.Part) string {
	mimeType := part.InlineData.MIMEType
	if mimeType == "" {
		mimeType = editFallbackMime
	}
	return utils.EncodeDataURI(mimeType, part.InlineData.Data)
}

// truncateString - 로그용 문자열 자르기
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
