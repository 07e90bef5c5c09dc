package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Gemini API
	GeminiAPIKey     string
	GeminiTextModel  string // 스타일 분석용 (텍스트 응답)
	GeminiImageModel string // 이미지 생성/편집용

	// Server
	Port string
}

// LoadConfig - 환경변수 로드
// API 키가 없으면 에러 반환 - 서버는 키 없이 기동하지 않음
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := &Config{
		// Gemini API
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),

		// Server
		Port: getEnv("PORT", "8080"),
	}

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Gemini text model: %s", cfg.GeminiTextModel)
	log.Printf("   Gemini image model: %s", cfg.GeminiImageModel)
	log.Printf("   Port: %s", cfg.Port)

	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
