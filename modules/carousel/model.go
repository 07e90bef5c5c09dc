package carousel

import "context"

// Phase - 워크플로우 단계 (항상 정확히 하나만 활성)
type Phase string

const (
	PhaseStart   Phase = "start"
	PhaseEditing Phase = "editing"
	PhasePreview Phase = "preview"
)

// StyleStatus - 스타일 분석 서브플로우 상태
type StyleStatus string

const (
	StyleNone    StyleStatus = "none"    // 기준 이미지 없음
	StylePending StyleStatus = "pending" // 분석 진행 중 - 에디터 비활성
	StyleReady   StyleStatus = "ready"
	StyleFailed  StyleStatus = "failed" // 단계 전체를 막는 에러 (카드 에러와 구분)
)

// Card - 카드 한 장 = 최종 캐러셀의 슬라이드 한 장
type Card struct {
	ID           int64  `json:"id"`
	Text         string `json:"text"`
	Image        string `json:"image,omitempty"` // data URI, 생성 전에는 빈 문자열
	IsGenerating bool   `json:"isGenerating"`
	Error        string `json:"error,omitempty"`
}

// Generator - 원격 생성 서비스 계약
// modules/gemini.Service가 구현, 테스트에서는 fake로 대체
type Generator interface {
	DescribeStyle(ctx context.Context, imageURI string) (string, error)
	GenerateImage(ctx context.Context, prompt string, styleDescription string) (string, error)
	EditImage(ctx context.Context, imageURI string, instruction string) (string, error)
}

// 이벤트 타입 - WebSocket으로 브라우저에 푸시됨
const (
	EventPhaseChanged  = "phase_changed"
	EventStyleAnalysis = "style_analysis"
	EventCardUpdated   = "card_updated"
	EventCardRemoved   = "card_removed"
	EventPreviewIndex  = "preview_index"
)

// Event - 상태 변경 알림 메시지
type Event struct {
	Type         string      `json:"type"`
	SessionID    string      `json:"sessionId"`
	Phase        Phase       `json:"phase,omitempty"`
	StyleStatus  StyleStatus `json:"styleStatus,omitempty"`
	StyleError   string      `json:"styleError,omitempty"`
	Card         *Card       `json:"card,omitempty"`
	CardID       int64       `json:"cardId,omitempty"`
	PreviewIndex int         `json:"previewIndex,omitempty"`
}

// Notifier - 상태 변경 구독자 (main의 WebSocket 허브가 구현)
type Notifier func(Event)

// SessionState - 세션 전체 스냅샷 (REST 응답용)
type SessionState struct {
	SessionID        string      `json:"sessionId"`
	Phase            Phase       `json:"phase"`
	BaseImage        string      `json:"baseImage,omitempty"`
	StyleStatus      StyleStatus `json:"styleStatus"`
	StyleDescription string      `json:"styleDescription,omitempty"`
	StyleError       string      `json:"styleError,omitempty"`
	Cards            []Card      `json:"cards"`
	CanPreview       bool        `json:"canPreview"`
	PreviewIndex     int         `json:"previewIndex"`
}

// DownloadEntry - 다운로드 매니페스트 항목
type DownloadEntry struct {
	CardID   int64  `json:"cardId"`
	Index    int    `json:"index"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}
