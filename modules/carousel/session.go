package carousel

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 스타일 분석 실패는 카드 에러가 아니라 편집 단계 전체를 막는 에러
const styleFailedMessage = "Failed to analyze image style. Please try a different image."

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCardNotFound    = errors.New("card not found")
	ErrNotResolved     = errors.New("every card needs a generated image before preview")
	ErrNoImageToEdit   = errors.New("card has no image to edit")
	ErrNoInstruction   = errors.New("edit instruction is empty")
)

// Session - 워크플로우 상태 머신
// 기준 이미지, 화풍 설명, 카드 컬렉션, 현재 단계의 단일 소유자
type Session struct {
	ID string

	mu               sync.Mutex
	phase            Phase
	baseImage        string
	styleStatus      StyleStatus
	styleDescription string
	styleError       string
	nav              Navigator
	createdAt        time.Time
	lastActivity     time.Time

	store  *Store
	gen    Generator
	notify Notifier
}

func newSession(id string, gen Generator, notify Notifier) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		phase:        PhaseStart,
		styleStatus:  StyleNone,
		createdAt:    now,
		lastActivity: now,
		store:        newStore(id, gen, notify),
		gen:          gen,
		notify:       notify,
	}
}

// Upload - Start → Editing 전이
// 기준 이미지 설정, 빈 카드 한 장 시드, 스타일 분석 비동기 시작
func (s *Session) Upload(imageURI string) {
	s.store.Reset()
	epoch := s.store.Epoch()

	s.mu.Lock()
	s.baseImage = imageURI
	s.phase = PhaseEditing
	s.styleStatus = StylePending
	s.styleDescription = ""
	s.styleError = ""
	s.nav.Reset()
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.emit(Event{Type: EventPhaseChanged, SessionID: s.ID, Phase: PhaseEditing})
	s.emit(Event{Type: EventStyleAnalysis, SessionID: s.ID, StyleStatus: StylePending})

	s.store.AddCard()

	go s.analyzeStyle(imageURI, epoch)
}

// analyzeStyle - 스타일 분석 서브플로우 (기준 이미지당 1회)
// StartOver 이후 도착한 결과는 epoch 불일치로 버림
func (s *Session) analyzeStyle(imageURI string, epoch int64) {
	description, err := s.gen.DescribeStyle(context.Background(), imageURI)

	s.mu.Lock()
	if epoch != s.store.Epoch() {
		s.mu.Unlock()
		log.Printf("🗑️  [Session %s] Dropping stale style analysis result", s.ID)
		return
	}

	var ev Event
	if err != nil {
		s.styleStatus = StyleFailed
		s.styleError = styleFailedMessage
		ev = Event{Type: EventStyleAnalysis, SessionID: s.ID, StyleStatus: StyleFailed, StyleError: s.styleError}
		log.Printf("❌ [Session %s] Style analysis failed: %v", s.ID, err)
	} else {
		s.styleStatus = StyleReady
		s.styleDescription = description
		ev = Event{Type: EventStyleAnalysis, SessionID: s.ID, StyleStatus: StyleReady}
		log.Printf("✅ [Session %s] Style analysis ready", s.ID)
	}
	s.mu.Unlock()

	s.emit(ev)
}

// StartOver - 어느 단계에서든 Start로 복귀
// 기준 이미지와 카드 전체 파기, 진행 중인 작업은 버려짐
func (s *Session) StartOver() {
	s.store.Reset()

	s.mu.Lock()
	s.baseImage = ""
	s.styleStatus = StyleNone
	s.styleDescription = ""
	s.styleError = ""
	s.phase = PhaseStart
	s.nav.Reset()
	s.lastActivity = time.Now()
	s.mu.Unlock()

	log.Printf("🔄 [Session %s] Start over", s.ID)
	s.emit(Event{Type: EventPhaseChanged, SessionID: s.ID, Phase: PhaseStart})
}

// EnterPreview - Editing → Preview (컬렉션이 완전히 해소된 경우에만)
func (s *Session) EnterPreview() error {
	if !s.store.CanPreview() {
		return ErrNotResolved
	}

	s.mu.Lock()
	s.phase = PhasePreview
	s.nav.Reset()
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.emit(Event{Type: EventPhaseChanged, SessionID: s.ID, Phase: PhasePreview})
	return nil
}

// BackToEditor - Preview → Editing (항상 허용)
func (s *Session) BackToEditor() {
	s.mu.Lock()
	s.phase = PhaseEditing
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.emit(Event{Type: EventPhaseChanged, SessionID: s.ID, Phase: PhaseEditing})
}

// AddCard - 카드 추가
func (s *Session) AddCard() Card {
	s.touch()
	return s.store.AddCard()
}

// UpdateText - 카드 텍스트 수정
func (s *Session) UpdateText(cardID int64, text string) bool {
	s.touch()
	return s.store.UpdateText(cardID, text)
}

// RemoveCard - 카드 삭제 (마지막 카드는 불가)
func (s *Session) RemoveCard(cardID int64) bool {
	s.touch()
	removed := s.store.RemoveCard(cardID)
	if removed {
		s.mu.Lock()
		s.nav.Clamp(s.store.Count())
		s.mu.Unlock()
	}
	return removed
}

// GenerateCard - 카드 이미지 생성 시작
// 화풍 설명이 준비되지 않았으면 no-op
func (s *Session) GenerateCard(cardID int64) bool {
	s.touch()

	s.mu.Lock()
	status := s.styleStatus
	description := s.styleDescription
	s.mu.Unlock()

	if status != StyleReady {
		return false
	}
	return s.store.Generate(cardID, description)
}

// EditImage - 편집 모달의 작업 사본 편집 (동기)
// 카드 상태는 건드리지 않음 - 저장은 CommitImage로 별도 수행
func (s *Session) EditImage(ctx context.Context, cardID int64, workingImage string, instruction string) (string, error) {
	s.touch()

	if instruction == "" {
		return "", ErrNoInstruction
	}

	source := workingImage
	if source == "" {
		card, ok := s.store.CardByID(cardID)
		if !ok {
			return "", ErrCardNotFound
		}
		if card.Image == "" {
			return "", ErrNoImageToEdit
		}
		source = card.Image
	}

	return s.gen.EditImage(ctx, source, instruction)
}

// CommitImage - 편집 결과를 카드에 반영
func (s *Session) CommitImage(cardID int64, image string) bool {
	s.touch()
	return s.store.UpdateImage(cardID, image)
}

// NextSlide / PreviousSlide / SelectSlide - 프리뷰 순환 내비게이션
func (s *Session) NextSlide() int {
	s.mu.Lock()
	index := s.nav.Next(s.store.Count())
	s.mu.Unlock()

	s.emit(Event{Type: EventPreviewIndex, SessionID: s.ID, PreviewIndex: index})
	return index
}

func (s *Session) PreviousSlide() int {
	s.mu.Lock()
	index := s.nav.Previous(s.store.Count())
	s.mu.Unlock()

	s.emit(Event{Type: EventPreviewIndex, SessionID: s.ID, PreviewIndex: index})
	return index
}

func (s *Session) SelectSlide(i int) int {
	s.mu.Lock()
	index := s.nav.Select(i, s.store.Count())
	s.mu.Unlock()

	s.emit(Event{Type: EventPreviewIndex, SessionID: s.ID, PreviewIndex: index})
	return index
}

// Cards - 카드 스냅샷
func (s *Session) Cards() []Card {
	return s.store.Cards()
}

// CardByID - 카드 단건 조회
func (s *Session) CardByID(cardID int64) (Card, bool) {
	return s.store.CardByID(cardID)
}

// Snapshot - 세션 전체 상태 (REST 응답용)
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()

	// 방어적 처리: 기준 이미지 없이 Editing에 있으면 Start로 강제 복귀
	if s.phase == PhaseEditing && s.baseImage == "" {
		s.phase = PhaseStart
		s.styleStatus = StyleNone
		s.styleDescription = ""
		s.styleError = ""
	}

	state := SessionState{
		SessionID:        s.ID,
		Phase:            s.phase,
		BaseImage:        s.baseImage,
		StyleStatus:      s.styleStatus,
		StyleDescription: s.styleDescription,
		StyleError:       s.styleError,
		PreviewIndex:     s.nav.Index(),
	}
	s.mu.Unlock()

	state.Cards = s.store.Cards()
	state.CanPreview = s.store.CanPreview()
	return state
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) emit(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}

// Manager - 세션 레지스트리
// 상태는 전부 메모리 - 세션이 끝나면 함께 사라짐
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	gen      Generator
	notify   Notifier
}

func NewManager(gen Generator, notify Notifier) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		gen:      gen,
		notify:   notify,
	}
}

// CreateSession - 업로드 성공 시 새 세션 생성 + Editing 진입
func (m *Manager) CreateSession(imageURI string) *Session {
	session := newSession(uuid.New().String(), m.gen, m.notify)

	m.mu.Lock()
	m.sessions[session.ID] = session
	total := len(m.sessions)
	m.mu.Unlock()

	log.Printf("✅ Created new session: %s (Active: %d)", session.ID, total)

	session.Upload(imageURI)
	return session
}

// GetSession - 세션 조회
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()
	return session, exists
}

// cleanupExpiredSessions - 만료된 세션 정리 (24시간 경과 또는 2시간 비활성)
func (m *Manager) cleanupExpiredSessions() {
	now := time.Now()
	expiredThreshold := 24 * time.Hour
	inactiveThreshold := 2 * time.Hour

	m.mu.Lock()
	cleaned := 0
	for id, session := range m.sessions {
		session.mu.Lock()
		isExpired := now.Sub(session.createdAt) > expiredThreshold
		isInactive := now.Sub(session.lastActivity) > inactiveThreshold
		session.mu.Unlock()

		if isExpired || isInactive {
			delete(m.sessions, id)
			cleaned++
			log.Printf("⏰ Cleaned up expired session: %s (Age: %v)", id, now.Sub(session.createdAt))
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if cleaned > 0 {
		log.Printf("🧼 Cleaned up %d expired/inactive sessions (Active: %d)", cleaned, remaining)
	}
}

// StartCleanupRoutine - 정기적 정리 작업 시작
func (m *Manager) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			m.cleanupExpiredSessions()
		}
	}()

	log.Printf("🔄 Started session cleanup routine (every 30min)")
}
