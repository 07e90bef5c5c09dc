package carousel

import (
	"context"
	"log"
	"sync"
)

// 실패 메시지에 붙일 내용이 없을 때의 대체 문구
const unknownErrorMessage = "an unknown error occurred"

// Store - 카드 컬렉션과 카드별 생성 상태의 단일 소유자
// 모든 변경은 뮤텍스로 직렬화되고, 비동기 결과는 id + epoch로만 적용됨
type Store struct {
	mu        sync.Mutex
	sessionID string
	gen       Generator
	notify    Notifier
	cards     []*Card
	nextID    int64 // 단조 증가 카운터 - id는 세션 내에서 절대 재사용되지 않음
	epoch     int64 // Reset마다 증가 - 이전 세대의 비동기 결과를 무효화
}

func newStore(sessionID string, gen Generator, notify Notifier) *Store {
	return &Store{
		sessionID: sessionID,
		gen:       gen,
		notify:    notify,
	}
}

// AddCard - 빈 카드 추가
func (s *Store) AddCard() Card {
	s.mu.Lock()
	s.nextID++
	card := &Card{ID: s.nextID}
	s.cards = append(s.cards, card)
	snapshot := *card
	s.mu.Unlock()

	s.emitCard(snapshot)
	return snapshot
}

// UpdateText - 카드 텍스트 교체 (id 없으면 no-op)
func (s *Store) UpdateText(id int64, text string) bool {
	s.mu.Lock()
	card := s.findLocked(id)
	if card == nil {
		s.mu.Unlock()
		return false
	}
	card.Text = text
	snapshot := *card
	s.mu.Unlock()

	s.emitCard(snapshot)
	return true
}

// RemoveCard - 카드 삭제
// 마지막 남은 카드는 삭제 불가 - Editing/Preview에서 컬렉션은 항상 비어있지 않음
func (s *Store) RemoveCard(id int64) bool {
	s.mu.Lock()
	if len(s.cards) <= 1 {
		s.mu.Unlock()
		return false
	}
	for i, card := range s.cards {
		if card.ID == id {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			s.mu.Unlock()

			s.emit(Event{Type: EventCardRemoved, SessionID: s.sessionID, CardID: id})
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// UpdateImage - 카드 이미지 직접 덮어쓰기 (편집 모달 저장용)
// isGenerating/error는 건드리지 않음
func (s *Store) UpdateImage(id int64, image string) bool {
	s.mu.Lock()
	card := s.findLocked(id)
	if card == nil {
		s.mu.Unlock()
		return false
	}
	card.Image = image
	snapshot := *card
	s.mu.Unlock()

	s.emitCard(snapshot)
	return true
}

// Generate - 카드 이미지 비동기 생성 시작
// 전제조건 미충족(스타일 없음, 빈 텍스트, 이미 생성 중)은 에러가 아니라 no-op
func (s *Store) Generate(id int64, styleDescription string) bool {
	if styleDescription == "" {
		return false
	}

	s.mu.Lock()
	card := s.findLocked(id)
	if card == nil || card.Text == "" || card.IsGenerating {
		s.mu.Unlock()
		return false
	}

	card.IsGenerating = true
	card.Error = ""
	snapshot := *card
	epoch := s.epoch
	text := card.Text
	s.mu.Unlock()

	s.emitCard(snapshot)

	// 카드별 독립 고루틴 - 서로 다른 카드의 생성은 순서 보장 없음
	go func() {
		image, err := s.gen.GenerateImage(context.Background(), text, styleDescription)
		s.applyGenerateResult(id, epoch, image, err)
	}()

	return true
}

// applyGenerateResult - 생성 결과 반영
// 카드가 삭제됐거나 epoch가 바뀐 뒤 도착한 결과는 버림
func (s *Store) applyGenerateResult(id int64, epoch int64, image string, err error) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		log.Printf("🗑️  [Store] Dropping stale generation result for card %d (epoch %d != %d)", id, epoch, s.epoch)
		return
	}
	card := s.findLocked(id)
	if card == nil {
		s.mu.Unlock()
		log.Printf("🗑️  [Store] Dropping generation result for removed card %d", id)
		return
	}

	card.IsGenerating = false
	if err != nil {
		card.Error = failMessage(err)
		log.Printf("❌ [Store] Generation failed for card %d: %v", id, err)
	} else {
		card.Image = image
		card.Error = ""
		log.Printf("✅ [Store] Generation completed for card %d", id)
	}
	snapshot := *card
	s.mu.Unlock()

	s.emitCard(snapshot)
}

// CanPreview - 모든 카드가 이미지를 갖고 생성 중이 아닐 때만 true
func (s *Store) CanPreview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cards) == 0 {
		return false
	}
	for _, card := range s.cards {
		if card.Image == "" || card.IsGenerating {
			return false
		}
	}
	return true
}

// Cards - 현재 컬렉션 스냅샷 (순서 유지)
func (s *Store) Cards() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]Card, 0, len(s.cards))
	for _, card := range s.cards {
		cards = append(cards, *card)
	}
	return cards
}

// CardByID - 카드 단건 조회
func (s *Store) CardByID(id int64) (Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if card := s.findLocked(id); card != nil {
		return *card, true
	}
	return Card{}, false
}

// Count - 카드 개수
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}

// Epoch - 현재 세대 번호
func (s *Store) Epoch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Reset - 컬렉션 전체 파기 + 새 epoch 시작
// 진행 중인 생성 결과는 epoch 불일치로 도착 시 버려짐
func (s *Store) Reset() {
	s.mu.Lock()
	s.cards = nil
	s.epoch++
	s.mu.Unlock()
}

func (s *Store) findLocked(id int64) *Card {
	for _, card := range s.cards {
		if card.ID == id {
			return card
		}
	}
	return nil
}

func (s *Store) emitCard(card Card) {
	s.emit(Event{Type: EventCardUpdated, SessionID: s.sessionID, Card: &card})
}

func (s *Store) emit(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}

// failMessage - 실패를 카드에 표시할 메시지로 변환
func failMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		msg = unknownErrorMessage
	}
	return "Generation failed: " + msg
}
