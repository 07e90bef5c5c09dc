package carousel

import "fmt"

// Navigator - 프리뷰 슬라이드 인덱스 (순환)
type Navigator struct {
	index int
}

// Next - 마지막 슬라이드에서 0으로 순환
func (n *Navigator) Next(count int) int {
	if count <= 0 {
		n.index = 0
		return 0
	}
	n.index = (n.index + 1) % count
	return n.index
}

// Previous - 0에서 마지막 슬라이드로 순환
func (n *Navigator) Previous(count int) int {
	if count <= 0 {
		n.index = 0
		return 0
	}
	n.index = (n.index - 1 + count) % count
	return n.index
}

// Select - 인디케이터 클릭으로 직접 이동 (범위 밖은 무시)
func (n *Navigator) Select(i int, count int) int {
	if i >= 0 && i < count {
		n.index = i
	}
	return n.index
}

// Clamp - 카드 삭제 후 인덱스가 범위를 벗어나지 않도록 보정
func (n *Navigator) Clamp(count int) {
	if count <= 0 {
		n.index = 0
	} else if n.index >= count {
		n.index = count - 1
	}
}

func (n *Navigator) Reset() {
	n.index = 0
}

func (n *Navigator) Index() int {
	return n.index
}

// DownloadFileName - 다운로드 파일명 (1-based 인덱스)
func DownloadFileName(index int) string {
	return fmt.Sprintf("carousel-image-%d.png", index+1)
}

// BuildDownloadManifest - 전체 다운로드 매니페스트
// 이미지 없는 카드는 조용히 건너뜀 (canPreview가 지켜졌다면 발생하지 않음)
func BuildDownloadManifest(sessionID string, cards []Card) []DownloadEntry {
	entries := make([]DownloadEntry, 0, len(cards))
	for i, card := range cards {
		if card.Image == "" {
			continue
		}
		entries = append(entries, DownloadEntry{
			CardID:   card.ID,
			Index:    i,
			FileName: DownloadFileName(i),
			URL:      fmt.Sprintf("/api/sessions/%s/cards/%d/download", sessionID, i),
		})
	}
	return entries
}
