package carousel

import "testing"

func TestNavigatorWrapsCircularly(t *testing.T) {
	var nav Navigator

	// N=3, index 0에서 previous → N-1
	if got := nav.Previous(3); got != 2 {
		t.Errorf("Previous from 0 = %d, want 2", got)
	}
	// 마지막에서 next → 0
	if got := nav.Next(3); got != 0 {
		t.Errorf("Next from last = %d, want 0", got)
	}
	if got := nav.Next(3); got != 1 {
		t.Errorf("Next = %d, want 1", got)
	}
}

func TestNavigatorSelect(t *testing.T) {
	var nav Navigator

	if got := nav.Select(2, 3); got != 2 {
		t.Errorf("Select(2) = %d, want 2", got)
	}
	// 범위 밖은 무시
	if got := nav.Select(5, 3); got != 2 {
		t.Errorf("Select out of range = %d, want unchanged 2", got)
	}
	if got := nav.Select(-1, 3); got != 2 {
		t.Errorf("Select negative = %d, want unchanged 2", got)
	}
}

func TestNavigatorClampAfterRemoval(t *testing.T) {
	var nav Navigator
	nav.Select(2, 3)

	nav.Clamp(2)
	if nav.Index() != 1 {
		t.Errorf("index = %d, want 1", nav.Index())
	}
	nav.Clamp(0)
	if nav.Index() != 0 {
		t.Errorf("index = %d, want 0", nav.Index())
	}
}

func TestNavigatorEmptyCollection(t *testing.T) {
	var nav Navigator

	if got := nav.Next(0); got != 0 {
		t.Errorf("Next on empty = %d, want 0", got)
	}
	if got := nav.Previous(0); got != 0 {
		t.Errorf("Previous on empty = %d, want 0", got)
	}
}

func TestDownloadFileNameIsOneBased(t *testing.T) {
	if got := DownloadFileName(0); got != "carousel-image-1.png" {
		t.Errorf("name = %q", got)
	}
	if got := DownloadFileName(4); got != "carousel-image-5.png" {
		t.Errorf("name = %q", got)
	}
}

func TestDownloadManifestSkipsImagelessCards(t *testing.T) {
	cards := []Card{
		{ID: 1, Image: "data:image/png;base64,YQ=="},
		{ID: 2}, // 이미지 없음 - 조용히 건너뜀
		{ID: 3, Image: "data:image/png;base64,Yw=="},
	}

	entries := BuildDownloadManifest("s1", cards)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].FileName != "carousel-image-1.png" || entries[0].Index != 0 {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	// 파일명은 컬렉션 내 위치 기준 (건너뛴 카드 자리 유지)
	if entries[1].FileName != "carousel-image-3.png" || entries[1].Index != 2 {
		t.Errorf("entry 1 = %+v", entries[1])
	}
	if entries[1].URL != "/api/sessions/s1/cards/2/download" {
		t.Errorf("url = %q", entries[1].URL)
	}
}
