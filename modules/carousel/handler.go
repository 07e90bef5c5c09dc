package carousel

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"carousel-studio-server/modules/common/utils"
)

// 업로드 제한 (UI 안내 문구는 10MB, 파싱 버퍼는 여유 있게)
const maxUploadMemory = 32 << 20

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes wires carousel endpoints.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.handleUpload).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}", h.handleGetSession).Methods("GET")
	r.HandleFunc("/api/sessions/{sessionId}/reset", h.handleStartOver).Methods("POST")

	r.HandleFunc("/api/sessions/{sessionId}/cards", h.handleAddCard).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/cards/{cardId}/text", h.handleUpdateText).Methods("PUT")
	r.HandleFunc("/api/sessions/{sessionId}/cards/{cardId}", h.handleRemoveCard).Methods("DELETE")
	r.HandleFunc("/api/sessions/{sessionId}/cards/{cardId}/generate", h.handleGenerate).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/cards/{cardId}/edit", h.handleEdit).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/cards/{cardId}/image", h.handleCommitImage).Methods("PUT")

	r.HandleFunc("/api/sessions/{sessionId}/preview", h.handleEnterPreview).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/editor", h.handleBackToEditor).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/preview/next", h.handleNextSlide).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/preview/previous", h.handlePreviousSlide).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/preview/index", h.handleSelectSlide).Methods("PUT")

	r.HandleFunc("/api/sessions/{sessionId}/downloads", h.handleDownloadManifest).Methods("GET")
	r.HandleFunc("/api/sessions/{sessionId}/cards/{index}/download", h.handleDownload).Methods("GET")
}

// handleUpload - POST /api/sessions
// 기준 이미지 업로드 → 세션 생성 + Editing 진입 + 스타일 분석 시작
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Missing image file")
		return
	}
	defer file.Close()

	// 코덱 호출 전에 MIME 타입 검사 - 이미지가 아니면 디코드 시도조차 하지 않음
	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		writeError(w, http.StatusBadRequest, "invalid_file_type", "Please upload a valid image file (PNG, JPG, etc.).")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "read_error", "Could not read the image file.")
		return
	}

	imageURI := utils.EncodeDataURI(mimeType, data)
	session := h.manager.CreateSession(imageURI)

	log.Printf("📤 Uploaded base image for session %s (%s, %d bytes)", session.ID, mimeType, len(data))
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

// handleGetSession - GET /api/sessions/{sessionId}
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// handleStartOver - POST /api/sessions/{sessionId}/reset
func (h *Handler) handleStartOver(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.StartOver()
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// handleAddCard - POST /api/sessions/{sessionId}/cards
func (h *Handler) handleAddCard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	card := session.AddCard()
	writeJSON(w, http.StatusCreated, card)
}

// handleUpdateText - PUT /api/sessions/{sessionId}/cards/{cardId}/text
func (h *Handler) handleUpdateText(w http.ResponseWriter, r *http.Request) {
	session, cardID, ok := h.sessionCard(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request format")
		return
	}

	if !session.UpdateText(cardID, req.Text) {
		writeError(w, http.StatusNotFound, "card_not_found", "Card not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveCard - DELETE /api/sessions/{sessionId}/cards/{cardId}
// 마지막 남은 카드는 삭제 불가
func (h *Handler) handleRemoveCard(w http.ResponseWriter, r *http.Request) {
	session, cardID, ok := h.sessionCard(w, r)
	if !ok {
		return
	}

	if _, exists := session.CardByID(cardID); !exists {
		writeError(w, http.StatusNotFound, "card_not_found", "Card not found")
		return
	}
	if !session.RemoveCard(cardID) {
		writeError(w, http.StatusConflict, "last_card", "The last remaining card cannot be removed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerate - POST /api/sessions/{sessionId}/cards/{cardId}/generate
// 비동기 시작만 확인 - 결과는 WebSocket 이벤트로 전달됨
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	session, cardID, ok := h.sessionCard(w, r)
	if !ok {
		return
	}

	if !session.GenerateCard(cardID) {
		// 전제조건 미충족 (스타일 미준비, 빈 텍스트, 이미 생성 중) - 에러 아님
		writeJSON(w, http.StatusOK, map[string]bool{"started": false})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

// handleEdit - POST /api/sessions/{sessionId}/cards/{cardId}/edit
// 편집 모달의 작업 사본 편집 - 카드 상태는 변경하지 않음
func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	session, cardID, ok := h.sessionCard(w, r)
	if !ok {
		return
	}

	var req struct {
		Instruction string `json:"instruction"`
		Image       string `json:"image,omitempty"` // 연쇄 편집용 작업 사본, 없으면 카드 이미지
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request format")
		return
	}

	edited, err := session.EditImage(r.Context(), cardID, req.Image, req.Instruction)
	if err != nil {
		switch {
		case errors.Is(err, ErrCardNotFound):
			writeError(w, http.StatusNotFound, "card_not_found", "Card not found")
		case errors.Is(err, ErrNoInstruction), errors.Is(err, ErrNoImageToEdit):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			log.Printf("❌ Edit failed for session %s card %d: %v", session.ID, cardID, err)
			writeError(w, http.StatusBadGateway, "edit_failed", "Failed to edit image. Please try again.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"image": edited})
}

// handleCommitImage - PUT /api/sessions/{sessionId}/cards/{cardId}/image
// 편집 결과 저장 (updateImage)
func (h *Handler) handleCommitImage(w http.ResponseWriter, r *http.Request) {
	session, cardID, ok := h.sessionCard(w, r)
	if !ok {
		return
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request format")
		return
	}

	if !session.CommitImage(cardID, req.Image) {
		writeError(w, http.StatusNotFound, "card_not_found", "Card not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEnterPreview - POST /api/sessions/{sessionId}/preview
func (h *Handler) handleEnterPreview(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.EnterPreview(); err != nil {
		writeError(w, http.StatusConflict, "not_resolved", "Generate an image for every card to enable preview.")
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// handleBackToEditor - POST /api/sessions/{sessionId}/editor
func (h *Handler) handleBackToEditor(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.BackToEditor()
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleNextSlide(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"index": session.NextSlide()})
}

func (h *Handler) handlePreviousSlide(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"index": session.PreviousSlide()})
}

// handleSelectSlide - PUT /api/sessions/{sessionId}/preview/index
func (h *Handler) handleSelectSlide(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request format")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"index": session.SelectSlide(req.Index)})
}

// handleDownloadManifest - GET /api/sessions/{sessionId}/downloads
// 이미지 있는 카드마다 저장 항목 하나씩
func (h *Handler) handleDownloadManifest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, BuildDownloadManifest(session.ID, session.Cards()))
}

// handleDownload - GET /api/sessions/{sessionId}/cards/{index}/download
// carousel-image-<n>.png 첨부파일로 응답 (PNG로 정규화)
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid card index")
		return
	}

	cards := session.Cards()
	if index < 0 || index >= len(cards) {
		writeError(w, http.StatusNotFound, "card_not_found", "Card not found")
		return
	}
	if cards[index].Image == "" {
		writeError(w, http.StatusNotFound, "no_image", "Card has no generated image")
		return
	}

	_, data, err := utils.ParseDataURI(cards[index].Image, "image/png")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "decode_error", "Failed to decode card image")
		return
	}

	pngData, err := utils.NormalizePNG(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "decode_error", "Failed to convert card image")
		return
	}

	fileName := DownloadFileName(index)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	w.Write(pngData)
}

// session - 경로의 sessionId로 세션 조회 (없으면 404 응답까지 처리)
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sessionID := mux.Vars(r)["sessionId"]
	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		writeError(w, http.StatusNotFound, "session_not_found", "Session not found")
		return nil, false
	}
	return session, true
}

// sessionCard - 세션 + cardId 파싱
func (h *Handler) sessionCard(w http.ResponseWriter, r *http.Request) (*Session, int64, bool) {
	session, ok := h.session(w, r)
	if !ok {
		return nil, 0, false
	}
	cardID, err := strconv.ParseInt(mux.Vars(r)["cardId"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid card id")
		return nil, 0, false
	}
	return session, cardID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
