package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"carousel-studio-server/modules/carousel"
	"carousel-studio-server/modules/common/config"
	"carousel-studio-server/modules/gemini"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		// 프로덕션에서는 특정 도메인만 허용하도록 수정
		return true
	},
}

// 연결된 클라이언트 정보
type Client struct {
	conn      *websocket.Conn
	sessionId string
	userId    string
	send      chan []byte
}

// 세션별 구독자 묶음
type room struct {
	clients      map[string]*Client
	mutex        sync.RWMutex
	lastActivity time.Time
}

// Hub - 캐러셀 상태 이벤트를 세션 구독자에게 브로드캐스트
type Hub struct {
	rooms map[string]*room
	mutex sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		rooms: make(map[string]*room),
	}
}

// getOrCreateRoom - 세션 구독방 가져오기 또는 생성
func (h *Hub) getOrCreateRoom(sessionId string) *room {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	rm, exists := h.rooms[sessionId]
	if !exists {
		rm = &room{
			clients:      make(map[string]*Client),
			lastActivity: time.Now(),
		}
		h.rooms[sessionId] = rm
	}
	rm.lastActivity = time.Now()
	return rm
}

// addClient - 클라이언트를 구독방에 추가
func (rm *room) addClient(client *Client) {
	rm.mutex.Lock()
	rm.clients[client.userId] = client
	rm.lastActivity = time.Now()
	clientCount := len(rm.clients)
	rm.mutex.Unlock()

	log.Printf("👤 Client %s subscribed to session %s (Clients: %d)", client.userId, client.sessionId, clientCount)
}

// removeClient - 클라이언트를 구독방에서 제거
func (rm *room) removeClient(userId string, sessionId string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if client, exists := rm.clients[userId]; exists {
		close(client.send)
		delete(rm.clients, userId)
		rm.lastActivity = time.Now()
		log.Printf("👋 Client %s left session %s (Remaining: %d)", userId, sessionId, len(rm.clients))
	}
}

// Notify - carousel.Notifier 구현
// 상태 변경 이벤트를 해당 세션의 모든 구독자에게 전달
func (h *Hub) Notify(ev carousel.Event) {
	h.mutex.RLock()
	rm, exists := h.rooms[ev.SessionID]
	h.mutex.RUnlock()
	if !exists {
		return
	}

	messageBytes, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}

	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	for userId, client := range rm.clients {
		select {
		case client.send <- messageBytes:
		default:
			// 느린 클라이언트는 끊음
			close(client.send)
			delete(rm.clients, userId)
			log.Printf("⚠️  Dropped slow client %s from session %s", userId, ev.SessionID)
		}
	}
}

// cleanupEmptyRooms - 빈 구독방 정리
func (h *Hub) cleanupEmptyRooms() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cleaned := 0
	for sessionId, rm := range h.rooms {
		rm.mutex.RLock()
		isEmpty := len(rm.clients) == 0
		rm.mutex.RUnlock()

		if isEmpty {
			delete(h.rooms, sessionId)
			cleaned++
		}
	}

	if cleaned > 0 {
		log.Printf("🧹 Cleaned up %d empty rooms (Active: %d)", cleaned, len(h.rooms))
	}
}

// startCleanupRoutine - 5분마다 빈 구독방 정리
func (h *Hub) startCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			h.cleanupEmptyRooms()
		}
	}()
}

// handleWebSocket - GET /ws?session=...&user=...
func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sessionId := r.URL.Query().Get("session")
	userId := r.URL.Query().Get("user")

	if sessionId == "" || userId == "" {
		log.Printf("Missing session or user parameter")
		conn.Close()
		return
	}

	client := &Client{
		conn:      conn,
		sessionId: sessionId,
		userId:    userId,
		send:      make(chan []byte, 256),
	}

	log.Printf("🔍 New WebSocket connection - Session: %s, User: %s", sessionId, userId)

	rm := h.getOrCreateRoom(sessionId)
	rm.addClient(client)

	// 고루틴으로 읽기/쓰기 처리
	go client.writePump()
	go client.readPump(rm)
}

// readPump - 연결 해제 감지용
// 모든 변경은 REST로 들어오므로 수신 메시지는 무시
func (c *Client) readPump(rm *room) {
	defer func() {
		rm.removeClient(c.userId, c.sessionId)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump - 클라이언트로 이벤트 쓰기
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "carousel-studio",
	})
}

func main() {
	// 환경변수 로드 - API 키 없으면 기동 실패
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Gemini 서비스 초기화
	genService, err := gemini.NewService(context.Background(), cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini service: %v", err)
	}

	// 이벤트 허브 + 세션 매니저
	hub := newHub()
	hub.startCleanupRoutine()

	manager := carousel.NewManager(genService, hub.Notify)
	manager.StartCleanupRoutine()

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", hub.handleWebSocket)

	carousel.NewHandler(manager).RegisterRoutes(r)

	log.Printf("🚀 Carousel Studio Server starting on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	// 서버 시작
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
