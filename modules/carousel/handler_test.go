package carousel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"carousel-studio-server/modules/common/utils"
)

func newTestServer(t *testing.T, gen Generator) (*httptest.Server, *Manager) {
	t.Helper()
	manager := NewManager(gen, nil)
	r := mux.NewRouter()
	NewHandler(manager).RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, manager
}

// uploadRequest - Content-Type을 지정한 multipart 업로드 요청 생성
func uploadRequest(t *testing.T, url string, mimeType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="base.png"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write(data)
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, url+"/api/sessions", &body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func decodeState(t *testing.T, resp *http.Response) SessionState {
	t.Helper()
	defer resp.Body.Close()
	var state SessionState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode session state: %v", err)
	}
	return state
}

func TestUploadRejectsNonImageFile(t *testing.T) {
	server, _ := newTestServer(t, &fakeGenerator{})

	resp, err := http.DefaultClient.Do(uploadRequest(t, server.URL, "application/pdf", []byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "invalid_file_type" {
		t.Errorf("error = %q, want invalid_file_type", body["error"])
	}
}

func TestUploadCreatesSessionWithSeededCard(t *testing.T) {
	server, manager := newTestServer(t, &fakeGenerator{})

	resp, err := http.DefaultClient.Do(uploadRequest(t, server.URL, "image/png", tinyPNG(t)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	state := decodeState(t, resp)
	if state.Phase != PhaseEditing {
		t.Errorf("phase = %q, want editing", state.Phase)
	}
	if len(state.Cards) != 1 {
		t.Errorf("cards = %d, want 1", len(state.Cards))
	}
	if !strings.HasPrefix(state.BaseImage, "data:image/png;base64,") {
		t.Errorf("base image = %q, want data URI", state.BaseImage)
	}
	if _, ok := manager.GetSession(state.SessionID); !ok {
		t.Error("session not registered")
	}
}

func TestRemoveSoleCardReturnsConflict(t *testing.T) {
	server, _ := newTestServer(t, &fakeGenerator{})

	resp, _ := http.DefaultClient.Do(uploadRequest(t, server.URL, "image/png", tinyPNG(t)))
	state := decodeState(t, resp)

	url := fmt.Sprintf("%s/api/sessions/%s/cards/%d", server.URL, state.SessionID, state.Cards[0].ID)
	req, _ := http.NewRequest(http.MethodDelete, url, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer del.Body.Close()

	if del.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", del.StatusCode)
	}
}

func TestEnterPreviewGatedUntilResolved(t *testing.T) {
	server, manager := newTestServer(t, &fakeGenerator{})

	resp, _ := http.DefaultClient.Do(uploadRequest(t, server.URL, "image/png", tinyPNG(t)))
	state := decodeState(t, resp)

	previewURL := fmt.Sprintf("%s/api/sessions/%s/preview", server.URL, state.SessionID)
	blocked, err := http.Post(previewURL, "application/json", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	blocked.Body.Close()
	if blocked.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 before cards resolve", blocked.StatusCode)
	}

	session, _ := manager.GetSession(state.SessionID)
	session.CommitImage(state.Cards[0].ID, utils.EncodeDataURI("image/png", tinyPNG(t)))

	allowed, err := http.Post(previewURL, "application/json", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if allowed.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 after cards resolve", allowed.StatusCode)
	}
	if got := decodeState(t, allowed); got.Phase != PhasePreview {
		t.Errorf("phase = %q, want preview", got.Phase)
	}
}

func TestDownloadServesNamedPNG(t *testing.T) {
	server, manager := newTestServer(t, &fakeGenerator{})

	resp, _ := http.DefaultClient.Do(uploadRequest(t, server.URL, "image/png", tinyPNG(t)))
	state := decodeState(t, resp)

	session, _ := manager.GetSession(state.SessionID)
	session.CommitImage(state.Cards[0].ID, utils.EncodeDataURI("image/png", tinyPNG(t)))

	dl, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/cards/0/download", server.URL, state.SessionID))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer dl.Body.Close()

	if dl.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", dl.StatusCode)
	}
	if ct := dl.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if cd := dl.Header.Get("Content-Disposition"); !strings.Contains(cd, "carousel-image-1.png") {
		t.Errorf("content disposition = %q, want carousel-image-1.png", cd)
	}
}

func TestUnknownSessionReturnsNotFound(t *testing.T) {
	server, _ := newTestServer(t, &fakeGenerator{})

	resp, err := http.Get(server.URL + "/api/sessions/nope")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
