package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/juliusdelta/oatmeal/internal/api"
	"github.com/juliusdelta/oatmeal/internal/db"
	"github.com/juliusdelta/oatmeal/internal/handlers"
)

func newTestEcho(t *testing.T) (*Data, http.Handler) {
	t.Helper()
	th, err := handlers.NewListHandler()
	if err != nil {
		t.Fatalf("could not create handler chain: %v", err)
	}
	th.Add(handlers.NewCleaner())
	data := &Data{Store: db.NewMemorySessionStore(), TextHandler: th, Ctx: context.Background()}
	return data, initRoutes(data)
}

func doReq(t *testing.T, e http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	e.ServeHTTP(resp, req)
	return resp
}

func createTestSession(t *testing.T, e http.Handler, body string) string {
	t.Helper()
	resp := doReq(t, e, http.MethodPost, "/sessions", body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("POST /sessions = %d, want 201", resp.Code)
	}
	var res api.CreateSessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &res); err != nil {
		t.Fatalf("can't decode response: %v", err)
	}
	if res.ID == "" {
		t.Fatal("no session id")
	}
	return res.ID
}

func TestLive(t *testing.T) {
	_, e := newTestEcho(t)
	resp := doReq(t, e, http.MethodGet, "/live", "")
	if resp.Code != http.StatusOK {
		t.Errorf("GET /live = %d, want 200", resp.Code)
	}
}

func TestTranscriptFlow(t *testing.T) {
	_, e := newTestEcho(t)
	id := createTestSession(t, e, `{"timestamp":"2025-11-03_10-30-00","duration_seconds":15.2}`)

	resp := doReq(t, e, http.MethodPost, "/sessions/"+id+"/segments/mic",
		`[{"timestamp":[0.0,2.5],"text":"  hello there "},{"timestamp":[5.0,7.2],"text":"a question"}]`)
	if resp.Code != http.StatusOK {
		t.Fatalf("POST mic segments = %d, want 200: %s", resp.Code, resp.Body)
	}
	resp = doReq(t, e, http.MethodPost, "/sessions/"+id+"/segments/monitor",
		`[{"timestamp":[2.8,4.9],"text":"a response"}]`)
	if resp.Code != http.StatusOK {
		t.Fatalf("POST monitor segments = %d, want 200: %s", resp.Code, resp.Body)
	}

	resp = doReq(t, e, http.MethodGet, "/sessions/"+id+"/transcript", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET transcript = %d, want 200: %s", resp.Code, resp.Body)
	}
	var legacy []api.Segment
	if err := json.Unmarshal(resp.Body.Bytes(), &legacy); err != nil {
		t.Fatalf("can't decode transcript: %v", err)
	}
	if len(legacy) != 3 {
		t.Fatalf("len(transcript) = %d, want 3", len(legacy))
	}
	// cleaner ran on ingest
	if legacy[0].Text != "hello there" {
		t.Errorf("transcript[0].text = %q, want %q", legacy[0].Text, "hello there")
	}
	if legacy[1].Text != "a response" {
		t.Errorf("transcript[1].text = %q, want %q", legacy[1].Text, "a response")
	}

	resp = doReq(t, e, http.MethodGet, "/sessions/"+id+"/transcript/enhanced", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET enhanced = %d, want 200: %s", resp.Code, resp.Body)
	}
	var enhanced api.EnhancedResult
	if err := json.Unmarshal(resp.Body.Bytes(), &enhanced); err != nil {
		t.Fatalf("can't decode enhanced: %v", err)
	}
	if enhanced.SessionMetadata.Timestamp != "2025-11-03_10-30-00" {
		t.Errorf("timestamp = %s", enhanced.SessionMetadata.Timestamp)
	}
	if enhanced.SessionMetadata.DurationSeconds != 15.2 {
		t.Errorf("duration_seconds = %v, want 15.2", enhanced.SessionMetadata.DurationSeconds)
	}
	if enhanced.SessionMetadata.TotalSegments != 3 {
		t.Errorf("total_segments = %d, want 3", enhanced.SessionMetadata.TotalSegments)
	}
	if len(enhanced.Conversation) != len(legacy) {
		t.Fatalf("len(conversation) = %d, want %d", len(enhanced.Conversation), len(legacy))
	}
	for i, entry := range enhanced.Conversation {
		if entry.StartTime != legacy[i].Timestamp[0] || entry.Text != legacy[i].Text {
			t.Errorf("conversation[%d] = %+v diverges from legacy %+v", i, entry, legacy[i])
		}
	}
}

func TestSaveSegments_unknownChannel(t *testing.T) {
	_, e := newTestEcho(t)
	id := createTestSession(t, e, `{}`)
	resp := doReq(t, e, http.MethodPost, "/sessions/"+id+"/segments/line-in", `[]`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("POST segments = %d, want 400", resp.Code)
	}
}

func TestSaveSegments_missingSession(t *testing.T) {
	_, e := newTestEcho(t)
	resp := doReq(t, e, http.MethodPost, "/sessions/nosuch/segments/mic", `[]`)
	if resp.Code != http.StatusNotFound {
		t.Errorf("POST segments = %d, want 404", resp.Code)
	}
}

func TestGetTranscript_invalidSegment(t *testing.T) {
	_, e := newTestEcho(t)
	id := createTestSession(t, e, `{}`)
	resp := doReq(t, e, http.MethodPost, "/sessions/"+id+"/segments/mic",
		`[{"timestamp":[5.0,3.0],"text":"x"}]`)
	if resp.Code != http.StatusOK {
		t.Fatalf("POST segments = %d, want 200", resp.Code)
	}
	for _, target := range []string{"/transcript", "/transcript/enhanced"} {
		resp = doReq(t, e, http.MethodGet, "/sessions/"+id+target, "")
		if resp.Code != http.StatusUnprocessableEntity {
			t.Errorf("GET %s = %d, want 422", target, resp.Code)
		}
	}
}

func TestGetTranscript_empty(t *testing.T) {
	_, e := newTestEcho(t)
	id := createTestSession(t, e, `{}`)
	resp := doReq(t, e, http.MethodGet, "/sessions/"+id+"/transcript", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET transcript = %d, want 200: %s", resp.Code, resp.Body)
	}
	var legacy []api.Segment
	if err := json.Unmarshal(resp.Body.Bytes(), &legacy); err != nil {
		t.Fatalf("can't decode transcript: %v", err)
	}
	if len(legacy) != 0 {
		t.Errorf("transcript = %v, want empty", legacy)
	}
}
