package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"classboard/internal/app"
	"classboard/internal/auth"
	"classboard/internal/domain"
	"classboard/internal/infra/memory"
	transport "classboard/internal/transport/http"
)

type testAPI struct {
	server *transport.Server
	t      *testing.T
}

func newTestAPI(t *testing.T) *testAPI {
	store := memory.NewStore()
	hub := app.NewMonitorHub()
	keys := memory.NewAnswerKeyCache(memory.NewStoreAnswerKeyLoader(store), time.Minute)
	enrollments := app.NewEnrollmentService(store)
	scoring := app.NewScoringService(store, keys, enrollments, hub)
	sessions := app.NewSessionService(store, scoring, enrollments, hub, 30*time.Minute)

	server := transport.NewServer(transport.Services{
		Auth:         auth.NewServiceWithClock(store, "test-secret", time.Hour, time.Now),
		Catalog:      app.NewCatalogService(store),
		Enrollments:  enrollments,
		Sessions:     sessions,
		Scoring:      scoring,
		Leaderboards: app.NewLeaderboardService(store),
		Dashboards:   app.NewDashboardService(store),
	})
	return &testAPI{server: server, t: t}
}

// do issues a JSON request against the in-process server and decodes the
// response body into out when out is non-nil.
func (a *testAPI) do(method, path, token string, body, out interface{}) int {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %s %s response: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func (a *testAPI) signUp(email, name, role string) (string, string) {
	a.t.Helper()
	var resp struct {
		Token   string         `json:"token"`
		Profile domain.Profile `json:"profile"`
	}
	code := a.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": email, "password": "hunter2hunter2", "name": name, "role": role,
	}, &resp)
	if code != http.StatusCreated {
		a.t.Fatalf("signup %s: status %d", email, code)
	}
	return resp.Token, resp.Profile.ID
}

// seedClassroom signs up a teacher and student, creates a subject with one
// quiz, and approves the student on both. Returns tokens and IDs.
type classroom struct {
	teacherToken, teacherID string
	studentToken, studentID string
	subjectID, quizID       string
}

func (a *testAPI) seedClassroom() classroom {
	a.t.Helper()
	var c classroom
	c.teacherToken, c.teacherID = a.signUp("reed@school.test", "Ms. Reed", "teacher")
	c.studentToken, c.studentID = a.signUp("alice@school.test", "Alice", "student")

	var subject domain.Subject
	if code := a.do(http.MethodPost, "/v1/subjects", c.teacherToken, map[string]string{
		"name": "Algebra",
	}, &subject); code != http.StatusCreated {
		a.t.Fatalf("create subject: status %d", code)
	}
	c.subjectID = subject.ID

	var quiz domain.Quiz
	if code := a.do(http.MethodPost, "/v1/subjects/"+c.subjectID+"/quizzes", c.teacherToken, map[string]interface{}{
		"title": "Linear equations",
		"questions": []map[string]interface{}{
			{"text": "2x = 4, x?", "options": []string{"1", "2", "3"}, "correctOption": 1, "points": 10},
			{"text": "x + 1 = 1, x?", "options": []string{"0", "1"}, "correctOption": 0, "points": 5},
		},
	}, &quiz); code != http.StatusCreated {
		a.t.Fatalf("create quiz: status %d", code)
	}
	c.quizID = quiz.ID

	for _, kind := range []string{"subject", "quiz"} {
		target := c.subjectID
		if kind == "quiz" {
			target = c.quizID
		}
		var enrollment domain.Enrollment
		if code := a.do(http.MethodPost, "/v1/enrollments", c.studentToken, map[string]string{
			"kind": kind, "targetId": target,
		}, &enrollment); code != http.StatusCreated {
			a.t.Fatalf("request %s enrollment: status %d", kind, code)
		}
		if code := a.do(http.MethodPost, "/v1/enrollments/"+enrollment.ID+"/decision", c.teacherToken, map[string]bool{
			"approve": true,
		}, nil); code != http.StatusOK {
			a.t.Fatalf("approve %s enrollment: status %d", kind, code)
		}
	}
	return c
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)
	if code := a.do(http.MethodGet, "/v1/subjects", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	if code := a.do(http.MethodGet, "/v1/subjects", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", code)
	}
}

func TestRoleEnforcement(t *testing.T) {
	a := newTestAPI(t)
	studentToken, _ := a.signUp("alice@school.test", "Alice", "student")

	if code := a.do(http.MethodPost, "/v1/subjects", studentToken, map[string]string{"name": "X"}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for student creating subject, got %d", code)
	}
	if code := a.do(http.MethodGet, "/v1/enrollments/pending", studentToken, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for student pending list, got %d", code)
	}
}

func TestSignUpValidation(t *testing.T) {
	a := newTestAPI(t)
	code := a.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "short", "name": "", "role": "student",
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload, got %d", code)
	}
}

func TestQuizFlowEndToEnd(t *testing.T) {
	a := newTestAPI(t)
	c := a.seedClassroom()

	var session domain.Session
	if code := a.do(http.MethodPost, "/v1/quizzes/"+c.quizID+"/session", c.teacherToken, nil, &session); code != http.StatusCreated {
		t.Fatalf("start session: status %d", code)
	}
	if code := a.do(http.MethodPost, "/v1/quizzes/"+c.quizID+"/session", c.teacherToken, nil, nil); code != http.StatusConflict {
		t.Fatalf("expected conflict on double start, got %d", code)
	}

	if code := a.do(http.MethodPost, "/v1/quizzes/"+c.quizID+"/participation", c.studentToken, nil, nil); code != http.StatusOK {
		t.Fatalf("begin participation: status %d", code)
	}
	if code := a.do(http.MethodPut, "/v1/quizzes/"+c.quizID+"/participation", c.studentToken, map[string]interface{}{
		"draft": map[string]int{},
	}, nil); code != http.StatusNoContent {
		t.Fatalf("heartbeat: status %d", code)
	}

	var snapshot domain.MonitorSnapshot
	if code := a.do(http.MethodGet, "/v1/quizzes/"+c.quizID+"/monitor", c.teacherToken, nil, &snapshot); code != http.StatusOK {
		t.Fatalf("monitor: status %d", code)
	}
	if snapshot.InProgress != 1 {
		t.Fatalf("expected 1 in progress, got %+v", snapshot)
	}

	// Fetch the questions to answer them; the key question here is the
	// student payload carrying no correct indices.
	req := httptest.NewRequest(http.MethodGet, "/v1/quizzes/"+c.quizID+"/questions", nil)
	req.Header.Set("Authorization", "Bearer "+c.studentToken)
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("questions: status %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correctOption") {
		t.Fatalf("student question payload leaks answers: %s", rec.Body.String())
	}
	var questions []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &questions); err != nil {
		t.Fatalf("decode questions: %v", err)
	}

	var submission domain.Submission
	if code := a.do(http.MethodPost, "/v1/quizzes/"+c.quizID+"/submission", c.studentToken, map[string]interface{}{
		"answers": map[string]int{questions[0].ID: 1, questions[1].ID: 0},
	}, &submission); code != http.StatusCreated {
		t.Fatalf("submit: status %d", code)
	}
	if submission.Score != 15 {
		t.Fatalf("expected score 15, got %d", submission.Score)
	}
	if code := a.do(http.MethodPost, "/v1/quizzes/"+c.quizID+"/submission", c.studentToken, map[string]interface{}{
		"answers": map[string]int{},
	}, nil); code != http.StatusConflict {
		t.Fatalf("expected conflict on second submit, got %d", code)
	}

	var entries []domain.QuizLeaderboardEntry
	if code := a.do(http.MethodGet, "/v1/quizzes/"+c.quizID+"/leaderboard", c.studentToken, nil, &entries); code != http.StatusOK {
		t.Fatalf("leaderboard: status %d", code)
	}
	if len(entries) != 1 || entries[0].Name != "Alice" || entries[0].Score != 15 {
		t.Fatalf("unexpected leaderboard: %+v", entries)
	}

	var stats domain.StudentStats
	if code := a.do(http.MethodGet, "/v1/dashboard", c.studentToken, nil, &stats); code != http.StatusOK {
		t.Fatalf("dashboard: status %d", code)
	}
	if stats.TotalPoints != 15 {
		t.Fatalf("expected 15 points on dashboard, got %+v", stats)
	}

	if code := a.do(http.MethodDelete, "/v1/sessions/"+session.ID, c.teacherToken, nil, &session); code != http.StatusOK {
		t.Fatalf("stop session: status %d", code)
	}
	if session.Status != domain.SessionEnded {
		t.Fatalf("expected ended session, got %+v", session)
	}
}

func TestSubmitWithoutSessionConflicts(t *testing.T) {
	a := newTestAPI(t)
	c := a.seedClassroom()

	code := a.do(http.MethodPost, "/v1/quizzes/"+c.quizID+"/submission", c.studentToken, map[string]interface{}{
		"answers": map[string]int{},
	}, nil)
	if code != http.StatusConflict {
		t.Fatalf("expected conflict without active session, got %d", code)
	}
}

func TestMonitorWebsocketStreamsSnapshots(t *testing.T) {
	a := newTestAPI(t)
	c := a.seedClassroom()

	if code := a.do(http.MethodPost, "/v1/quizzes/"+c.quizID+"/session", c.teacherToken, nil, nil); code != http.StatusCreated {
		t.Fatalf("start session: status %d", code)
	}

	httpServer := httptest.NewServer(a.server)
	defer httpServer.Close()

	url := fmt.Sprintf("ws%s/v1/quizzes/%s/monitor/ws?access_token=%s",
		httpServer.URL[len("http"):], c.quizID, c.teacherToken)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var snapshot domain.MonitorSnapshot
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if snapshot.NotStarted != 1 {
		t.Fatalf("expected 1 not started, got %+v", snapshot)
	}

	if code := a.do(http.MethodPost, "/v1/quizzes/"+c.quizID+"/participation", c.studentToken, nil, nil); code != http.StatusOK {
		t.Fatalf("begin participation: status %d", code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read updated snapshot: %v", err)
	}
	if snapshot.InProgress != 1 || snapshot.NotStarted != 0 {
		t.Fatalf("expected participation reflected, got %+v", snapshot)
	}
}
