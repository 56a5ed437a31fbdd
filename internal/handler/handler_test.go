package handler

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studymaster/internal/i18n"
	"github.com/pavelanni/studymaster/internal/model"
	"github.com/pavelanni/studymaster/internal/store"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func newTestHandler(t *testing.T) (*Handler, http.Handler, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir(), model.DefaultNoteLabels())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	h, err := New(st, model.ExamConfig{Count: 10, Limit: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	h.Routes(r)
	return h, r, st
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	_, r, st := newTestHandler(t)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, st
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func seedSubject(t *testing.T, st *store.Store, name string, qs ...model.Question) {
	t.Helper()
	if err := st.CreateSubject(name); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveBank(name, qs); err != nil {
		t.Fatal(err)
	}
}

func TestSubjectRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	expectStatus(t, do(t, srv, http.MethodPost, "/subjects", subjectRequest{Name: "math"}), http.StatusCreated)
	expectStatus(t, do(t, srv, http.MethodPost, "/subjects", subjectRequest{Name: "bio"}), http.StatusCreated)

	resp := do(t, srv, http.MethodGet, "/subjects", nil)
	expectStatus(t, resp, http.StatusOK)
	names := decode[[]string](t, resp)
	if len(names) != 2 || names[0] != "bio" || names[1] != "math" {
		t.Errorf("expected [bio math], got %v", names)
	}

	expectStatus(t, do(t, srv, http.MethodDelete, "/subjects/bio", nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodDelete, "/subjects/bio", nil), http.StatusNotFound)
}

func TestErrorMapping(t *testing.T) {
	srv, st := newTestServer(t)
	seedSubject(t, st, "math")
	seedSubject(t, st, "empty")
	if err := os.WriteFile(st.Root()+"/math/stats.json", []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"invalid name", http.MethodPost, "/subjects", subjectRequest{Name: "  "}, http.StatusBadRequest, "invalid_name"},
		{"duplicate", http.MethodPost, "/subjects", subjectRequest{Name: "math"}, http.StatusConflict, "duplicate_subject"},
		{"bad json", http.MethodPost, "/subjects", []byte("{"), http.StatusBadRequest, "bad_request"},
		{"missing subject", http.MethodGet, "/subjects/nope/questions", nil, http.StatusNotFound, "subject_not_found"},
		{"empty bank", http.MethodPost, "/subjects/empty/exams", startExamRequest{Count: 3}, http.StatusBadRequest, "empty_bank"},
		{"corrupt stats", http.MethodGet, "/subjects/math/stats", nil, http.StatusUnprocessableEntity, "corrupt_data"},
		{"bad limit", http.MethodGet, "/subjects/empty/stats?limit=x", nil, http.StatusBadRequest, "invalid_count"},
		{"missing note", http.MethodGet, "/subjects/empty/notes/20200101_000000", nil, http.StatusNotFound, "note_not_found"},
		{"missing session", http.MethodGet, "/exams/nope", nil, http.StatusNotFound, "session_not_found"},
		{"bad archive", http.MethodPost, "/import", []byte("not a zip"), http.StatusUnprocessableEntity, "corrupt_data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, tt.method, tt.path, tt.body)
			expectStatus(t, resp, tt.status)
			got := decode[errorResponse](t, resp)
			if got.Code != tt.code {
				t.Errorf("expected code %q, got %q (%s)", tt.code, got.Code, got.Error)
			}
		})
	}
}

func TestErrorStatusStorage(t *testing.T) {
	err := fmt.Errorf("save: %w", &model.StorageError{Op: "write", Path: "x", Err: errors.New("disk full")})
	status, code := errorStatus(err)
	if status != http.StatusInternalServerError || code != "storage" {
		t.Errorf("expected 500/storage, got %d/%s", status, code)
	}
}

func TestQuestionRoutes(t *testing.T) {
	srv, st := newTestServer(t)
	seedSubject(t, st, "math")

	resp := do(t, srv, http.MethodPost, "/subjects/math/questions", addQuestionRequest{Question: " 2+2 ", Answer: "4"})
	expectStatus(t, resp, http.StatusCreated)
	if q := decode[model.Question](t, resp); q.Text != "2+2" {
		t.Errorf("unexpected echo: %+v", q)
	}

	resp = do(t, srv, http.MethodPost, "/subjects/math/questions", addQuestionRequest{Question: "3+3", Answer: " "})
	expectStatus(t, resp, http.StatusOK)
	if msg := decode[messageResponse](t, resp); msg.Message != "Question and answer must both be non-empty." {
		t.Errorf("unexpected message %q", msg.Message)
	}

	upload := []byte(`[{"question":"3+3","answer":"6"},{"question":"5+5","answer":"10"},{"question":"","answer":"x"}]`)
	resp = do(t, srv, http.MethodPost, "/subjects/math/questions/upload", upload)
	expectStatus(t, resp, http.StatusOK)
	up := decode[uploadResponse](t, resp)
	if up.Imported != 2 || up.Message != "Imported 2 questions." {
		t.Errorf("unexpected upload response: %+v", up)
	}

	resp = do(t, srv, http.MethodDelete, "/subjects/math/questions", removeQuestionsRequest{Indices: []int{0, 0, 7}})
	expectStatus(t, resp, http.StatusOK)
	remaining := decode[[]model.Question](t, resp)
	if len(remaining) != 2 || remaining[0].Text != "3+3" {
		t.Errorf("unexpected remaining bank: %+v", remaining)
	}

	resp = do(t, srv, http.MethodGet, "/subjects/math/questions", nil)
	expectStatus(t, resp, http.StatusOK)
	if bank := decode[[]model.Question](t, resp); len(bank) != 2 {
		t.Errorf("expected 2 questions, got %d", len(bank))
	}
}

func TestUploadMultipart(t *testing.T) {
	srv, st := newTestServer(t)
	seedSubject(t, st, "math")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("questions_file", "bank.json")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(fw, `[{"question":"1+1","answer":"2"}]`)
	mw.Close()

	resp, err := srv.Client().Post(srv.URL+"/subjects/math/questions/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	if up := decode[uploadResponse](t, resp); up.Imported != 1 || up.Message != "Imported 1 question." {
		t.Errorf("unexpected upload response: %+v", up)
	}
}

func TestExamFlow(t *testing.T) {
	srv, st := newTestServer(t)
	seedSubject(t, st, "math", model.Question{Text: "2+2", Answer: "4"}, model.Question{Text: "3+3", Answer: "6"})

	resp := do(t, srv, http.MethodPost, "/subjects/math/exams", startExamRequest{Count: 5})
	expectStatus(t, resp, http.StatusCreated)
	view := decode[examView](t, resp)
	if view.Total != 2 || view.State != "in_progress" || view.Question == "" {
		t.Fatalf("unexpected start view: %+v", view)
	}
	if loc := resp.Header.Get("Location"); loc != "/exams/"+view.ID {
		t.Errorf("expected Location /exams/%s, got %q", view.ID, loc)
	}

	answers := map[string]string{"2+2": "4", "3+3": "7"}
	var last answerResponse
	for view.State == "in_progress" {
		resp = do(t, srv, http.MethodPost, "/exams/"+view.ID+"/answer", answerRequest{Answer: answers[view.Question]})
		expectStatus(t, resp, http.StatusOK)
		last = decode[answerResponse](t, resp)
		if last.Correct && last.Message != "Correct!" {
			t.Errorf("unexpected message %q", last.Message)
		}
		if !last.Correct && last.Message != "Wrong. Correct answer: 6" {
			t.Errorf("unexpected message %q", last.Message)
		}
		view = last.Exam
	}

	if view.Score != 1 || view.Result == nil || view.Result.Percent != 50.0 {
		t.Errorf("unexpected final view: %+v", view)
	}
	if len(view.Wrong) != 1 || view.Wrong[0].Question != "3+3" || view.NoteKey == "" {
		t.Errorf("expected one wrong record and a note, got %+v", view)
	}

	resp = do(t, srv, http.MethodPost, "/exams/"+view.ID+"/answer", answerRequest{Answer: "late"})
	expectStatus(t, resp, http.StatusConflict)
	resp = do(t, srv, http.MethodPost, "/exams/"+view.ID+"/stop", nil)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, srv, http.MethodGet, "/subjects/math/stats", nil)
	expectStatus(t, resp, http.StatusOK)
	if results := decode[[]model.SessionResult](t, resp); len(results) != 1 || results[0].Score != 1 {
		t.Errorf("unexpected stats: %+v", results)
	}

	resp = do(t, srv, http.MethodGet, "/subjects/math/notes", nil)
	expectStatus(t, resp, http.StatusOK)
	keys := decode[[]string](t, resp)
	if len(keys) != 1 || keys[0] != view.NoteKey {
		t.Fatalf("expected note %q, got %v", view.NoteKey, keys)
	}
	resp = do(t, srv, http.MethodGet, "/subjects/math/notes/"+keys[0], nil)
	expectStatus(t, resp, http.StatusOK)
	note := decode[noteResponse](t, resp)
	want := model.WrongRecord{Question: "3+3", UserAnswer: "7", CorrectAnswer: "6"}
	if len(note.Records) != 1 || note.Records[0] != want {
		t.Errorf("expected %+v, got %+v", want, note.Records)
	}

	resp = do(t, srv, http.MethodGet, "/subjects/math/report", nil)
	expectStatus(t, resp, http.StatusOK)
	report := decode[model.SubjectReport](t, resp)
	if report.QuestionCount != 2 || len(report.Results) != 1 || len(report.Notes) != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/subjects/math/reset", nil), http.StatusOK)
	resp = do(t, srv, http.MethodGet, "/subjects/math/notes", nil)
	if keys := decode[[]string](t, resp); len(keys) != 0 {
		t.Errorf("expected no notes after reset, got %v", keys)
	}
}

func TestExamStop(t *testing.T) {
	srv, st := newTestServer(t)
	seedSubject(t, st, "math", model.Question{Text: "a", Answer: "1"}, model.Question{Text: "b", Answer: "2"}, model.Question{Text: "c", Answer: "3"})

	resp := do(t, srv, http.MethodPost, "/subjects/math/exams", nil)
	expectStatus(t, resp, http.StatusCreated)
	view := decode[examView](t, resp)
	if view.Total != 3 {
		t.Fatalf("expected default count to cap at bank size 3, got %d", view.Total)
	}

	resp = do(t, srv, http.MethodPost, "/exams/"+view.ID+"/stop", nil)
	expectStatus(t, resp, http.StatusOK)
	view = decode[examView](t, resp)
	if view.State != "completed" || len(view.Wrong) != 3 {
		t.Fatalf("unexpected stopped view: %+v", view)
	}
	for _, w := range view.Wrong {
		if w.UserAnswer != model.StoppedEarly {
			t.Errorf("expected stopped sentinel, got %+v", w)
		}
	}

	resp = do(t, srv, http.MethodGet, "/exams/"+view.ID, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[examView](t, resp); got.Question != "" || got.Result == nil {
		t.Errorf("expected completed session without current question, got %+v", got)
	}
}

func TestExportImportRoutes(t *testing.T) {
	srv, st := newTestServer(t)
	seedSubject(t, st, "math", model.Question{Text: "2+2", Answer: "4"})

	resp := do(t, srv, http.MethodGet, "/subjects/math/export", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("expected application/zip, got %q", ct)
	}
	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("export is not a zip: %v", err)
	}
	found := false
	for _, f := range zr.File {
		if f.Name == "math/questions.json" {
			found = true
		}
	}
	if !found {
		t.Error("expected math/questions.json in archive")
	}

	expectStatus(t, do(t, srv, http.MethodDelete, "/subjects/math", nil), http.StatusNoContent)

	resp = do(t, srv, http.MethodPost, "/import", archive)
	expectStatus(t, resp, http.StatusOK)
	if names := decode[[]string](t, resp); len(names) != 1 || names[0] != "math" {
		t.Errorf("expected [math], got %v", names)
	}
	bank, err := st.LoadBank("math")
	if err != nil || len(bank) != 1 || !strings.EqualFold(bank[0].Answer, "4") {
		t.Errorf("unexpected bank after import: %+v, %v", bank, err)
	}
}

func TestConcurrentAddQuestion(t *testing.T) {
	srv, st := newTestServer(t)
	seedSubject(t, st, "math")

	const n = 40
	statuses := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"question":"q%d","answer":"a%d"}`, i, i)
			resp, err := srv.Client().Post(srv.URL+"/subjects/math/questions", "application/json", strings.NewReader(body))
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(statuses)

	for code := range statuses {
		if code != http.StatusCreated {
			t.Errorf("expected status %d, got %d", http.StatusCreated, code)
		}
	}
	bank, err := st.LoadBank("math")
	if err != nil {
		t.Fatal(err)
	}
	if len(bank) != n {
		t.Errorf("expected %d questions, got %d", n, len(bank))
	}
	seen := make(map[string]bool, n)
	for _, q := range bank {
		seen[q.Text] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct questions, got %d", n, len(seen))
	}
}

func TestStartExamChunkedEmptyBody(t *testing.T) {
	_, r, st := newTestHandler(t)
	seedSubject(t, st, "math", model.Question{Text: "a", Answer: "1"}, model.Question{Text: "b", Answer: "2"})

	req := httptest.NewRequest(http.MethodPost, "/subjects/math/exams", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var view examView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.Total != 2 {
		t.Errorf("expected default count capped at 2, got %d", view.Total)
	}
}

func TestCompletedSessionsExpire(t *testing.T) {
	h, r, st := newTestHandler(t)
	seedSubject(t, st, "math", model.Question{Text: "a", Answer: "1"})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := serve(http.MethodPost, "/subjects/math/exams")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	var view examView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}

	// In-progress sessions never expire.
	now = now.Add(2 * completedTTL)
	if rec := serve(http.MethodPost, "/exams/"+view.ID+"/stop"); rec.Code != http.StatusOK {
		t.Fatalf("expected stop to succeed, got %d", rec.Code)
	}

	now = now.Add(completedTTL / 2)
	if rec := serve(http.MethodGet, "/exams/"+view.ID); rec.Code != http.StatusOK {
		t.Errorf("expected completed session readable within TTL, got %d", rec.Code)
	}

	now = now.Add(completedTTL)
	if rec := serve(http.MethodGet, "/exams/"+view.ID); rec.Code != http.StatusNotFound {
		t.Errorf("expected expired session to be gone, got %d", rec.Code)
	}
	h.mu.Lock()
	left := len(h.sessions)
	h.mu.Unlock()
	if left != 0 {
		t.Errorf("expected empty session table, got %d entries", left)
	}
}
