package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/pkg/errcode"
	appErr "github.com/xxxsen/ytqa/internal/pkg/errors"
	"github.com/xxxsen/ytqa/internal/service"
)

type fakeSessions struct {
	sess    *model.Session
	loadErr error
	cleared bool
	source  string
}

func (f *fakeSessions) Load(ctx context.Context, source string, videoURL string) (*model.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.source = source
	f.sess = &model.Session{ID: "s1", VideoURL: videoURL, VideoID: "abcdefghijk", ChunkCount: 2}
	return f.sess, nil
}

func (f *fakeSessions) Current(ctx context.Context) (*model.Session, error) {
	if f.sess == nil {
		return nil, appErr.ErrNoSession
	}
	return f.sess, nil
}

func (f *fakeSessions) Clear(ctx context.Context) error {
	f.cleared = true
	f.sess = nil
	return nil
}

type fakeRunner struct {
	interconnected bool
	questions      []string
}

func (f *fakeRunner) run(questions []string) []model.BatchResult {
	f.questions = questions
	out := make([]model.BatchResult, 0, len(questions))
	for _, q := range questions {
		out = append(out, model.SuccessResult(q, "answer to "+q, nil))
	}
	return out
}

func (f *fakeRunner) RunBatch(ctx context.Context, sess *model.Session, questions []string, progress service.ProgressFunc) []model.BatchResult {
	return f.run(questions)
}

func (f *fakeRunner) RunInterconnected(ctx context.Context, sess *model.Session, questions []string, progress service.ProgressFunc) []model.BatchResult {
	f.interconnected = true
	return f.run(questions)
}

type fakeHistory []model.QAPair

func (f fakeHistory) List() []model.QAPair {
	out := make([]model.QAPair, len(f))
	copy(out, f)
	return out
}

type fakeTranscripts struct {
	stamps   []string
	maxChars int
}

func (f *fakeTranscripts) Context(timestamps []string, maxChars int) string {
	f.stamps = timestamps
	f.maxChars = maxChars
	return "[00:00:00 - 00:00:05] hello\n\n"
}

type fakeResults struct {
	runID string
}

func (f *fakeResults) Save(ctx context.Context, runID string, results []model.BatchResult) ([]string, error) {
	f.runID = runID
	return []string{"results.json"}, nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type fixture struct {
	router      *gin.Engine
	sessions    *fakeSessions
	runner      *fakeRunner
	transcripts *fakeTranscripts
	results     *fakeResults
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		sessions:    &fakeSessions{},
		runner:      &fakeRunner{},
		transcripts: &fakeTranscripts{},
		results:     &fakeResults{},
	}
	history := fakeHistory{{Question: "q", Answer: "a", Timestamps: []string{}, Embedding: []float32{1, 2}}}
	f.router = gin.New()
	RegisterRoutes(f.router.Group("/api/v1"), RouterDeps{
		Sessions:  NewSessionHandler(f.sessions),
		Questions: NewQuestionHandler(f.sessions, f.runner, history, f.transcripts, f.results, 8000),
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func TestSessionLifecycle(t *testing.T) {
	f := setupRouter(t)

	env := f.do(t, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, errcode.ErrNoSession, env.Code)

	env = f.do(t, http.MethodPost, "/api/v1/session", `{"source":"https://youtu.be/abcdefghijk","video_url":"https://youtu.be/abcdefghijk"}`)
	require.Equal(t, 0, env.Code)
	var sess model.Session
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	require.Equal(t, "abcdefghijk", sess.VideoID)

	env = f.do(t, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, 0, env.Code)

	env = f.do(t, http.MethodDelete, "/api/v1/session", "")
	require.Equal(t, 0, env.Code)
	require.True(t, f.sessions.cleared)
}

func TestSessionLoad_Errors(t *testing.T) {
	f := setupRouter(t)
	env := f.do(t, http.MethodPost, "/api/v1/session", `{}`)
	require.Equal(t, errcode.ErrInvalid, env.Code)

	f.sessions.loadErr = appErr.ErrFetch
	env = f.do(t, http.MethodPost, "/api/v1/session", `{"source":"https://youtu.be/abcdefghijk"}`)
	require.Equal(t, errcode.ErrFetchSubtitle, env.Code)
}

func TestAsk(t *testing.T) {
	f := setupRouter(t)
	env := f.do(t, http.MethodPost, "/api/v1/questions", `{"questions":["a"]}`)
	require.Equal(t, errcode.ErrNoSession, env.Code)

	f.sessions.sess = &model.Session{ID: "s1"}
	env = f.do(t, http.MethodPost, "/api/v1/questions", `{"questions":[" what? ", "why?"],"interconnected":true}`)
	require.Equal(t, 0, env.Code)
	require.True(t, f.runner.interconnected)
	require.Equal(t, []string{"what?", "why?"}, f.runner.questions)

	var resp askResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Results, 2)
	require.Equal(t, f.results.runID, resp.RunID)
	require.Equal(t, []string{"results.json"}, resp.Files)

	env = f.do(t, http.MethodPost, "/api/v1/questions", `{"questions":[]}`)
	require.Equal(t, errcode.ErrInvalid, env.Code)
}

func TestAsk_RejectsBlankQuestion(t *testing.T) {
	f := setupRouter(t)
	f.sessions.sess = &model.Session{ID: "s1"}
	env := f.do(t, http.MethodPost, "/api/v1/questions", `{"questions":["what?", "  ", "why?"]}`)
	require.Equal(t, errcode.ErrInvalid, env.Code)
	require.Contains(t, env.Msg, "questions[1]")
	require.Nil(t, f.runner.questions)
}

func TestHistoryOmitsEmbeddings(t *testing.T) {
	f := setupRouter(t)
	env := f.do(t, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, 0, env.Code)
	require.NotContains(t, string(env.Data), "embedding")
	require.Contains(t, string(env.Data), `"question":"q"`)
}

func TestContext(t *testing.T) {
	f := setupRouter(t)
	env := f.do(t, http.MethodGet, "/api/v1/context?timestamps=00:00:01,00:00:02%20-%2000:00:04&max_chars=100", "")
	require.Equal(t, 0, env.Code)
	require.Equal(t, []string{"00:00:01", "00:00:02"}, f.transcripts.stamps)
	require.Equal(t, 100, f.transcripts.maxChars)

	env = f.do(t, http.MethodGet, "/api/v1/context", "")
	require.Equal(t, 0, env.Code)
	require.Nil(t, f.transcripts.stamps)
	require.Equal(t, 8000, f.transcripts.maxChars)

	env = f.do(t, http.MethodGet, "/api/v1/context?timestamps=1:2", "")
	require.Equal(t, errcode.ErrInvalid, env.Code)
	env = f.do(t, http.MethodGet, "/api/v1/context?max_chars=-1", "")
	require.Equal(t, errcode.ErrInvalid, env.Code)
}
