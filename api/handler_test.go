package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abimbolaoige/KFM-Counsel-Chat/api"
	"github.com/abimbolaoige/KFM-Counsel-Chat/app"
	"github.com/abimbolaoige/KFM-Counsel-Chat/config"
	"github.com/abimbolaoige/KFM-Counsel-Chat/database"
	"github.com/abimbolaoige/KFM-Counsel-Chat/llm"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

type envelope struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
}

type testEnv struct {
	t      *testing.T
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Database.DSN = filepath.Join(t.TempDir(), "kfm.db")
	cfg.Session.TTL = time.Hour
	cfg.Triage.HistoryLimit = 100
	cfg.Hub.Limit = 50
	cfg.Safety.EmergencyURL = "https://wa.me/2340000000000"
	cfg.Lock.MaxAttempts = 5
	cfg.Lock.Cooldown = 30 * time.Second
	cfg.LLM.Timeout = time.Second

	db, err := database.Init(cfg.Database.DSN, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	stores := &app.Stores{
		DB:        db,
		Sessions:  session.NewMemoryStore(cfg.Session.TTL),
		KV:        repository.NewMemoryKV(),
		Generator: llm.Unavailable{},
	}
	svc, _ := app.NewServices(cfg, stores, nil)
	h := api.NewAPIHandler(svc, nil)
	return &testEnv{t: t, router: api.NewRouter(h, nil)}
}

func (e *testEnv) do(method, path, token string, body any) (int, envelope) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type authData struct {
	Token string `json:"token"`
}

func (e *testEnv) signup(name, email string) string {
	e.t.Helper()
	code, env := e.do(http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": name, "email": email, "password": "s3cret-pass", "terms_accepted": true,
	})
	require.Equal(e.t, http.StatusOK, code, env.Message)
	tok := decode[authData](e.t, env.Data).Token
	require.NotEmpty(e.t, tok)
	return tok
}

func (e *testEnv) guest() string {
	e.t.Helper()
	code, env := e.do(http.MethodPost, "/api/auth/guest", "", nil)
	require.Equal(e.t, http.StatusOK, code, env.Message)
	return decode[authData](e.t, env.Data).Token
}

func (e *testEnv) unlock(token, pin string) {
	e.t.Helper()
	code, _ := e.do(http.MethodPost, "/api/lock/open", token, nil)
	require.Equal(e.t, http.StatusOK, code)

	type lockState struct {
		Unlocked bool `json:"unlocked"`
	}
	var last lockState
	// First run: choose the PIN, then confirm it.
	for _, d := range pin + pin {
		code, env := e.do(http.MethodPost, "/api/lock/digits", token, gin.H{"digit": string(d)})
		require.Equal(e.t, http.StatusOK, code, env.Message)
		last = decode[lockState](e.t, env.Data)
	}
	require.True(e.t, last.Unlocked)
}

func TestInitAnonymous(t *testing.T) {
	env := newTestEnv(t)
	code, resp := env.do(http.MethodGet, "/api/init", "", nil)
	require.Equal(t, http.StatusOK, code)

	type initData struct {
		UserType     string   `json:"user_type"`
		PrayerTopics []string `json:"prayer_topics"`
		VerseOfDay   struct {
			Ref string `json:"ref"`
		} `json:"verse_of_day"`
	}
	data := decode[initData](t, resp.Data)
	assert.Equal(t, "anonymous", data.UserType)
	assert.Len(t, data.PrayerTopics, 6)
	assert.NotEmpty(t, data.VerseOfDay.Ref)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	env := newTestEnv(t)
	code, resp := env.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	code, _ = env.do(http.MethodGet, "/api/profile", "no-such-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestTriageScoreIsRecordedInHistory(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup("Grace Adeyemi", "grace@example.com")

	code, resp := env.do(http.MethodPost, "/api/assessments/triage/score", tok, gin.H{"answers": []int{4, 4, 4, 4, 4}})
	require.Equal(t, http.StatusOK, code, resp.Message)
	progress := decode[struct {
		Result struct {
			Score   int    `json:"score"`
			Summary string `json:"summary"`
		} `json:"result"`
	}](t, resp.Data)
	assert.Equal(t, 80, progress.Result.Score)
	assert.Equal(t, "Strong Foundation", progress.Result.Summary)
	assert.Empty(t, resp.Warnings)

	code, resp = env.do(http.MethodGet, "/api/profile/history", tok, nil)
	require.Equal(t, http.StatusOK, code)
	history := decode[[]struct {
		Score   int    `json:"score"`
		Summary string `json:"summary"`
	}](t, resp.Data)
	require.Len(t, history, 1)
	assert.Equal(t, 80, history[0].Score)

	code, _ = env.do(http.MethodPost, "/api/assessments/triage/score", tok, gin.H{"answers": []int{4, 4}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAssessmentStepByStep(t *testing.T) {
	env := newTestEnv(t)
	tok := env.guest()

	var last envelope
	for _, v := range []int{1, 1, 1, 1, 1} {
		code, resp := env.do(http.MethodPost, "/api/assessments/triage/answers", tok, gin.H{"value": v})
		require.Equal(t, http.StatusOK, code, resp.Message)
		last = resp
	}
	progress := decode[struct {
		Result *struct {
			Score int `json:"score"`
		} `json:"result"`
	}](t, last.Data)
	require.NotNil(t, progress.Result)
	assert.Equal(t, 20, progress.Result.Score)

	code, _ := env.do(http.MethodPost, "/api/assessments/triage/answers", tok, gin.H{"value": 9})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChatSafetyFlow(t *testing.T) {
	env := newTestEnv(t)
	tok := env.guest()

	code, resp := env.do(http.MethodPost, "/api/chat", tok, gin.H{"message": "he hits me when he drinks"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "safety", resp.Message)
	reply := decode[struct {
		Reply  string `json:"reply"`
		Safety *struct {
			Alert        bool   `json:"alert"`
			EmergencyURL string `json:"emergency_url"`
		} `json:"safety"`
	}](t, resp.Data)
	require.NotNil(t, reply.Safety)
	assert.True(t, reply.Safety.Alert)
	assert.Equal(t, "https://wa.me/2340000000000", reply.Safety.EmergencyURL)
	assert.Empty(t, reply.Reply)

	code, resp = env.do(http.MethodGet, "/api/init", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[struct {
		SafetyAlert bool `json:"safety_alert"`
	}](t, resp.Data).SafetyAlert)

	code, resp = env.do(http.MethodPost, "/api/safety/dismiss", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[struct {
		Alert bool `json:"alert"`
	}](t, resp.Data).Alert)

	code, resp = env.do(http.MethodPost, "/api/chat", tok, gin.H{"message": "We keep arguing about money"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Message)
	normal := decode[struct {
		Reply    string `json:"reply"`
		Fallback bool   `json:"fallback"`
	}](t, resp.Data)
	assert.Equal(t, llm.FallbackReply, normal.Reply)
	assert.True(t, normal.Fallback)

	code, _ = env.do(http.MethodPost, "/api/chat", tok, gin.H{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestJournalNeedsAccountAndUnlock(t *testing.T) {
	env := newTestEnv(t)

	guest := env.guest()
	code, _ := env.do(http.MethodPost, "/api/journal", guest, gin.H{"text": "Thankful today"})
	assert.Equal(t, http.StatusForbidden, code)

	tok := env.signup("Grace Adeyemi", "grace@example.com")
	code, _ = env.do(http.MethodGet, "/api/journal", tok, nil)
	assert.Equal(t, http.StatusLocked, code)

	env.unlock(tok, "1234")

	code, resp := env.do(http.MethodPost, "/api/journal", tok, gin.H{"text": "Thankful for a calm evening", "category": "gratitude"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	added := decode[struct {
		Entry struct {
			ID       string `json:"id"`
			Category string `json:"category"`
		} `json:"entry"`
	}](t, resp.Data)
	require.NotEmpty(t, added.Entry.ID)
	assert.Equal(t, "gratitude", added.Entry.Category)

	code, resp = env.do(http.MethodGet, "/api/journal", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]json.RawMessage](t, resp.Data), 1)

	code, _ = env.do(http.MethodDelete, "/api/journal/"+added.Entry.ID, tok, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = env.do(http.MethodPost, "/api/lock/close", tok, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(http.MethodGet, "/api/journal", tok, nil)
	assert.Equal(t, http.StatusLocked, code)
}

type hubRequest struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Text        string `json:"text"`
	PrayerCount int    `json:"prayer_count"`
}

func TestPrayerHubFlow(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup("Grace Adeyemi", "grace@example.com")
	env.unlock(tok, "2468")

	code, resp := env.do(http.MethodPost, "/api/prayer/requests", tok, gin.H{"text": "Pray for peace in our home"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	posted := decode[struct {
		Request hubRequest `json:"request"`
	}](t, resp.Data).Request
	assert.Equal(t, "Grace", posted.Author)

	type counted struct {
		Counted bool `json:"counted"`
	}
	code, resp = env.do(http.MethodPost, "/api/prayer/requests/"+posted.ID+"/pray", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[counted](t, resp.Data).Counted)

	code, resp = env.do(http.MethodPost, "/api/prayer/requests/"+posted.ID+"/pray", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[counted](t, resp.Data).Counted)

	code, resp = env.do(http.MethodGet, "/api/prayer/requests", tok, nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[[]hubRequest](t, resp.Data)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].PrayerCount)

	code, _ = env.do(http.MethodPost, "/api/prayer/requests/missing/pray", tok, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = env.do(http.MethodPost, "/api/prayer/requests/"+posted.ID+"/answered", tok, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = env.do(http.MethodGet, "/api/prayer/testimonies", tok, nil)
	require.Equal(t, http.StatusOK, code)
	testimonies := decode[[]hubRequest](t, resp.Data)
	require.Len(t, testimonies, 1)
	assert.Equal(t, "Answered Prayer: Pray for peace in our home", testimonies[0].Text)

	code, resp = env.do(http.MethodGet, "/api/prayer/requests", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]hubRequest](t, resp.Data))
}

func TestGeneratePrayerFallsBack(t *testing.T) {
	env := newTestEnv(t)
	tok := env.guest()

	code, resp := env.do(http.MethodPost, "/api/prayer/generate", tok, gin.H{"topic": "Communication"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	p := decode[struct {
		Fallback bool `json:"fallback"`
	}](t, resp.Data)
	assert.True(t, p.Fallback)
}

func TestEscalationSubmitAndList(t *testing.T) {
	env := newTestEnv(t)

	guest := env.guest()
	code, _ := env.do(http.MethodPost, "/api/escalations", guest, gin.H{"contact": "+2348000000000"})
	assert.Equal(t, http.StatusForbidden, code)

	tok := env.signup("Grace Adeyemi", "grace@example.com")
	code, resp := env.do(http.MethodPost, "/api/escalations", tok, gin.H{
		"contact":     "+2348000000000",
		"description": "I am scared for my life",
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	req := decode[struct {
		Name    string `json:"name"`
		Urgency string `json:"urgency"`
		Flagged bool   `json:"flagged"`
	}](t, resp.Data)
	assert.Equal(t, "Grace Adeyemi", req.Name)
	assert.Equal(t, "high", req.Urgency)
	assert.True(t, req.Flagged)

	code, resp = env.do(http.MethodGet, "/api/escalations", tok, nil)
	require.Equal(t, http.StatusOK, code)
	listed := decode[struct {
		Requests []json.RawMessage `json:"requests"`
	}](t, resp.Data)
	assert.Len(t, listed.Requests, 1)
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup("Grace Adeyemi", "grace@example.com")

	code, _ := env.do(http.MethodPost, "/api/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = env.do(http.MethodGet, "/api/profile", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := env.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "grace@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, code, resp.Message)
}

func readEvent(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}
}

func TestPrayerStreamDeliversUpdates(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup("Grace Adeyemi", "grace@example.com")
	env.unlock(tok, "1357")

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/prayer/stream?section=requests&token="+tok, nil)
	require.NoError(t, err)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	r := bufio.NewReader(resp.Body)
	event, data := readEvent(t, r)
	assert.Equal(t, "requests", event)
	assert.Equal(t, "[]", data)

	code, _ := env.do(http.MethodPost, "/api/prayer/requests", tok, gin.H{"text": "Strength for my husband"})
	require.Equal(t, http.StatusOK, code)

	event, data = readEvent(t, r)
	assert.Equal(t, "requests", event)
	assert.Contains(t, data, "Strength for my husband")
}

func TestPrayerStreamUnknownSection(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup("Grace Adeyemi", "grace@example.com")
	env.unlock(tok, "1357")

	code, _ := env.do(http.MethodGet, "/api/prayer/stream?section=gossip", tok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
