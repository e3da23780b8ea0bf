package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/eventloop/internal/auth"
	"github.com/geocoder89/eventloop/internal/config"
	apphttp "github.com/geocoder89/eventloop/internal/http"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/geocoder89/eventloop/internal/repo/memory"
	"github.com/geocoder89/eventloop/internal/seed"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	staffEmail    = "admin@eventloop.com"
	staffPassword = "Adm1n-Passw0rd!"
	userEmail     = "user@example.com"
	userPassword  = "Us3r-Passw0rd!"
)

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		StoreTimeout:   time.Second,
		JWTSecret:      "test-secret-key",
		SessionTTL:     time.Hour,
		RegisterLimit:  3,
		RegisterWindow: time.Hour,
		LoginRPS:       100,
		LoginBurst:     100,
		CORSOrigins:    []string{"http://localhost:3000"},

		SeedStaffEmail:    staffEmail,
		SeedStaffPassword: staffPassword,
		SeedStaffName:     "Admin User",
		SeedUserEmail:     userEmail,
		SeedUserPassword:  userPassword,
		SeedUserName:      "Regular User",
	}
}

type app struct {
	router *gin.Engine
	store  *memory.Store
}

func setupApp(t *testing.T) app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	log := observability.NewDiscardLogger()
	store := memory.NewStore()

	if err := seed.Run(context.Background(), store.Users(), seed.Accounts(cfg), log); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg := prometheus.NewRegistry()

	router := apphttp.NewRouter(apphttp.Deps{
		Config:   cfg,
		Log:      log,
		Prom:     observability.NewProm(reg),
		Gatherer: reg,
		Users:    store.Users(),
		Events:   store.Events(),
		Signups:  store.Signups(),
		Store:    store,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.SessionTTL),
	})

	return app{router: router, store: store}
}

func (a app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "192.0.2.10:5555"

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a app) login(t *testing.T, email, password string) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s got %d body=%s", email, w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login response: %v body=%s", err, w.Body.String())
	}
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return out
}

func eventBody(title string, start time.Time) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "<p>An evening of talks</p>",
		"startTime":   start.Format(time.RFC3339),
		"endTime":     start.Add(2 * time.Hour).Format(time.RFC3339),
		"location":    "Toronto",
	}
}
