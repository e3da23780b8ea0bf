package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/eventloop/internal/access"
	"github.com/geocoder89/eventloop/internal/actorctx"
	"github.com/geocoder89/eventloop/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type fakeVerifier struct {
	VerifyFn func(token string) (*auth.Claims, error)
}

func (f fakeVerifier) Verify(token string) (*auth.Claims, error) {
	return f.VerifyFn(token)
}

func verifier() fakeVerifier {
	return fakeVerifier{VerifyFn: func(token string) (*auth.Claims, error) {
		switch token {
		case "staff-token":
			return &auth.Claims{UserID: "s1", Role: "staff"}, nil
		case "user-token":
			return &auth.Claims{UserID: "u1", Role: "user"}, nil
		default:
			return nil, errors.New("bad token")
		}
	}}
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(mw...)
	r.Any("/x", func(c *gin.Context) {
		id, _ := IdentityFromContext(c)
		ctxID, _ := actorctx.IdentityFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id.ID, "ctxId": ctxID.ID})
	})
	return r
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	if body.Error.RequestID == "" {
		t.Fatalf("expected requestId in error envelope, body=%s", rec.Body.String())
	}
	return body.Error.Code
}

func TestRequire(t *testing.T) {
	am := NewAuthMiddleware(verifier())

	cases := []struct {
		name   string
		mw     gin.HandlerFunc
		header string
		cookie string
		status int
		code   string
	}{
		{"anon on auth route", RequireAuth(), "", "", http.StatusUnauthorized, "unauthorized"},
		{"bad token on auth route", RequireAuth(), "Bearer nope", "", http.StatusUnauthorized, "unauthorized"},
		{"user on auth route", RequireAuth(), "Bearer user-token", "", http.StatusOK, ""},
		{"cookie on auth route", RequireAuth(), "", "user-token", http.StatusOK, ""},
		{"anon on staff route", RequireStaff(), "", "", http.StatusUnauthorized, "unauthorized"},
		{"user on staff route", RequireStaff(), "Bearer user-token", "", http.StatusForbidden, "forbidden"},
		{"staff on staff route", RequireStaff(), "Bearer staff-token", "", http.StatusOK, ""},
		{"anon browse", Require(access.Browse), "", "", http.StatusOK, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(am.Identify(), tc.mw)

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.code != "" {
				if got := decodeErrorCode(t, rec); got != tc.code {
					t.Fatalf("code = %q, want %q", got, tc.code)
				}
			}
		})
	}
}

func TestIdentify_PropagatesToRequestContext(t *testing.T) {
	r := newRouter(NewAuthMiddleware(verifier()).Identify())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer staff-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `"ctxId":"s1"`) {
		t.Fatalf("expected identity in request context, got %s", rec.Body.String())
	}
}

func TestRateLimit_MemoryWindow(t *testing.T) {
	w := NewMemoryWindow()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	r := newRouter(RateLimit(w, 2, time.Hour, KeyByIP("register")))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("first: %d remaining=%s", rec.Code, rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("second: %d", rec.Code)
	}

	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third: %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3600" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if code := decodeErrorCode(t, rec); code != "rate_limited" {
		t.Fatalf("code = %q", code)
	}

	// next window
	now = now.Add(time.Hour)
	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("after window: %d", rec.Code)
	}
}

func TestRedisWindow_FallsBackWhenUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	w := NewRedisWindow(rdb, slog.New(slog.DiscardHandler))

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		d, err := w.Hit(ctx, "k", 2, time.Minute)
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if want := i <= 2; d.Allowed != want {
			t.Fatalf("hit %d allowed=%v want %v", i, d.Allowed, want)
		}
	}
}

func TestTokenBucket(t *testing.T) {
	b := NewTokenBucket(0.0001, 2)
	r := newRouter(b.Middleware())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = "10.0.0.2:1"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// a different client has its own bucket
	if !b.Allow("10.0.0.3") {
		t.Fatal("other client should be allowed")
	}
}

func TestRequireJSON(t *testing.T) {
	r := newRouter(RequireJSON())

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", rec.Code)
	}

	// body-less POST passes
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("empty body status = %d", rec.Code)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := newRouter(MaxBodyBytes(8))

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"title":"too long"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := newRouter(SecurityHeaders(true))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff")
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("missing HSTS")
	}
}

func TestRequestID_EchoesHeader(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("X-Request-Id = %q", rec.Header().Get("X-Request-Id"))
	}
}
