package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/eventloop/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestReadyz(t *testing.T) {
	ok := handlers.PingFunc(func(ctx context.Context) error { return nil })
	down := handlers.PingFunc(func(ctx context.Context) error { return errors.New("refused") })

	tests := []struct {
		name   string
		checks map[string]handlers.Pinger
		status int
	}{
		{name: "all up", checks: map[string]handlers.Pinger{"store": ok, "redis": ok}, status: http.StatusOK},
		{name: "store down", checks: map[string]handlers.Pinger{"store": down, "redis": ok}, status: http.StatusServiceUnavailable},
		{name: "no checks", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.checks)

			r := gin.New()
			r.GET("/readyz", h.Readyz)
			w := doJSON(r, http.MethodGet, "/readyz", "")

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if tt.status != http.StatusOK && strings.Contains(w.Body.String(), "refused") {
				t.Fatalf("ping error leaked: %s", w.Body.String())
			}
		})
	}
}

func TestDocs(t *testing.T) {
	r := gin.New()
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	w := doJSON(r, http.MethodGet, "/docs/openapi.yaml", "")
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "openapi: 3") {
		t.Fatalf("unexpected openapi response: %d", w.Code)
	}

	w = doJSON(r, http.MethodGet, "/docs", "")
	if !strings.Contains(w.Body.String(), "/docs/openapi.yaml") {
		t.Fatal("swagger ui should point at the embedded document")
	}
}
