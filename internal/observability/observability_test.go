package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestClassifyDBErr(t *testing.T) {
	cases := map[string]error{
		"unique_violation":      &pgconn.PgError{Code: "23505"},
		"foreign_key_violation": &pgconn.PgError{Code: "23503"},
		"pg_42P01":              &pgconn.PgError{Code: "42P01"},
		"timeout":               context.DeadlineExceeded,
		"connection":            errors.New("connection refused"),
		"unknown":               errors.New("boom"),
	}

	for want, err := range cases {
		assert.Equal(t, want, ClassifyDBErr(err), "err=%v", err)
	}
}

func TestObserveDB_NilReceiverRunsFn(t *testing.T) {
	var p *Prom
	called := false

	err := p.ObserveDB("events.list", func() error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestObserveDB_CountsErrorsByClass(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("signups.create", func() error {
		return &pgconn.PgError{Code: "23505"}
	})
	require.Error(t, err)

	got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("signups.create", "unique_violation"))
	assert.Equal(t, float64(1), got)
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", rec["span_id"])
	assert.Equal(t, "eventloop", rec["service"])
}
