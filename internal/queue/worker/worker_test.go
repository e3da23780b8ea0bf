package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/eventloop/internal/domain/delivery"
	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/domain/job"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/jobs"
	"github.com/geocoder89/eventloop/internal/notifications"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/geocoder89/eventloop/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	sent []notifications.SignupConfirmation
	err  error
}

func (n *countingNotifier) SendSignupConfirmation(ctx context.Context, in notifications.SignupConfirmation) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	n.sent = append(n.sent, in)
	return "msg-" + in.SignupID, nil
}

type fixture struct {
	store    *memory.Store
	worker   *Worker
	notifier *countingNotifier
	eventID  string
	userID   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	staff, err := store.Users().Create(ctx, user.CreateParams{Email: "admin@eventloop.com", Name: "Admin", Role: user.RoleStaff})
	require.NoError(t, err)
	member, err := store.Users().Create(ctx, user.CreateParams{Email: "user@example.com", Name: "Regular User"})
	require.NoError(t, err)

	start := time.Now().Add(24 * time.Hour)
	e, err := store.Events().Create(ctx, staff.ID, event.Fields{
		Title: "Go Meetup", Description: "talks", StartTime: start, EndTime: start.Add(time.Hour),
	})
	require.NoError(t, err)

	n := &countingNotifier{}
	w := New(Config{WorkerID: "test"}, store.Jobs(), observability.NewDiscardLogger(), nil)
	w.Register(jobs.TypeSignupConfirmation, SignupConfirmationHandler(ConfirmationDeps{
		Signups:    store.Signups(),
		Users:      store.Users(),
		Events:     store.Events(),
		Deliveries: store.Deliveries(),
		Notifier:   n,
		Log:        observability.NewDiscardLogger(),
	}))

	return fixture{store: store, worker: w, notifier: n, eventID: e.ID, userID: member.ID}
}

func TestSignupConfirmation_SentOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.store.Signups().Create(ctx, f.eventID, f.userID)
	require.NoError(t, err)

	processed, err := f.worker.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "user@example.com", f.notifier.sent[0].Email)
	assert.Equal(t, "Go Meetup", f.notifier.sent[0].EventTitle)

	st, ok := f.store.Deliveries().Status(delivery.KindSignupConfirmation, s.ID)
	require.True(t, ok)
	assert.Equal(t, delivery.StatusSent, st)

	j, err := f.store.Jobs().GetByIdempotencyKey(ctx, jobs.SignupConfirmationKey(s.ID))
	require.NoError(t, err)
	assert.Equal(t, job.StatusDone, j.Status)

	// a replayed job does not send again
	h := f.worker.handlers[string(jobs.TypeSignupConfirmation)]
	require.NoError(t, h(ctx, j))
	assert.Len(t, f.notifier.sent, 1)

	processed, err = f.worker.ProcessOne(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestSignupConfirmation_WithdrawnIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Signups().Create(ctx, f.eventID, f.userID)
	require.NoError(t, err)
	require.NoError(t, f.store.Signups().Delete(ctx, f.eventID, f.userID))

	processed, err := f.worker.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Empty(t, f.notifier.sent)
}

func TestSignupConfirmation_ProviderFailureRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.err = errors.New("provider down")

	s, err := f.store.Signups().Create(ctx, f.eventID, f.userID)
	require.NoError(t, err)

	processed, err := f.worker.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	j, err := f.store.Jobs().GetByIdempotencyKey(ctx, jobs.SignupConfirmationKey(s.ID))
	require.NoError(t, err)
	assert.Equal(t, job.StatusPending, j.Status)
	assert.Equal(t, 1, j.Attempts)
	assert.True(t, j.RunAt.After(time.Now()))

	st, _ := f.store.Deliveries().Status(delivery.KindSignupConfirmation, s.ID)
	assert.Equal(t, delivery.StatusFailed, st)
}

func TestProcessOne_UnknownTypeFailsPermanently(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	w := New(Config{}, store.Jobs(), observability.NewDiscardLogger(), nil)

	key := "k1"
	j, err := store.Jobs().Create(ctx, job.CreateRequest{Type: "nope", Payload: []byte(`{}`), IdempotencyKey: &key})
	require.NoError(t, err)

	processed, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	got, err := store.Jobs().GetByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.Equal(t, job.StatusFailed, got.Status)
}

func TestExponentialBackoff(t *testing.T) {
	assert.GreaterOrEqual(t, ExponentialBackoff(0), 2*time.Second)
	assert.Less(t, ExponentialBackoff(0), 3*time.Second)
	assert.GreaterOrEqual(t, ExponentialBackoff(2), 8*time.Second)
	assert.LessOrEqual(t, ExponentialBackoff(50), 5*time.Minute+250*time.Millisecond)
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	w := New(Config{}, store.Jobs(), observability.NewDiscardLogger(), nil)
	h := w.HealthHandler(store)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	w.setReady(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
