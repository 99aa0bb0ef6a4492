// internal/workers/rsvp/schedule-reminders/handler_test.go
package schedulereminders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "reminder-workers/internal/common/errors"
	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/models"
	"reminder-workers/internal/reminders"
)

// ==========================
// Mock Implementations
// ==========================

type mockNotificationStore struct {
	InsertFunc        func(ctx context.Context, n *models.ScheduledNotification) error
	CancelPendingFunc func(ctx context.Context, userID, referenceID string, refTypes []models.ReferenceType, reason string) (int64, error)

	ops      []string
	inserted []*models.ScheduledNotification
}

func (m *mockNotificationStore) Insert(ctx context.Context, n *models.ScheduledNotification) error {
	m.ops = append(m.ops, "insert")
	m.inserted = append(m.inserted, n)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, n)
	}
	return nil
}

func (m *mockNotificationStore) CancelPending(ctx context.Context, userID, referenceID string, refTypes []models.ReferenceType, reason string) (int64, error) {
	m.ops = append(m.ops, "cancel")
	if m.CancelPendingFunc != nil {
		return m.CancelPendingFunc(ctx, userID, referenceID, refTypes, reason)
	}
	return 0, nil
}

type mockSettingsStore struct {
	cfg reminders.ReminderConfig
}

func (m *mockSettingsStore) ReminderSettings(ctx context.Context, eventID string) (reminders.ReminderConfig, error) {
	return m.cfg, nil
}

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(store *mockNotificationStore, cfg reminders.ReminderConfig) *Handler {
	h := NewHandler(LoadConfig(), store, &mockSettingsStore{cfg: cfg}, logger.NewNoOpLogger())
	h.now = func() time.Time { return testNow }
	return h
}

func testEvent(startsAt time.Time) *models.RSVPEvent {
	return &models.RSVPEvent{
		UserID:       "user-1",
		Locale:       "en",
		EventID:      "event-1",
		EventTitle:   "Summer Picnic",
		EventSlug:    "summer-picnic",
		StartsAt:     startsAt,
		LocationName: "Riverside Park",
	}
}

func kindsOf(rows []*models.ScheduledNotification) []models.Kind {
	out := make([]models.Kind, 0, len(rows))
	for _, n := range rows {
		out = append(out, n.Type)
	}
	return out
}

// ==========================
// Core Functionality Tests
// ==========================

func TestExecute_SchedulesFullCascade(t *testing.T) {
	store := &mockNotificationStore{}
	h := newTestHandler(store, reminders.DefaultConfig())

	event := testEvent(testNow.Add(10 * 24 * time.Hour))
	output, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, 5, output.Scheduled)
	assert.Equal(t, 0, output.Skipped)

	assert.ElementsMatch(t, []models.Kind{
		models.KindConfirmAttendance7d,
		models.KindConfirmAttendance24h,
		models.KindFinalReminder2h,
		models.KindEventStartingNudge,
		models.KindFeedbackRequest,
	}, kindsOf(store.inserted))

	for _, n := range store.inserted {
		assert.Equal(t, "user-1", n.UserID)
		assert.Equal(t, models.ReferenceEventRSVP, n.ReferenceType)
		assert.Equal(t, "event-1", n.ReferenceID)
		assert.True(t, n.ScheduledFor.After(testNow), "slot %s must be future-dated", n.Type)

		payload, err := models.DecodePayload(n.Type, n.Payload)
		require.NoError(t, err)
		assert.Equal(t, n.Type, payload.Kind())
	}
}

func TestExecute_CancelsBeforeInserting(t *testing.T) {
	var sweptTypes []models.ReferenceType
	store := &mockNotificationStore{
		CancelPendingFunc: func(ctx context.Context, userID, referenceID string, refTypes []models.ReferenceType, reason string) (int64, error) {
			sweptTypes = refTypes
			return 3, nil
		},
	}
	h := newTestHandler(store, reminders.DefaultConfig())

	output, err := h.Execute(context.Background(), testEvent(testNow.Add(30*24*time.Hour)))

	require.NoError(t, err)
	assert.Equal(t, int64(3), output.Cancelled)
	require.NotEmpty(t, store.ops)
	assert.Equal(t, "cancel", store.ops[0], "idempotency sweep must precede every insert")
	assert.ElementsMatch(t, models.RSVPReferenceTypes, sweptTypes)
}

func TestExecute_Idempotent(t *testing.T) {
	store := &mockNotificationStore{}
	h := newTestHandler(store, reminders.DefaultConfig())
	event := testEvent(testNow.Add(10 * 24 * time.Hour))

	first, err := h.Execute(context.Background(), event)
	require.NoError(t, err)
	second, err := h.Execute(context.Background(), event)
	require.NoError(t, err)

	// Re-firing the same event produces the same slot set again, after a
	// sweep. The active row count per slot therefore never grows.
	assert.Equal(t, first.Scheduled, second.Scheduled)
	assert.Equal(t, 2*first.Scheduled, len(store.inserted))
}

func TestExecute_PastDueSlotsSkipped(t *testing.T) {
	store := &mockNotificationStore{}
	h := newTestHandler(store, reminders.DefaultConfig())

	// 90 minutes out: the 7d, 24h and 2h slots are already past; the nudge
	// (start+15min) and feedback remain.
	event := testEvent(testNow.Add(90 * time.Minute))
	output, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, 2, output.Scheduled)
	assert.Equal(t, 3, output.Skipped)
	assert.ElementsMatch(t, []models.Kind{
		models.KindEventStartingNudge,
		models.KindFeedbackRequest,
	}, kindsOf(store.inserted))
}

func TestExecute_SettingsDisableSlots(t *testing.T) {
	store := &mockNotificationStore{}
	cfg := reminders.ReminderConfig{Reminder24h: true, FeedbackDelayHours: 3}
	h := newTestHandler(store, cfg)

	output, err := h.Execute(context.Background(), testEvent(testNow.Add(10*24*time.Hour)))

	require.NoError(t, err)
	assert.Equal(t, 1, output.Scheduled)
	assert.Equal(t, []models.Kind{models.KindConfirmAttendance24h}, kindsOf(store.inserted))
}

func TestExecute_FeedbackUsesEventEnd(t *testing.T) {
	store := &mockNotificationStore{}
	h := newTestHandler(store, reminders.ReminderConfig{Feedback: true, FeedbackDelayHours: 2})

	event := testEvent(testNow.Add(24 * time.Hour))
	event.EndsAt = event.StartsAt.Add(6 * time.Hour)
	_, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, event.EndsAt.Add(2*time.Hour), store.inserted[0].ScheduledFor)
}

func TestHandle_ParseError(t *testing.T) {
	h := newTestHandler(&mockNotificationStore{}, reminders.DefaultConfig())

	err := h.Handle(context.Background(), json.RawMessage(`{"userId": 42}`))

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeEventParseFailed, stderrors.CodeOf(err))
	assert.False(t, stderrors.IsRetryable(err))
}

func TestHandle_Success(t *testing.T) {
	store := &mockNotificationStore{}
	h := newTestHandler(store, reminders.DefaultConfig())

	event := testEvent(testNow.Add(10 * 24 * time.Hour))
	data, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), data))
	assert.Len(t, store.inserted, 5)
}
