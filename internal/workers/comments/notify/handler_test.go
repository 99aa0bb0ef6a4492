// internal/workers/comments/notify/handler_test.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reminder-workers/internal/common/delivery"
	stderrors "reminder-workers/internal/common/errors"
	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type mockMutes struct {
	muted map[string]bool // userID/threadID
	err   error
}

func (m *mockMutes) IsThreadMuted(ctx context.Context, userID, threadID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.muted[userID+"/"+threadID], nil
}

type gatewayCall struct {
	UserID string
	Kind   models.Kind
}

type mockGateway struct {
	NotifyFunc func(ctx context.Context, userID string, payload models.Payload) (*delivery.Result, error)
	calls      []gatewayCall
}

func (m *mockGateway) Notify(ctx context.Context, userID string, payload models.Payload) (*delivery.Result, error) {
	m.calls = append(m.calls, gatewayCall{UserID: userID, Kind: payload.Kind()})
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, userID, payload)
	}
	return &delivery.Result{Success: true, Channel: "push"}, nil
}

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(mutes *mockMutes, gw *mockGateway) *Handler {
	if mutes == nil {
		mutes = &mockMutes{}
	}
	return NewHandler(LoadConfig(), mutes, gw, logger.NewNoOpLogger())
}

func topLevelComment() *models.CommentCreatedEvent {
	return &models.CommentCreatedEvent{
		CommentID:      "c-1",
		ContentType:    models.ContentEvent,
		ContentID:      "event-1",
		ContentSlug:    "summer-picnic",
		ContentTitle:   "Summer Picnic",
		ContentOwnerID: "owner-1",
		CommenterID:    "commenter-1",
		CommenterName:  "Dana",
		ThreadID:       "thread-1",
		Preview:        "see you all there!",
	}
}

func replyComment() *models.CommentCreatedEvent {
	e := topLevelComment()
	e.CommentID = "c-2"
	e.ParentCommentID = "c-1"
	e.ParentAuthorID = "parent-1"
	return e
}

// ==========================
// Core Functionality Tests
// ==========================

func TestExecute_TopLevelCommentNotifiesOwner(t *testing.T) {
	gw := &mockGateway{}
	h := newTestHandler(nil, gw)

	output, err := h.Execute(context.Background(), topLevelComment())

	require.NoError(t, err)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, "owner-1", gw.calls[0].UserID)
	assert.Equal(t, models.KindCommentOnEvent, gw.calls[0].Kind)
	assert.Equal(t, map[string]string{"owner-1": string(models.KindCommentOnEvent)}, output.Notified)
}

func TestExecute_MomentCommentUsesMomentKind(t *testing.T) {
	event := topLevelComment()
	event.ContentType = models.ContentMoment
	gw := &mockGateway{}
	h := newTestHandler(nil, gw)

	_, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, models.KindCommentOnMoment, gw.calls[0].Kind)
}

func TestExecute_OwnerCommentNotifiesNobody(t *testing.T) {
	event := topLevelComment()
	event.CommenterID = event.ContentOwnerID
	gw := &mockGateway{}
	h := newTestHandler(nil, gw)

	output, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	assert.Empty(t, gw.calls, "a comment author must never be notified about their own comment")
	assert.Empty(t, output.Notified)
}

func TestExecute_ReplyNotifiesParentAuthorAndOwner(t *testing.T) {
	gw := &mockGateway{}
	h := newTestHandler(nil, gw)

	output, err := h.Execute(context.Background(), replyComment())

	require.NoError(t, err)
	require.Len(t, gw.calls, 2)
	assert.Equal(t, gatewayCall{UserID: "parent-1", Kind: models.KindReplyToComment}, gw.calls[0])
	assert.Equal(t, gatewayCall{UserID: "owner-1", Kind: models.KindThreadActivity}, gw.calls[1])
	assert.Len(t, output.Notified, 2)
}

func TestExecute_ParentAuthorIsOwnerNotifiedOnce(t *testing.T) {
	event := replyComment()
	event.ParentAuthorID = event.ContentOwnerID
	gw := &mockGateway{}
	h := newTestHandler(nil, gw)

	output, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, gw.calls, 1, "both rules match the same person; exactly one notification")
	assert.Equal(t, models.KindReplyToComment, gw.calls[0].Kind)
	assert.Len(t, output.Notified, 1)
}

func TestExecute_SelfReplyOnlyNotifiesOwner(t *testing.T) {
	event := replyComment()
	event.ParentAuthorID = event.CommenterID
	gw := &mockGateway{}
	h := newTestHandler(nil, gw)

	_, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, gatewayCall{UserID: "owner-1", Kind: models.KindThreadActivity}, gw.calls[0])
}

// ==========================
// Mute Suppression Tests
// ==========================

func TestExecute_MutedParentAuthorIsSuppressed(t *testing.T) {
	mutes := &mockMutes{muted: map[string]bool{"parent-1/thread-1": true}}
	gw := &mockGateway{}
	h := newTestHandler(mutes, gw)

	output, err := h.Execute(context.Background(), replyComment())

	require.NoError(t, err)
	require.Len(t, gw.calls, 1, "only the owner leg should fire")
	assert.Equal(t, "owner-1", gw.calls[0].UserID)
	assert.Equal(t, 1, output.Muted)
}

func TestExecute_MutedOwnerIsSuppressed(t *testing.T) {
	mutes := &mockMutes{muted: map[string]bool{"owner-1/thread-1": true}}
	gw := &mockGateway{}
	h := newTestHandler(mutes, gw)

	output, err := h.Execute(context.Background(), topLevelComment())

	require.NoError(t, err)
	assert.Empty(t, gw.calls)
	assert.Equal(t, 1, output.Muted)
}

func TestExecute_MuteLookupErrorIsRetryable(t *testing.T) {
	mutes := &mockMutes{err: errors.New("redis down")}
	h := newTestHandler(mutes, &mockGateway{})

	_, err := h.Execute(context.Background(), topLevelComment())

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeQueryExecutionFailed, stderrors.CodeOf(err))
	assert.True(t, stderrors.IsRetryable(err))
}

// ==========================
// Edge Case Tests
// ==========================

func TestExecute_MissingReferencesIsSkipNotError(t *testing.T) {
	event := topLevelComment()
	event.ContentID = ""
	h := newTestHandler(nil, &mockGateway{})

	output, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, output.Skipped)
	assert.NotEmpty(t, output.Reason)
}

func TestExecute_ReplyWithDeletedParentStillNotifiesOwner(t *testing.T) {
	event := replyComment()
	event.ParentAuthorID = ""
	gw := &mockGateway{}
	h := newTestHandler(nil, gw)

	_, err := h.Execute(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, gatewayCall{UserID: "owner-1", Kind: models.KindThreadActivity}, gw.calls[0])
}

func TestExecute_GatewayFailureIsCountedNotPropagated(t *testing.T) {
	gw := &mockGateway{
		NotifyFunc: func(ctx context.Context, userID string, payload models.Payload) (*delivery.Result, error) {
			if userID == "parent-1" {
				return nil, errors.New("FCM unavailable")
			}
			return &delivery.Result{Success: true, Channel: "push"}, nil
		},
	}
	h := newTestHandler(nil, gw)

	output, err := h.Execute(context.Background(), replyComment())

	require.NoError(t, err)
	assert.Equal(t, 1, output.Failed)
	assert.Equal(t, map[string]string{"owner-1": string(models.KindThreadActivity)}, output.Notified)
}

func TestHandle_MalformedEventIsNonRetryable(t *testing.T) {
	h := newTestHandler(nil, &mockGateway{})

	err := h.Handle(context.Background(), json.RawMessage(`{not json`))

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeEventParseFailed, stderrors.CodeOf(err))
	assert.False(t, stderrors.IsRetryable(err))
}

func TestHandle_RoutesParsedEvent(t *testing.T) {
	gw := &mockGateway{}
	h := newTestHandler(nil, gw)
	data, err := json.Marshal(topLevelComment())
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), data))
	assert.Len(t, gw.calls, 1)
}
