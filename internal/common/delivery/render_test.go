// internal/common/delivery/render_test.go
package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reminder-workers/internal/models"
)

func TestRender_EventReminderWithLocation(t *testing.T) {
	msg, err := Render(models.EventReminderPayload{
		Type:         models.KindConfirmAttendance24h,
		EventID:      "event-1",
		EventTitle:   "Summer Picnic",
		StartsAt:     time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		LocationName: "Vondelpark",
	})

	require.NoError(t, err)
	assert.Equal(t, "Summer Picnic is tomorrow", msg.Title)
	assert.Contains(t, msg.Body, "at Vondelpark")
	assert.Equal(t, "event-1", msg.Data["eventId"])
}

func TestRender_MissingLocationLeavesNoPlaceholder(t *testing.T) {
	msg, err := Render(models.EventReminderPayload{
		Type:       models.KindFinalReminder2h,
		EventTitle: "Summer Picnic",
		StartsAt:   time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "{{")
	assert.NotContains(t, msg.Body, "}}")
}

func TestRender_CommentKinds(t *testing.T) {
	payload := models.CommentPayload{
		Type:          models.KindReplyToComment,
		ContentTitle:  "Summer Picnic",
		CommenterName: "Dana",
		Preview:       "count me in!",
	}

	msg, err := Render(payload)

	require.NoError(t, err)
	assert.Equal(t, "Dana replied to you", msg.Title)
	assert.Equal(t, "Dana: count me in!", msg.Body)
}

func TestRender_EveryKindHasATemplate(t *testing.T) {
	kinds := []models.Kind{
		models.KindConfirmAttendance7d,
		models.KindConfirmAttendance24h,
		models.KindFinalReminder2h,
		models.KindEventStartingNudge,
		models.KindFeedbackRequest,
		models.KindEventReminder,
		models.KindCommentOnEvent,
		models.KindCommentOnMoment,
		models.KindReplyToComment,
		models.KindThreadActivity,
	}
	for _, kind := range kinds {
		_, ok := templates[kind]
		assert.True(t, ok, "missing template for %s", kind)
	}
}
