// internal/common/delivery/render.go
package delivery

import (
	"fmt"
	"strings"
	"time"

	"reminder-workers/internal/models"
)

// Message is the rendered, channel-agnostic form of a payload.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

var templates = map[models.Kind]struct {
	title string
	body  string
}{
	models.KindConfirmAttendance7d:  {"{{eventTitle}} is a week away", "You're going to {{eventTitle}} on {{startsAt}}. Tap to confirm you're still in."},
	models.KindConfirmAttendance24h: {"{{eventTitle}} is tomorrow", "{{eventTitle}} starts {{startsAt}}{{atLocation}}. Confirm your attendance."},
	models.KindFinalReminder2h:      {"{{eventTitle}} starts in 2 hours", "Starting soon{{atLocation}}. See you there!"},
	models.KindEventStartingNudge:   {"{{eventTitle}} has started", "{{eventTitle}} just kicked off. Are you there?"},
	models.KindFeedbackRequest:      {"How was {{eventTitle}}?", "Tell the organizers how {{eventTitle}} went."},
	models.KindEventReminder:        {"{{eventTitle}} is tomorrow", "An event you're interested in, {{eventTitle}}, starts {{startsAt}}."},
	models.KindCommentOnEvent:       {"New comment on {{contentTitle}}", "{{commenterName}}: {{preview}}"},
	models.KindCommentOnMoment:      {"New comment on your moment", "{{commenterName}}: {{preview}}"},
	models.KindReplyToComment:       {"{{commenterName}} replied to you", "{{commenterName}}: {{preview}}"},
	models.KindThreadActivity:       {"New activity on {{contentTitle}}", "{{commenterName}} joined the conversation: {{preview}}"},
}

// Render turns a payload into a deliverable message. The switch over
// payload variants is exhaustive; an unknown variant is a data error.
func Render(p models.Payload) (*Message, error) {
	tmpl, ok := templates[p.Kind()]
	if !ok {
		return nil, fmt.Errorf("no template for notification kind %q", p.Kind())
	}

	var data map[string]string
	switch v := p.(type) {
	case models.EventReminderPayload:
		data = map[string]string{
			"eventTitle": v.EventTitle,
			"eventId":    v.EventID,
			"eventSlug":  v.EventSlug,
			"startsAt":   v.StartsAt.Format(time.RFC1123),
			"atLocation": locationSuffix(v.LocationName),
		}
	case models.StartingNudgePayload:
		data = map[string]string{
			"eventTitle": v.EventTitle,
			"eventId":    v.EventID,
			"eventSlug":  v.EventSlug,
		}
	case models.FeedbackRequestPayload:
		data = map[string]string{
			"eventTitle": v.EventTitle,
			"eventId":    v.EventID,
			"eventSlug":  v.EventSlug,
		}
	case models.CommentPayload:
		data = map[string]string{
			"contentTitle":  v.ContentTitle,
			"contentId":     v.ContentID,
			"contentSlug":   v.ContentSlug,
			"commenterName": v.CommenterName,
			"preview":       v.Preview,
		}
	default:
		return nil, fmt.Errorf("unknown payload variant %T", p)
	}

	return &Message{
		Title: renderTemplate(tmpl.title, data),
		Body:  renderTemplate(tmpl.body, data),
		Data:  data,
	}, nil
}

func locationSuffix(name string) string {
	if name == "" {
		return ""
	}
	return " at " + name
}

// renderTemplate substitutes {{key}} placeholders; unknown placeholders
// collapse to the empty string.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	for {
		start := strings.Index(result, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end < 0 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
