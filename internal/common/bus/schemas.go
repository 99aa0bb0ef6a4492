// internal/common/bus/schemas.go
package bus

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	stderrors "reminder-workers/internal/common/errors"
	"reminder-workers/internal/models"
)

// Event payload schemas, by event name. Validation happens before a
// handler sees the bytes; a violating message is poison, not retryable.
var eventSchemas = map[string]string{
	models.EventRSVPCreated: `{
		"type": "object",
		"required": ["userId", "eventId", "eventTitle", "eventSlug", "startsAt"],
		"properties": {
			"userId":        {"type": "string", "minLength": 1},
			"locale":        {"type": "string"},
			"eventId":       {"type": "string", "minLength": 1},
			"eventTitle":    {"type": "string", "minLength": 1},
			"eventSlug":     {"type": "string", "minLength": 1},
			"startsAt":      {"type": "string", "format": "date-time"},
			"endsAt":        {"type": "string", "format": "date-time"},
			"locationName":  {"type": "string"},
			"googleMapsUrl": {"type": "string"}
		}
	}`,
	models.EventRSVPInterested: `{
		"type": "object",
		"required": ["userId", "eventId", "eventTitle", "eventSlug", "startsAt"],
		"properties": {
			"userId":     {"type": "string", "minLength": 1},
			"locale":     {"type": "string"},
			"eventId":    {"type": "string", "minLength": 1},
			"eventTitle": {"type": "string", "minLength": 1},
			"eventSlug":  {"type": "string", "minLength": 1},
			"startsAt":   {"type": "string", "format": "date-time"}
		}
	}`,
	models.EventRSVPCancelled: `{
		"type": "object",
		"required": ["userId", "eventId"],
		"properties": {
			"userId":  {"type": "string", "minLength": 1},
			"eventId": {"type": "string", "minLength": 1}
		}
	}`,
	models.EventCommentCreated: `{
		"type": "object",
		"required": ["commentId", "contentType", "contentId", "contentOwnerId", "commenterId", "threadId"],
		"properties": {
			"commentId":       {"type": "string", "minLength": 1},
			"contentType":     {"type": "string", "enum": ["event", "moment"]},
			"contentId":       {"type": "string", "minLength": 1},
			"contentSlug":     {"type": "string"},
			"contentTitle":    {"type": "string"},
			"contentOwnerId":  {"type": "string", "minLength": 1},
			"commenterId":     {"type": "string", "minLength": 1},
			"commenterName":   {"type": "string"},
			"parentCommentId": {"type": "string"},
			"parentAuthorId":  {"type": "string"},
			"threadId":        {"type": "string", "minLength": 1},
			"preview":         {"type": "string"},
			"locale":          {"type": "string"}
		}
	}`,
}

var compiledSchemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(eventSchemas))
	for name, raw := range eventSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("invalid schema for %s: %v", name, err))
		}
		out[name] = schema
	}
	return out
}

// ValidateEvent checks an event body against its schema. Events without a
// schema pass through.
func ValidateEvent(eventName string, body []byte) error {
	schema, ok := compiledSchemas[eventName]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return stderrors.NewEventParseError(err.Error())
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return stderrors.NewEventValidationError(strings.Join(msgs, "; "))
}
