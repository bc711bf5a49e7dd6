// Package usersink forwards registry activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-msr/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// PrincipalNamespace seeds the name-based UUIDs derived for principals that
// are not UUIDs themselves (account addresses, for example).
var PrincipalNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:msr:principal"))

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := map[string]any{}
	for key, value := range normalized.Metadata {
		data[key] = value
	}
	if normalized.ActorID != "" {
		data["principal"] = normalized.ActorID
	}
	if normalized.MsrID != "" {
		data["msr_id"] = normalized.MsrID
	}

	record := usertypes.ActivityRecord{
		ActorID:    PrincipalUUID(normalized.ActorID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	return h.Sink.Log(ctx, record)
}

// PrincipalUUID returns the principal itself when it parses as a UUID and a
// stable name-based UUID otherwise. Empty principals map to uuid.Nil.
func PrincipalUUID(principal string) uuid.UUID {
	value := strings.TrimSpace(principal)
	if value == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(value); err == nil {
		return id
	}
	return uuid.NewSHA1(PrincipalNamespace, []byte(strings.ToLower(value)))
}
