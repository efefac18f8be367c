package scheduler

import (
	"testing"

	"github.com/google/uuid"
)

func TestLeadRescoreTaskRoundTrip(t *testing.T) {
	in := LeadRescorePayload{
		LeadID:         uuid.New().String(),
		OrganizationID: uuid.New().String(),
	}

	task, err := NewLeadRescoreTask(in)
	if err != nil {
		t.Fatalf("NewLeadRescoreTask returned error: %v", err)
	}
	if task.Type() != TaskLeadRescore {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskLeadRescore)
	}

	out, err := ParseLeadRescorePayload(task)
	if err != nil {
		t.Fatalf("ParseLeadRescorePayload returned error: %v", err)
	}
	if out != in {
		t.Fatalf("payload round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestNotificationOutboxDueTaskRoundTrip(t *testing.T) {
	in := NotificationOutboxDuePayload{
		OutboxID:       uuid.New().String(),
		OrganizationID: uuid.New().String(),
	}

	task, err := NewNotificationOutboxDueTask(in)
	if err != nil {
		t.Fatalf("NewNotificationOutboxDueTask returned error: %v", err)
	}

	out, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		t.Fatalf("ParseNotificationOutboxDuePayload returned error: %v", err)
	}
	if out != in {
		t.Fatalf("payload round trip mismatch: got %+v, want %+v", out, in)
	}
}
