// Package scheduler queues and processes background jobs: outbox
// delivery and lead rescoring after rule changes.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskLeadRescore = "leads.rescore"

type NotificationOutboxDuePayload struct {
	OutboxID       string `json:"outboxId"`
	OrganizationID string `json:"organizationId"`
}

type LeadRescorePayload struct {
	LeadID         string `json:"leadId"`
	OrganizationID string `json:"organizationId"`
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewLeadRescoreTask(payload LeadRescorePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadRescore, data), nil
}

func ParseLeadRescorePayload(task *asynq.Task) (LeadRescorePayload, error) {
	var payload LeadRescorePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadRescorePayload{}, err
	}
	return payload, nil
}
