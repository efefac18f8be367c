// Package service drains the notification outbox and delivers messages
// to external channels.
package service

import (
	"context"
	"encoding/json"
	"time"

	"mentorcrm_backend/internal/notification/outbox"
	"mentorcrm_backend/internal/whatsapp"
	"mentorcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const dispatchBatchSize = 25

// Dispatcher delivers claimed outbox records. Delivery runs outside every
// business transaction; a channel failure only reschedules the record.
type Dispatcher struct {
	outbox   *outbox.Repository
	whatsapp *whatsapp.Client
	log      *logger.Logger
}

func NewDispatcher(ob *outbox.Repository, wa *whatsapp.Client, log *logger.Logger) *Dispatcher {
	return &Dispatcher{outbox: ob, whatsapp: wa, log: log}
}

// messagePayload is the delivery envelope written by the producing
// transactions. Records without a phone have no external channel and
// succeed immediately.
type messagePayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// DispatchDue claims due pending records and attempts delivery for each.
// Returns the number of records that were delivered or settled.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	records, err := d.outbox.ClaimPending(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		if d.dispatchOne(ctx, record) {
			settled++
		}
	}
	return settled, nil
}

// DeliverByID delivers one claimed record. Used by the job worker, which
// receives record IDs through the task queue. Records that already
// reached a final state are left untouched.
func (d *Dispatcher) DeliverByID(ctx context.Context, recordID uuid.UUID) error {
	record, err := d.outbox.Get(ctx, recordID)
	if err != nil {
		return err
	}
	if record.Status == outbox.StatusSucceeded || record.Status == outbox.StatusFailed {
		return nil
	}
	d.dispatchOne(ctx, record)
	return nil
}

// Run drains the outbox on a fixed interval. The fallback delivery path
// for deployments without a job queue.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := d.DispatchDue(ctx); err != nil {
			d.log.Warn("outbox dispatch pass failed", "error", err)
		}
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, record outbox.Record) bool {
	if err := d.outbox.MarkProcessing(ctx, record.ID); err != nil {
		d.log.Error("failed to mark outbox record processing", "record_id", record.ID, "error", err)
		return false
	}
	attempts := record.Attempts + 1

	var payload messagePayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		d.log.Error("outbox record has malformed payload", "record_id", record.ID, "error", err)
		d.retry(ctx, record, attempts, "malformed payload: "+err.Error())
		return false
	}

	if payload.Phone != "" && payload.Message != "" {
		if err := d.whatsapp.SendMessage(ctx, payload.Phone, payload.Message); err != nil {
			d.log.Warn("whatsapp delivery failed",
				"record_id", record.ID,
				"event_type", record.EventType,
				"attempts", attempts,
				"error", err,
			)
			d.retry(ctx, record, attempts, err.Error())
			return false
		}
	}

	if err := d.outbox.MarkSucceeded(ctx, record.ID); err != nil {
		d.log.Error("failed to mark outbox record succeeded", "record_id", record.ID, "error", err)
		return false
	}

	d.log.Info("notification dispatched", "record_id", record.ID, "event_type", record.EventType)
	return true
}

func (d *Dispatcher) retry(ctx context.Context, record outbox.Record, attempts int, lastError string) {
	if err := d.outbox.MarkRetry(ctx, record.ID, attempts, lastError); err != nil {
		d.log.Error("failed to reschedule outbox record", "record_id", record.ID, "error", err)
	}
}
