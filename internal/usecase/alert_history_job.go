package usecase

import (
	"context"
	"fmt"
	"time"

	"EnergyPulse/internal/domain/models"
	drepo "EnergyPulse/internal/domain/repository"
	"EnergyPulse/internal/notify"
	"EnergyPulse/pkg/queue"
)

// AlertHistoryJob drains queued alert events into the history store. Failed
// writes are retried by the queue and eventually dead-lettered.
type AlertHistoryJob struct {
	store drepo.AlertStore
}

// NewAlertHistoryJob creates the job.
func NewAlertHistoryJob(store drepo.AlertStore) *AlertHistoryJob {
	return &AlertHistoryJob{store: store}
}

// Name implements queue.Job.
func (j *AlertHistoryJob) Name() string { return "alert-history-writer" }

// Type implements queue.Job.
func (j *AlertHistoryJob) Type() string { return notify.AlertMessageType }

// Handle implements queue.Job.
func (j *AlertHistoryJob) Handle(ctx context.Context, payload interface{}) error {
	e, err := queue.ParsePayload[models.AlertEvent](payload)
	if err != nil {
		return fmt.Errorf("alert payload: %w", err)
	}
	if e.TriggeredAt.IsZero() {
		e.TriggeredAt = time.Now()
	}
	return j.store.Store(ctx, e)
}

var _ queue.Job = (*AlertHistoryJob)(nil)
