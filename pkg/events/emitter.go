// Package events emits recovery lifecycle events. Emission is best-effort:
// a publish failure is logged but never fails the request that caused it.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/fernhealth/fern/pkg/kafka"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/tracing"
)

// Publisher is the producer surface the emitter needs.
type Publisher interface {
	PublishRecoveryEvent(ctx context.Context, event *kafka.RecoveryEvent) error
}

// Emitter publishes relapse and link lifecycle events
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRelapseReported emits relapse.reported
func (e *Emitter) EmitRelapseReported(ctx context.Context, relapse *models.Relapse) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRelapseReported")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": kafka.SchemaVersion,
		"relapse_id":     relapse.ID,
		"relapse_date":   relapse.RelapseDate.String(),
	})

	e.publish(ctx, &kafka.RecoveryEvent{
		EventType: kafka.EventRelapseReported,
		SubjectID: relapse.OwnerID,
		Data:      data,
	})
}

// EmitLinkRequested emits link.requested
func (e *Emitter) EmitLinkRequested(ctx context.Context, request *models.LinkRequest) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitLinkRequested")
	defer span.End()

	e.publishLinkEvent(ctx, kafka.EventLinkRequested, request.ObserverID, request.SubjectID, request.ID)
}

// EmitLinkApproved emits link.approved
func (e *Emitter) EmitLinkApproved(ctx context.Context, request *models.LinkRequest) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitLinkApproved")
	defer span.End()

	e.publishLinkEvent(ctx, kafka.EventLinkApproved, request.ObserverID, request.SubjectID, request.ID)
}

// EmitLinkRejected emits link.rejected
func (e *Emitter) EmitLinkRejected(ctx context.Context, request *models.LinkRequest) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitLinkRejected")
	defer span.End()

	e.publishLinkEvent(ctx, kafka.EventLinkRejected, request.ObserverID, request.SubjectID, request.ID)
}

// EmitLinkCreated emits link.approved for a clinician direct link, which has
// no request phase.
func (e *Emitter) EmitLinkCreated(ctx context.Context, link *models.Link) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitLinkCreated")
	defer span.End()

	e.publishLinkEvent(ctx, kafka.EventLinkApproved, link.ObserverID, link.SubjectID, link.ID)
}

// EmitLinkRemoved emits link.removed
func (e *Emitter) EmitLinkRemoved(ctx context.Context, observerID, subjectID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitLinkRemoved")
	defer span.End()

	e.publish(ctx, &kafka.RecoveryEvent{
		EventType:  kafka.EventLinkRemoved,
		SubjectID:  subjectID,
		ObserverID: observerID,
	})
}

func (e *Emitter) publishLinkEvent(ctx context.Context, eventType, observerID, subjectID, refID string) {
	data, _ := json.Marshal(map[string]any{
		"schema_version": kafka.SchemaVersion,
		"ref_id":         refID,
	})

	e.publish(ctx, &kafka.RecoveryEvent{
		EventType:  eventType,
		SubjectID:  subjectID,
		ObserverID: observerID,
		Data:       data,
	})
}

func (e *Emitter) publish(ctx context.Context, event *kafka.RecoveryEvent) {
	if e.producer == nil {
		return
	}
	if err := e.producer.PublishRecoveryEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": event.EventType,
		}).Error("Failed to publish recovery event")
	}
}
