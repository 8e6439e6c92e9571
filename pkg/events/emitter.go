// Package events emits reconciliation changes for downstream consumers
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/iris/pkg/kafka"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

const (
	PoliticianCreated = "politician.created"
	LinkCreated       = "link.created"
	AffairMerged      = "affair.merged"
	MandateClosed     = "mandate.closed"
)

// Emitter publishes reconciliation events. Emission happens after the write it
// describes has committed.
type Emitter interface {
	EmitPoliticianCreated(ctx context.Context, politician *models.Politician, source models.SourceTag) error
	EmitLinkCreated(ctx context.Context, link *models.ExternalLink) error
	EmitAffairMerged(ctx context.Context, merge MergeDetails) error
	EmitMandatesClosed(ctx context.Context, closures []models.MandateClosure) error
}

// Publisher is implemented by *kafka.Producer
type Publisher interface {
	Publish(ctx context.Context, event *kafka.Event) error
	PublishBatch(ctx context.Context, events []*kafka.Event) error
}

// MergeDetails describes an applied affair merge
type MergeDetails struct {
	SurvivorID   string `json:"survivor_id"`
	LoserID      string `json:"loser_id"`
	PoliticianID string `json:"politician_id"`
	MovedSources int    `json:"moved_sources"`
	MovedLinks   int    `json:"moved_links"`
}

// KafkaEmitter sends events through a Kafka producer
type KafkaEmitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewKafkaEmitter creates a new event emitter
func NewKafkaEmitter(publisher Publisher, logger ectologger.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		publisher: publisher,
		logger:    logger,
	}
}

func (e *KafkaEmitter) EmitPoliticianCreated(ctx context.Context, politician *models.Politician, source models.SourceTag) error {
	ctx, span := tracing.StartSpan(ctx, "events.KafkaEmitter.EmitPoliticianCreated")
	defer span.End()

	data, err := json.Marshal(politician)
	if err != nil {
		return err
	}

	event := &kafka.Event{
		EventType:  PoliticianCreated,
		EntityID:   politician.ID,
		EntityType: string(models.OwnerPolitician),
		Source:     string(source),
		Data:       data,
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", PoliticianCreated)
		return err
	}
	return nil
}

func (e *KafkaEmitter) EmitLinkCreated(ctx context.Context, link *models.ExternalLink) error {
	ctx, span := tracing.StartSpan(ctx, "events.KafkaEmitter.EmitLinkCreated")
	defer span.End()

	kind, ownerID := link.Owner()
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}

	event := &kafka.Event{
		EventType:  LinkCreated,
		EntityID:   ownerID,
		EntityType: string(kind),
		Source:     string(link.Source),
		Data:       data,
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", LinkCreated)
		return err
	}
	return nil
}

func (e *KafkaEmitter) EmitAffairMerged(ctx context.Context, merge MergeDetails) error {
	ctx, span := tracing.StartSpan(ctx, "events.KafkaEmitter.EmitAffairMerged")
	defer span.End()

	data, err := json.Marshal(merge)
	if err != nil {
		return err
	}

	event := &kafka.Event{
		EventType:  AffairMerged,
		EntityID:   merge.SurvivorID,
		EntityType: string(models.OwnerAffair),
		Related:    []string{merge.LoserID},
		Data:       data,
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", AffairMerged)
		return err
	}
	return nil
}

func (e *KafkaEmitter) EmitMandatesClosed(ctx context.Context, closures []models.MandateClosure) error {
	ctx, span := tracing.StartSpan(ctx, "events.KafkaEmitter.EmitMandatesClosed")
	defer span.End()

	batch := make([]*kafka.Event, 0, len(closures))
	for _, c := range closures {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		event := &kafka.Event{
			EventType:  MandateClosed,
			EntityID:   c.PoliticianID,
			EntityType: string(models.OwnerPolitician),
			Data:       data,
		}
		if c.SupersededBy != "" {
			event.Related = []string{c.SupersededBy}
		}
		batch = append(batch, event)
	}

	if err := e.publisher.PublishBatch(ctx, batch); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("count", len(batch)).Errorf("Failed to emit %s events", MandateClosed)
		return err
	}
	return nil
}

// Noop discards every event, used when Kafka is disabled
type Noop struct{}

func (Noop) EmitPoliticianCreated(context.Context, *models.Politician, models.SourceTag) error {
	return nil
}

func (Noop) EmitLinkCreated(context.Context, *models.ExternalLink) error { return nil }

func (Noop) EmitAffairMerged(context.Context, MergeDetails) error { return nil }

func (Noop) EmitMandatesClosed(context.Context, []models.MandateClosure) error { return nil }
