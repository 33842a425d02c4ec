package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
)

const (
	// DefaultTrendingThreshold is the submission count at which claims trend.
	DefaultTrendingThreshold = 10
	// DefaultEngagementMultiplier scales submission count into engagement.
	DefaultEngagementMultiplier = 5.0
	// DecayWindow is the age at which scores reach zero.
	DecayWindow = 168 * time.Hour
	// MaxEngagement caps topic engagement.
	MaxEngagement = 100.0
	// advisoryClaimTitles bounds the titles sent for advisory drafting.
	advisoryClaimTitles = 10
)

// TrendingScore is (count*10 + priority bonus) scaled by a linear decay that
// reaches zero DecayWindow after submission.
func TrendingScore(submissionCount int, priority entities.Priority, age time.Duration) float64 {
	return (float64(submissionCount)*10 + priority.TrendingBonus()) * decayFactor(age)
}

// EngagementScore is the category-weighted topic engagement, capped at
// MaxEngagement.
func EngagementScore(submissionCount int, weight, multiplier float64) float64 {
	return math.Min(MaxEngagement, float64(submissionCount)*multiplier*weight)
}

func decayFactor(age time.Duration) float64 {
	f := 1 - age.Hours()/DecayWindow.Hours()
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// TrendingDetector groups high-volume claims into topics and scores them.
type TrendingDetector struct {
	relationalDB ports.RelationalDB
	categories   *CategoryService
	queue        ports.JobQueue
	notifier     *NotificationDispatcher
	generator    ports.ContentGenerator
	log          *logger.Logger
	threshold    int
	multiplier   float64

	// mu serializes topic upserts so one label maps to one topic.
	mu sync.Mutex
}

// NewTrendingDetector creates a detector. generator may be nil when advisory
// drafting is disabled.
func NewTrendingDetector(
	relationalDB ports.RelationalDB,
	categories *CategoryService,
	queue ports.JobQueue,
	notifier *NotificationDispatcher,
	generator ports.ContentGenerator,
	threshold int,
	multiplier float64,
	log *logger.Logger,
) *TrendingDetector {
	if threshold <= 0 {
		threshold = DefaultTrendingThreshold
	}
	if multiplier <= 0 {
		multiplier = DefaultEngagementMultiplier
	}
	return &TrendingDetector{
		relationalDB: relationalDB,
		categories:   categories,
		queue:        queue,
		notifier:     notifier,
		generator:    generator,
		log:          log,
		threshold:    threshold,
		multiplier:   multiplier,
	}
}

// Evaluate rescores a group of merged claims. Once the group's submission
// count reaches the threshold every claim in it is flagged trending and the
// group is folded into its topic.
func (d *TrendingDetector) Evaluate(ctx context.Context, claimIDs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	claims, err := d.relationalDB.FindClaimsByIDs(ctx, claimIDs)
	if err != nil {
		return fmt.Errorf("loading claims: %w", err)
	}
	if len(claims) == 0 {
		return nil
	}

	maxCount := 0
	for _, c := range claims {
		if c.SubmissionCount > maxCount {
			maxCount = c.SubmissionCount
		}
	}
	if maxCount < d.threshold {
		return nil
	}

	now := timeNow().UTC()
	for _, c := range claims {
		score := TrendingScore(c.SubmissionCount, c.Priority, now.Sub(c.CreatedAt))
		if err := d.relationalDB.SetClaimTrending(ctx, c.ID, score > 0, score); err != nil {
			return fmt.Errorf("flagging claim %s trending: %w", c.ID, err)
		}
	}

	sort.Slice(claims, func(i, j int) bool { return claims[i].CreatedAt.Before(claims[j].CreatedAt) })
	return d.upsertTopic(ctx, claims, maxCount, now)
}

func (d *TrendingDetector) upsertTopic(ctx context.Context, claims []*entities.Claim, count int, now time.Time) error {
	anchor := claims[0]
	key := anchor.SimilarityHash
	if key == "" {
		key = SimilarityHash(anchor.Title)
	}

	topic, err := d.relationalDB.FindTopicByLabel(ctx, key)
	if err != nil {
		return fmt.Errorf("finding topic: %w", err)
	}
	if topic == nil {
		topic = &entities.TrendingTopic{
			ID:              uuid.New().String(),
			Label:           anchor.Title,
			NormalizedLabel: key,
			Category:        anchor.Category,
			DetectedAt:      now,
		}
		d.log.Info("trending topic detected", "topic_id", topic.ID, "label", topic.Label)
	}

	ids := make([]string, len(claims))
	for i, c := range claims {
		ids[i] = c.ID
	}
	topic.AddClaims(ids...)

	cat, err := d.categories.Resolve(ctx, topic.Category)
	if err != nil {
		return err
	}
	topic.BaseEngagement = math.Max(topic.BaseEngagement, EngagementScore(count, cat.Weight, d.multiplier))
	topic.EngagementScore = topic.BaseEngagement
	topic.LastActivityAt = now
	topic.IsHighRisk = topic.EngagementScore > cat.RiskThreshold

	raiseAlert := false
	if topic.IsHighRisk && !topic.AdvisoryRequested {
		job, err := entities.NewAdvisoryJob(entities.AdvisoryPayload{TopicID: topic.ID})
		if err != nil {
			return err
		}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			d.log.Warn("enqueueing advisory job failed", "topic_id", topic.ID, "error", err)
		} else {
			topic.AdvisoryRequested = true
			raiseAlert = true
		}
	}

	if err := d.relationalDB.SaveTopic(ctx, topic); err != nil {
		return fmt.Errorf("saving topic: %w", err)
	}

	if raiseAlert && d.notifier != nil {
		if err := d.notifier.NotifyTrending(ctx, topic); err != nil {
			return fmt.Errorf("alerting admins: %w", err)
		}
	}
	return nil
}

// RefreshResult summarizes a decay pass.
type RefreshResult struct {
	ClaimsRescored int
	ClaimsCooled   int
	TopicsDecayed  int
	TopicsExpired  int
}

// Refresh applies time decay. Claims whose score reaches zero stop trending;
// topics whose engagement falls below one are deleted.
func (d *TrendingDetector) Refresh(ctx context.Context) (*RefreshResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := timeNow().UTC()
	result := &RefreshResult{}

	claims, err := d.relationalDB.ListClaims(ctx, entities.ClaimFilter{TrendingOnly: true})
	if err != nil {
		return nil, fmt.Errorf("listing trending claims: %w", err)
	}
	for _, c := range claims {
		score := TrendingScore(c.SubmissionCount, c.Priority, now.Sub(c.CreatedAt))
		if score <= 0 {
			if err := d.relationalDB.SetClaimTrending(ctx, c.ID, false, 0); err != nil {
				return nil, fmt.Errorf("cooling claim %s: %w", c.ID, err)
			}
			result.ClaimsCooled++
			continue
		}
		if err := d.relationalDB.SetClaimTrending(ctx, c.ID, true, score); err != nil {
			return nil, fmt.Errorf("rescoring claim %s: %w", c.ID, err)
		}
		result.ClaimsRescored++
	}

	topics, err := d.relationalDB.ListTopics(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	for i := range topics {
		t := &topics[i]
		engagement := t.BaseEngagement * decayFactor(now.Sub(t.LastActivityAt))
		if engagement < 1 {
			if err := d.relationalDB.DeleteTopic(ctx, t.ID); err != nil {
				return nil, fmt.Errorf("expiring topic %s: %w", t.ID, err)
			}
			d.log.Info("trending topic expired", "topic_id", t.ID, "label", t.Label)
			result.TopicsExpired++
			continue
		}
		cat, err := d.categories.Resolve(ctx, t.Category)
		if err != nil {
			return nil, err
		}
		t.EngagementScore = engagement
		t.IsHighRisk = engagement > cat.RiskThreshold
		if err := d.relationalDB.SaveTopic(ctx, t); err != nil {
			return nil, fmt.Errorf("saving topic %s: %w", t.ID, err)
		}
		result.TopicsDecayed++
	}
	return result, nil
}

// List returns topics by engagement, highest first.
func (d *TrendingDetector) List(ctx context.Context, limit int) ([]entities.TrendingTopic, error) {
	return d.relationalDB.ListTopics(ctx, limit)
}

// WriteAdvisory drafts and stores advisory content for a topic. A topic that
// already has an advisory returns it unchanged.
func (d *TrendingDetector) WriteAdvisory(ctx context.Context, topicID string) (*entities.Advisory, error) {
	topic, err := d.relationalDB.FindTopicByID(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("finding topic: %w", err)
	}
	if topic == nil {
		return nil, &entities.NotFoundError{Entity: "trending_topic", ID: topicID}
	}

	existing, err := d.relationalDB.FindAdvisoryByTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("finding advisory: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	if d.generator == nil {
		return nil, &entities.ExternalServiceError{Service: "content", Kind: entities.ExternalUnexpected, Err: fmt.Errorf("no content generator configured")}
	}

	ids := topic.ClaimIDs
	if len(ids) > advisoryClaimTitles {
		ids = ids[:advisoryClaimTitles]
	}
	claims, err := d.relationalDB.FindClaimsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading topic claims: %w", err)
	}
	titles := make([]string, 0, len(claims))
	for _, c := range claims {
		titles = append(titles, c.Title)
	}

	draft, err := d.generator.GenerateAdvisory(ctx, ports.AdvisoryRequest{
		TopicLabel:      topic.Label,
		Category:        topic.Category,
		EngagementScore: topic.EngagementScore,
		ClaimTitles:     titles,
	})
	if err != nil {
		var ext *entities.ExternalServiceError
		if errors.As(err, &ext) {
			return nil, err
		}
		return nil, &entities.ExternalServiceError{Service: "content", Kind: entities.ExternalTransport, Err: err}
	}

	advisory := &entities.Advisory{
		ID:        uuid.New().String(),
		TopicID:   topic.ID,
		Title:     draft.Title,
		Body:      draft.Body,
		Model:     draft.Model,
		CreatedAt: timeNow().UTC(),
	}
	if err := d.relationalDB.SaveAdvisory(ctx, advisory); err != nil {
		return nil, fmt.Errorf("saving advisory: %w", err)
	}
	d.log.Info("advisory generated", "topic_id", topic.ID, "advisory_id", advisory.ID)
	return advisory, nil
}
