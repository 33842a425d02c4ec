package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/mocks"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
)

const (
	submitterID = "user-1"
	checkerID   = "checker-1"
	checker2ID  = "checker-2"
	adminID     = "admin-1"
)

// harness wires every service over in-memory mocks.
type harness struct {
	db        *mocks.RelationalDB
	queue     *mocks.JobQueue
	locker    *mocks.Locker
	llm       *mocks.LLMClient
	generator *mocks.ContentGenerator
	index     *mocks.ClaimIndex
	embedder  *mocks.Embedder
	channel   *mocks.Channel
	metrics   *metrics.Metrics

	effects    *Effects
	machine    *StateMachine
	categories *CategoryService
	similarity *SimilarityDetector
	notifier   *NotificationDispatcher
	trending   *TrendingDetector
	claims     *ClaimService
	finalizer  *VerdictFinalizer
	review     *ReviewService
	users      *UserService
	processor  *AIProcessor

	seq int
}

// sampleTitles are unrelated enough that no two of them merge.
var sampleTitles = []string{
	"The city water supply has been declared unsafe to drink",
	"Fuel prices will double at the start of next month",
	"The national exam results were leaked before release",
	"A new law bans motorcycles from the capital",
	"Scientists discovered a cure for the common cold",
	"The central bank is printing a new banknote series",
	"Schools will close for an extra month this year",
	"A celebrity footballer has retired from international play",
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	h := &harness{
		db:        mocks.NewRelationalDB(),
		queue:     &mocks.JobQueue{},
		locker:    mocks.NewLocker(),
		llm:       &mocks.LLMClient{Model: "gpt-test"},
		generator: &mocks.ContentGenerator{},
		index:     mocks.NewClaimIndex(),
		embedder:  &mocks.Embedder{EmbeddingResult: []float32{0.1, 0.2, 0.3}},
		channel:   &mocks.Channel{ChannelName: "email", Gate: func(u *entities.User) bool { return u.EmailNotifications }},
		metrics:   metrics.New(),
	}

	h.effects = NewEffects(log, h.metrics)
	h.machine = NewStateMachine(h.db, h.metrics)
	h.categories = NewCategoryService(h.db)
	require.NoError(t, h.categories.LoadDefaults(ctx))
	h.similarity = NewSimilarityDetector(h.db, h.embedder, h.index, 0, 0, log)
	h.notifier = NewNotificationDispatcher(h.db, []ports.Channel{h.channel}, log, h.metrics)
	h.trending = NewTrendingDetector(h.db, h.categories, h.queue, h.notifier, h.generator, 0, 0, log)
	h.claims = NewClaimService(h.db, h.queue, h.categories, h.similarity, h.trending, h.notifier, h.machine, h.effects, log)
	h.finalizer = NewVerdictFinalizer(h.db, h.machine, h.notifier, h.trending, h.similarity, h.effects, log)
	h.review = NewReviewService(h.db, h.machine, h.finalizer, h.claims, h.notifier, h.effects, 0, log)
	h.users = NewUserService(h.db, h.machine, log)
	h.processor = NewAIProcessor(h.db, h.llm, h.locker, h.machine, DefaultConfidenceThreshold, 0, log, h.metrics)

	for _, u := range []entities.User{
		{ID: submitterID, Email: "reader@example.org", Role: entities.RoleUser, Status: entities.UserActive, EmailNotifications: true},
		{ID: checkerID, Email: "fc1@example.org", Role: entities.RoleFactChecker, Status: entities.UserActive},
		{ID: checker2ID, Email: "fc2@example.org", Role: entities.RoleFactChecker, Status: entities.UserActive},
		{ID: adminID, Email: "admin@example.org", Role: entities.RoleAdmin, Status: entities.UserActive},
	} {
		user := u
		require.NoError(t, h.db.SaveUser(ctx, &user))
	}

	t.Cleanup(h.effects.Wait)
	return h
}

// putClaim stores a claim directly in the given status. Each call gets a
// title unrelated to the previous ones.
func (h *harness) putClaim(t *testing.T, id string, status entities.ClaimStatus) *entities.Claim {
	t.Helper()
	now := time.Now().UTC()
	title := sampleTitles[h.seq%len(sampleTitles)]
	h.seq++
	c := &entities.Claim{
		ID:              id,
		SubmitterID:     submitterID,
		Title:           title,
		Category:        "health",
		Status:          status,
		Priority:        entities.PriorityMedium,
		SubmissionCount: 1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	c.SimilarityHash = SimilarityHash(c.Title)
	require.NoError(t, h.db.SaveClaim(context.Background(), c))
	return c
}

// putAIVerdict stores an AI verdict and links it to the claim.
func (h *harness) putAIVerdict(t *testing.T, claimID string, label entities.VerdictLabel, confidence float64) *entities.AIVerdict {
	t.Helper()
	ctx := context.Background()
	v := &entities.AIVerdict{
		ID:              "ai-" + claimID,
		ClaimID:         claimID,
		Verdict:         label,
		ConfidenceScore: confidence,
		Explanation:     "The ministry published figures that contradict this.",
		Sources:         []string{"https://health.example.org/report"},
		ModelVersion:    "gpt-test",
		ParseMode:       entities.ParseStrict,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, h.db.SaveAIVerdict(ctx, v))
	require.NoError(t, h.db.SetClaimAIVerdict(ctx, claimID, v.ID))
	return v
}

// freezeTime pins timeNow for the duration of the test.
func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = prev })
}
