package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/mocks"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/config"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/relationaldb/sqlite"
)

func TestClaimService_ConcurrentDuplicatesOnSQLite(t *testing.T) {
	ctx := context.Background()
	log := logger.Nop()
	m := metrics.New()

	db, err := sqlite.NewRepository(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "claims.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema(ctx))
	require.NoError(t, db.SaveUser(ctx, &entities.User{
		ID: submitterID, Email: "reader@example.org", Role: entities.RoleUser, Status: entities.UserActive,
	}))

	effects := NewEffects(log, m)
	t.Cleanup(effects.Wait)
	categories := NewCategoryService(db)
	require.NoError(t, categories.LoadDefaults(ctx))
	claims := NewClaimService(
		db,
		&mocks.JobQueue{},
		categories,
		NewSimilarityDetector(db, nil, nil, 0, 0, log),
		nil,
		NewNotificationDispatcher(db, nil, log, m),
		NewStateMachine(db, m),
		effects,
		log,
	)

	const n = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  []string
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := claims.Submit(ctx, SubmitInput{
				SubmitterID: submitterID,
				Title:       "Ballot boxes were stuffed in the northern district",
				Category:    "politics",
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids = append(ids, res.Claim.ID)
		}()
	}
	wg.Wait()
	effects.Wait()

	require.Empty(t, errs)
	require.Len(t, ids, n)

	stored, err := db.FindClaimsByIDs(ctx, ids)
	require.NoError(t, err)
	require.Len(t, stored, n)
	for _, c := range stored {
		assert.Equal(t, n, c.SubmissionCount, c.ID)
	}
}

// auditFailingDB fails every audit write.
type auditFailingDB struct {
	*sqlite.Repository
}

func (auditFailingDB) LogAction(context.Context, string, string, map[string]any) error {
	return errors.New("audit log unavailable")
}

func TestStateMachine_AuditFailureRollsBackTransition(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchema(ctx))

	now := time.Now().UTC()
	require.NoError(t, repo.SaveClaim(ctx, &entities.Claim{
		ID:              "c1",
		SubmitterID:     submitterID,
		Title:           "Fuel prices will double next month",
		Category:        "economy",
		Status:          entities.StatusPending,
		Priority:        entities.PriorityMedium,
		SubmissionCount: 1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}))

	machine := NewStateMachine(auditFailingDB{repo}, metrics.New())
	_, err = machine.Transition(ctx, "c1", entities.StatusAIProcessing, "tester")
	require.ErrorContains(t, err, "logging transition")

	claim, err := repo.FindClaimByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusPending, claim.Status)
}
