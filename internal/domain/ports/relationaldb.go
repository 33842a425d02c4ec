package ports

import (
	"context"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// RelationalDB is the durable store for the verification workflow. Finder
// methods return (nil, nil) when nothing matches; services turn that into a
// NotFoundError.
//
// Claim status is never written by SaveClaim or the SetClaim* setters. It
// only moves through TransitionClaim, a compare-and-set on the current status.
type RelationalDB interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// WithinTx runs fn in a transaction. Store calls made with the context
	// passed to fn join that transaction. Nested calls reuse the outer one.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Claim operations

	// SaveClaim inserts a new claim, including its initial status.
	SaveClaim(ctx context.Context, claim *entities.Claim) error

	// SetClaimAIVerdict points the claim at its latest AI verdict.
	SetClaimAIVerdict(ctx context.Context, id, aiVerdictID string) error

	// SetClaimHumanVerdict sets the human verdict pointer and published_at.
	// An empty verdictID clears the pointer.
	SetClaimHumanVerdict(ctx context.Context, id, verdictID string, publishedAt *time.Time) error

	// SetClaimTrending stores the trending flag and score.
	SetClaimTrending(ctx context.Context, id string, trending bool, score float64) error

	// MarkClaimVerdictRead stamps verdict_read_at if unset and sets
	// verdict_notified. Reports whether the stamp was written.
	MarkClaimVerdictRead(ctx context.Context, id string, at time.Time) (bool, error)

	// ResetClaimVerdictRead clears verdict_read_at and verdict_notified.
	ResetClaimVerdictRead(ctx context.Context, id string) error

	// FindClaimByID finds a claim by its ID.
	FindClaimByID(ctx context.Context, id string) (*entities.Claim, error)

	// FindClaimsByIDs finds the claims with the given IDs, skipping unknown ones.
	FindClaimsByIDs(ctx context.Context, ids []string) ([]*entities.Claim, error)

	// FindClaimsBySimilarityHash finds non-terminal claims sharing a hash.
	FindClaimsBySimilarityHash(ctx context.Context, hash string) ([]*entities.Claim, error)

	// ListClaims lists claims matching the filter, newest first.
	ListClaims(ctx context.Context, filter entities.ClaimFilter) ([]*entities.Claim, error)

	// TransitionClaim moves a claim to `to` if its current status is one of
	// `from`. It reports false, without error, when the precondition failed.
	TransitionClaim(ctx context.Context, id string, from []entities.ClaimStatus, to entities.ClaimStatus) (bool, error)

	// IncrementSubmissionCounts adds delta to submission_count on every claim in ids.
	IncrementSubmissionCounts(ctx context.Context, ids []string, delta int) error

	// AssignClaim sets the assignee only when the claim has none. Reports false
	// when another reviewer already holds it.
	AssignClaim(ctx context.Context, id, factCheckerID string) (bool, error)

	// UnassignClaim clears the assignee only if it is factCheckerID.
	UnassignClaim(ctx context.Context, id, factCheckerID string) (bool, error)

	// CountActiveAssignments counts non-terminal claims assigned to a reviewer.
	CountActiveAssignments(ctx context.Context, factCheckerID string) (int, error)

	// Verdict operations

	// SaveAIVerdict stores an immutable AI verdict.
	SaveAIVerdict(ctx context.Context, v *entities.AIVerdict) error

	// FindAIVerdictByID finds an AI verdict by its ID.
	FindAIVerdictByID(ctx context.Context, id string) (*entities.AIVerdict, error)

	// FindAIVerdictsByClaim lists a claim's AI verdicts, oldest first.
	FindAIVerdictsByClaim(ctx context.Context, claimID string) ([]entities.AIVerdict, error)

	// SaveVerdict stores a human verdict.
	SaveVerdict(ctx context.Context, v *entities.Verdict) error

	// FindVerdictByID finds a human verdict by its ID.
	FindVerdictByID(ctx context.Context, id string) (*entities.Verdict, error)

	// FindVerdictsByClaim lists a claim's human verdicts, oldest first.
	FindVerdictsByClaim(ctx context.Context, claimID string) ([]entities.Verdict, error)

	// CountVerdictsByChecker counts verdicts authored by a reviewer.
	CountVerdictsByChecker(ctx context.Context, factCheckerID string) (int, error)

	// Review session operations

	// SaveSession inserts or updates a review session.
	SaveSession(ctx context.Context, s *entities.ReviewSession) error

	// FindSessionByID finds a review session by its ID.
	FindSessionByID(ctx context.Context, id string) (*entities.ReviewSession, error)

	// FindOpenSession finds the open session for a claim, if any.
	FindOpenSession(ctx context.Context, claimID string) (*entities.ReviewSession, error)

	// FindOpenSessionsStartedBefore lists open sessions started before t.
	FindOpenSessionsStartedBefore(ctx context.Context, t time.Time) ([]entities.ReviewSession, error)

	// FindSessionsByChecker lists a reviewer's sessions, newest first.
	FindSessionsByChecker(ctx context.Context, factCheckerID string) ([]entities.ReviewSession, error)

	// User operations

	// SaveUser inserts or updates an account.
	SaveUser(ctx context.Context, u *entities.User) error

	// FindUserByID finds an account by its ID.
	FindUserByID(ctx context.Context, id string) (*entities.User, error)

	// ListUsersByRole lists accounts with the given role, ordered by ID.
	ListUsersByRole(ctx context.Context, role entities.UserRole) ([]entities.User, error)

	// Trending topic operations

	// SaveTopic inserts or updates a trending topic.
	SaveTopic(ctx context.Context, t *entities.TrendingTopic) error

	// FindTopicByID finds a topic by its ID.
	FindTopicByID(ctx context.Context, id string) (*entities.TrendingTopic, error)

	// FindTopicByLabel finds a topic by its normalized label.
	FindTopicByLabel(ctx context.Context, normalizedLabel string) (*entities.TrendingTopic, error)

	// ListTopics lists topics by engagement, highest first.
	ListTopics(ctx context.Context, limit int) ([]entities.TrendingTopic, error)

	// DeleteTopic deletes a topic by ID.
	DeleteTopic(ctx context.Context, id string) error

	// SaveAdvisory stores generated advisory content.
	SaveAdvisory(ctx context.Context, a *entities.Advisory) error

	// FindAdvisoryByTopic finds the advisory generated for a topic.
	FindAdvisoryByTopic(ctx context.Context, topicID string) (*entities.Advisory, error)

	// Notification operations

	// SaveNotification inserts a notification unless one already exists for
	// the same recipient, type and entity. Reports whether a row was created.
	SaveNotification(ctx context.Context, n *entities.Notification) (bool, error)

	// FindNotificationByID finds a notification by its ID.
	FindNotificationByID(ctx context.Context, id string) (*entities.Notification, error)

	// ListNotifications lists a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]entities.Notification, error)

	// MarkNotificationRead sets is_read on one notification if still unread.
	MarkNotificationRead(ctx context.Context, id string, at time.Time) error

	// MarkAllNotificationsRead marks every unread notification of a user read.
	MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int, error)

	// Category operations

	// SaveCategory inserts or updates a category.
	SaveCategory(ctx context.Context, c *entities.Category) error

	// FindCategory finds a category by name.
	FindCategory(ctx context.Context, name string) (*entities.Category, error)

	// ListCategories lists all categories ordered by name.
	ListCategories(ctx context.Context) ([]entities.Category, error)

	// DeleteCategory deletes a category by name.
	DeleteCategory(ctx context.Context, name string) error

	// Audit log

	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, claimID string, details map[string]any) error

	// FindAuditLog finds audit log entries for a specific claim.
	FindAuditLog(ctx context.Context, claimID string) ([]entities.AuditEntry, error)

	// FindAuditLogByAction finds audit log entries by action type.
	FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error)
}
