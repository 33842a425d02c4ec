package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

// RelationalDB is an in-memory implementation of ports.RelationalDB.
// Values are copied on the way in and out so callers cannot alias stored rows.
type RelationalDB struct {
	mu sync.Mutex

	Claims        map[string]*entities.Claim
	AIVerdicts    map[string]*entities.AIVerdict
	Verdicts      map[string]*entities.Verdict
	Sessions      map[string]*entities.ReviewSession
	Users         map[string]*entities.User
	Topics        map[string]*entities.TrendingTopic
	Advisories    map[string]*entities.Advisory
	Notifications map[string]*entities.Notification
	Categories    map[string]*entities.Category
	Audit         []entities.AuditEntry

	// Err fails every call. Errs fails the named method only.
	Err  error
	Errs map[string]error

	// TxCalls counts WithinTx invocations.
	TxCalls int
}

// NewRelationalDB creates a new mock RelationalDB.
func NewRelationalDB() *RelationalDB {
	return &RelationalDB{
		Claims:        make(map[string]*entities.Claim),
		AIVerdicts:    make(map[string]*entities.AIVerdict),
		Verdicts:      make(map[string]*entities.Verdict),
		Sessions:      make(map[string]*entities.ReviewSession),
		Users:         make(map[string]*entities.User),
		Topics:        make(map[string]*entities.TrendingTopic),
		Advisories:    make(map[string]*entities.Advisory),
		Notifications: make(map[string]*entities.Notification),
		Categories:    make(map[string]*entities.Category),
		Errs:          make(map[string]error),
	}
}

func (m *RelationalDB) fail(method string) error {
	if m.Err != nil {
		return m.Err
	}
	return m.Errs[method]
}

// EnsureSchema creates the database schema if it doesn't exist.
func (m *RelationalDB) EnsureSchema(_ context.Context) error {
	return m.fail("EnsureSchema")
}

// Close closes the database connection.
func (m *RelationalDB) Close() error {
	return nil
}

// WithinTx runs fn directly. Writes made before a failure are not undone.
func (m *RelationalDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.TxCalls++
	m.mu.Unlock()
	if err := m.fail("WithinTx"); err != nil {
		return err
	}
	return fn(ctx)
}

// Claim methods.

func copyClaim(c *entities.Claim) *entities.Claim {
	cp := *c
	return &cp
}

// SaveClaim inserts a claim.
func (m *RelationalDB) SaveClaim(_ context.Context, c *entities.Claim) error {
	if err := m.fail("SaveClaim"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Claims[c.ID] = copyClaim(c)
	return nil
}

// SetClaimAIVerdict sets the AI verdict pointer.
func (m *RelationalDB) SetClaimAIVerdict(_ context.Context, id, aiVerdictID string) error {
	return m.mutateClaim("SetClaimAIVerdict", id, func(c *entities.Claim) {
		c.AIVerdictID = aiVerdictID
	})
}

// SetClaimHumanVerdict sets the human verdict pointer and published_at.
func (m *RelationalDB) SetClaimHumanVerdict(_ context.Context, id, verdictID string, publishedAt *time.Time) error {
	return m.mutateClaim("SetClaimHumanVerdict", id, func(c *entities.Claim) {
		c.HumanVerdictID = verdictID
		c.PublishedAt = publishedAt
	})
}

// SetClaimTrending stores the trending flag and score.
func (m *RelationalDB) SetClaimTrending(_ context.Context, id string, trending bool, score float64) error {
	return m.mutateClaim("SetClaimTrending", id, func(c *entities.Claim) {
		c.IsTrending = trending
		c.TrendingScore = score
	})
}

// MarkClaimVerdictRead stamps verdict_read_at once.
func (m *RelationalDB) MarkClaimVerdictRead(_ context.Context, id string, at time.Time) (bool, error) {
	stamped := false
	err := m.mutateClaim("MarkClaimVerdictRead", id, func(c *entities.Claim) {
		c.VerdictNotified = true
		if c.VerdictReadAt == nil {
			readAt := at
			c.VerdictReadAt = &readAt
			stamped = true
		}
	})
	return stamped, err
}

// ResetClaimVerdictRead clears the read stamp.
func (m *RelationalDB) ResetClaimVerdictRead(_ context.Context, id string) error {
	return m.mutateClaim("ResetClaimVerdictRead", id, func(c *entities.Claim) {
		c.VerdictNotified = false
		c.VerdictReadAt = nil
	})
}

func (m *RelationalDB) mutateClaim(method, id string, fn func(c *entities.Claim)) error {
	if err := m.fail(method); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Claims[id]; ok {
		fn(c)
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// FindClaimByID finds a claim by its ID.
func (m *RelationalDB) FindClaimByID(_ context.Context, id string) (*entities.Claim, error) {
	if err := m.fail("FindClaimByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Claims[id]
	if !ok {
		return nil, nil
	}
	return copyClaim(c), nil
}

// FindClaimsByIDs finds the claims with the given IDs.
func (m *RelationalDB) FindClaimsByIDs(_ context.Context, ids []string) ([]*entities.Claim, error) {
	if err := m.fail("FindClaimsByIDs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Claim
	for _, id := range ids {
		if c, ok := m.Claims[id]; ok {
			out = append(out, copyClaim(c))
		}
	}
	return out, nil
}

// FindClaimsBySimilarityHash finds non-terminal claims sharing a hash.
func (m *RelationalDB) FindClaimsBySimilarityHash(_ context.Context, hash string) ([]*entities.Claim, error) {
	if err := m.fail("FindClaimsBySimilarityHash"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Claim
	for _, c := range m.Claims {
		if c.SimilarityHash == hash && !c.Status.IsTerminal() {
			out = append(out, copyClaim(c))
		}
	}
	sortClaims(out)
	return out, nil
}

// ListClaims lists claims matching the filter, newest first.
func (m *RelationalDB) ListClaims(_ context.Context, f entities.ClaimFilter) ([]*entities.Claim, error) {
	if err := m.fail("ListClaims"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Claim
	for _, c := range m.Claims {
		if len(f.Statuses) > 0 && !c.Status.In(f.Statuses...) {
			continue
		}
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.SubmitterID != "" && c.SubmitterID != f.SubmitterID {
			continue
		}
		if f.CheckerID != "" && c.AssignedFactCheckerID != f.CheckerID {
			continue
		}
		if f.TrendingOnly && !c.IsTrending {
			continue
		}
		if !f.UpdatedTo.IsZero() && c.UpdatedAt.After(f.UpdatedTo) {
			continue
		}
		out = append(out, copyClaim(c))
	}
	sortClaims(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func sortClaims(cs []*entities.Claim) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].ID < cs[j].ID
		}
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}

// TransitionClaim is a compare-and-set on the claim status.
func (m *RelationalDB) TransitionClaim(_ context.Context, id string, from []entities.ClaimStatus, to entities.ClaimStatus) (bool, error) {
	if err := m.fail("TransitionClaim"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Claims[id]
	if !ok || !c.Status.In(from...) {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

// IncrementSubmissionCounts adds delta to each claim's submission count.
func (m *RelationalDB) IncrementSubmissionCounts(_ context.Context, ids []string, delta int) error {
	if err := m.fail("IncrementSubmissionCounts"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if c, ok := m.Claims[id]; ok {
			c.SubmissionCount += delta
		}
	}
	return nil
}

// AssignClaim sets the assignee when the claim has none.
func (m *RelationalDB) AssignClaim(_ context.Context, id, checkerID string) (bool, error) {
	if err := m.fail("AssignClaim"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Claims[id]
	if !ok || c.AssignedFactCheckerID != "" {
		return false, nil
	}
	c.AssignedFactCheckerID = checkerID
	return true, nil
}

// UnassignClaim clears the assignee if it matches.
func (m *RelationalDB) UnassignClaim(_ context.Context, id, checkerID string) (bool, error) {
	if err := m.fail("UnassignClaim"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Claims[id]
	if !ok || c.AssignedFactCheckerID != checkerID {
		return false, nil
	}
	c.AssignedFactCheckerID = ""
	return true, nil
}

// CountActiveAssignments counts non-terminal claims assigned to a reviewer.
func (m *RelationalDB) CountActiveAssignments(_ context.Context, checkerID string) (int, error) {
	if err := m.fail("CountActiveAssignments"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Claims {
		if c.AssignedFactCheckerID == checkerID && !c.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

// Verdict methods.

// SaveAIVerdict stores an AI verdict.
func (m *RelationalDB) SaveAIVerdict(_ context.Context, v *entities.AIVerdict) error {
	if err := m.fail("SaveAIVerdict"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.AIVerdicts[v.ID] = &cp
	return nil
}

// FindAIVerdictByID finds an AI verdict.
func (m *RelationalDB) FindAIVerdictByID(_ context.Context, id string) (*entities.AIVerdict, error) {
	if err := m.fail("FindAIVerdictByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.AIVerdicts[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

// FindAIVerdictsByClaim lists a claim's AI verdicts, oldest first.
func (m *RelationalDB) FindAIVerdictsByClaim(_ context.Context, claimID string) ([]entities.AIVerdict, error) {
	if err := m.fail("FindAIVerdictsByClaim"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.AIVerdict
	for _, v := range m.AIVerdicts {
		if v.ClaimID == claimID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SaveVerdict stores a human verdict.
func (m *RelationalDB) SaveVerdict(_ context.Context, v *entities.Verdict) error {
	if err := m.fail("SaveVerdict"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.Verdicts[v.ID] = &cp
	return nil
}

// FindVerdictByID finds a human verdict.
func (m *RelationalDB) FindVerdictByID(_ context.Context, id string) (*entities.Verdict, error) {
	if err := m.fail("FindVerdictByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Verdicts[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

// FindVerdictsByClaim lists a claim's human verdicts, oldest first.
func (m *RelationalDB) FindVerdictsByClaim(_ context.Context, claimID string) ([]entities.Verdict, error) {
	if err := m.fail("FindVerdictsByClaim"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Verdict
	for _, v := range m.Verdicts {
		if v.ClaimID == claimID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CountVerdictsByChecker counts verdicts authored by a reviewer.
func (m *RelationalDB) CountVerdictsByChecker(_ context.Context, checkerID string) (int, error) {
	if err := m.fail("CountVerdictsByChecker"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.Verdicts {
		if v.FactCheckerID == checkerID {
			n++
		}
	}
	return n, nil
}

// Session methods.

// SaveSession inserts or updates a session.
func (m *RelationalDB) SaveSession(_ context.Context, s *entities.ReviewSession) error {
	if err := m.fail("SaveSession"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.Sessions[s.ID] = &cp
	return nil
}

// FindSessionByID finds a session.
func (m *RelationalDB) FindSessionByID(_ context.Context, id string) (*entities.ReviewSession, error) {
	if err := m.fail("FindSessionByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// FindOpenSession finds the open session for a claim.
func (m *RelationalDB) FindOpenSession(_ context.Context, claimID string) (*entities.ReviewSession, error) {
	if err := m.fail("FindOpenSession"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Sessions {
		if s.ClaimID == claimID && s.IsOpen() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// FindOpenSessionsStartedBefore lists open sessions started before t.
func (m *RelationalDB) FindOpenSessionsStartedBefore(_ context.Context, t time.Time) ([]entities.ReviewSession, error) {
	if err := m.fail("FindOpenSessionsStartedBefore"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.ReviewSession
	for _, s := range m.Sessions {
		if s.IsOpen() && s.StartedAt.Before(t) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// FindSessionsByChecker lists a reviewer's sessions, newest first.
func (m *RelationalDB) FindSessionsByChecker(_ context.Context, checkerID string) ([]entities.ReviewSession, error) {
	if err := m.fail("FindSessionsByChecker"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.ReviewSession
	for _, s := range m.Sessions {
		if s.FactCheckerID == checkerID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// User methods.

// SaveUser inserts or updates an account.
func (m *RelationalDB) SaveUser(_ context.Context, u *entities.User) error {
	if err := m.fail("SaveUser"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.Users[u.ID] = &cp
	return nil
}

// FindUserByID finds an account.
func (m *RelationalDB) FindUserByID(_ context.Context, id string) (*entities.User, error) {
	if err := m.fail("FindUserByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// ListUsersByRole lists accounts with a role, ordered by ID.
func (m *RelationalDB) ListUsersByRole(_ context.Context, role entities.UserRole) ([]entities.User, error) {
	if err := m.fail("ListUsersByRole"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.User
	for _, u := range m.Users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Topic methods.

func copyTopic(t *entities.TrendingTopic) *entities.TrendingTopic {
	cp := *t
	cp.ClaimIDs = append([]string(nil), t.ClaimIDs...)
	return &cp
}

// SaveTopic inserts or updates a topic.
func (m *RelationalDB) SaveTopic(_ context.Context, t *entities.TrendingTopic) error {
	if err := m.fail("SaveTopic"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Topics[t.ID] = copyTopic(t)
	return nil
}

// FindTopicByID finds a topic.
func (m *RelationalDB) FindTopicByID(_ context.Context, id string) (*entities.TrendingTopic, error) {
	if err := m.fail("FindTopicByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Topics[id]
	if !ok {
		return nil, nil
	}
	return copyTopic(t), nil
}

// FindTopicByLabel finds a topic by normalized label.
func (m *RelationalDB) FindTopicByLabel(_ context.Context, label string) (*entities.TrendingTopic, error) {
	if err := m.fail("FindTopicByLabel"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Topics {
		if t.NormalizedLabel == label {
			return copyTopic(t), nil
		}
	}
	return nil, nil
}

// ListTopics lists topics by engagement, highest first.
func (m *RelationalDB) ListTopics(_ context.Context, limit int) ([]entities.TrendingTopic, error) {
	if err := m.fail("ListTopics"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.TrendingTopic, 0, len(m.Topics))
	for _, t := range m.Topics {
		out = append(out, *copyTopic(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EngagementScore == out[j].EngagementScore {
			return out[i].ID < out[j].ID
		}
		return out[i].EngagementScore > out[j].EngagementScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteTopic deletes a topic.
func (m *RelationalDB) DeleteTopic(_ context.Context, id string) error {
	if err := m.fail("DeleteTopic"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Topics, id)
	return nil
}

// SaveAdvisory stores an advisory.
func (m *RelationalDB) SaveAdvisory(_ context.Context, a *entities.Advisory) error {
	if err := m.fail("SaveAdvisory"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.Advisories[a.TopicID] = &cp
	return nil
}

// FindAdvisoryByTopic finds the advisory for a topic.
func (m *RelationalDB) FindAdvisoryByTopic(_ context.Context, topicID string) (*entities.Advisory, error) {
	if err := m.fail("FindAdvisoryByTopic"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Advisories[topicID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// Notification methods.

// SaveNotification inserts unless the (recipient, type, entity) key exists.
func (m *RelationalDB) SaveNotification(_ context.Context, n *entities.Notification) (bool, error) {
	if err := m.fail("SaveNotification"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Notifications {
		if existing.RecipientID == n.RecipientID && existing.Type == n.Type &&
			existing.EntityType == n.EntityType && existing.EntityID == n.EntityID {
			return false, nil
		}
	}
	cp := *n
	m.Notifications[n.ID] = &cp
	return true, nil
}

// FindNotificationByID finds a notification.
func (m *RelationalDB) FindNotificationByID(_ context.Context, id string) (*entities.Notification, error) {
	if err := m.fail("FindNotificationByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.Notifications[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

// ListNotifications lists a user's notifications, newest first.
func (m *RelationalDB) ListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]entities.Notification, error) {
	if err := m.fail("ListNotifications"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Notification
	for _, n := range m.Notifications {
		if n.RecipientID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkNotificationRead marks one notification read if still unread.
func (m *RelationalDB) MarkNotificationRead(_ context.Context, id string, at time.Time) error {
	if err := m.fail("MarkNotificationRead"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.Notifications[id]; ok && !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
	}
	return nil
}

// MarkAllNotificationsRead marks a user's unread notifications read.
func (m *RelationalDB) MarkAllNotificationsRead(_ context.Context, userID string, at time.Time) (int, error) {
	if err := m.fail("MarkAllNotificationsRead"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.Notifications {
		if n.RecipientID == userID && !n.IsRead {
			n.IsRead = true
			readAt := at
			n.ReadAt = &readAt
			count++
		}
	}
	return count, nil
}

// Category methods.

// SaveCategory inserts or updates a category.
func (m *RelationalDB) SaveCategory(_ context.Context, c *entities.Category) error {
	if err := m.fail("SaveCategory"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.Categories[c.Name] = &cp
	return nil
}

// FindCategory finds a category by name.
func (m *RelationalDB) FindCategory(_ context.Context, name string) (*entities.Category, error) {
	if err := m.fail("FindCategory"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Categories[name]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// ListCategories lists categories by name.
func (m *RelationalDB) ListCategories(_ context.Context) ([]entities.Category, error) {
	if err := m.fail("ListCategories"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.Category, 0, len(m.Categories))
	for _, c := range m.Categories {
		out = append(out, *c)
	}
	// Sort by name for deterministic test results
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteCategory deletes a category.
func (m *RelationalDB) DeleteCategory(_ context.Context, name string) error {
	if err := m.fail("DeleteCategory"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Categories, name)
	return nil
}

// Audit methods.

// LogAction appends an audit entry.
func (m *RelationalDB) LogAction(_ context.Context, action, claimID string, details map[string]any) error {
	if err := m.fail("LogAction"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Audit = append(m.Audit, entities.AuditEntry{
		ID:        int64(len(m.Audit) + 1),
		Action:    action,
		ClaimID:   claimID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// FindAuditLog finds audit entries for a claim.
func (m *RelationalDB) FindAuditLog(_ context.Context, claimID string) ([]entities.AuditEntry, error) {
	if err := m.fail("FindAuditLog"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.AuditEntry
	for _, e := range m.Audit {
		if e.ClaimID == claimID {
			out = append(out, e)
		}
	}
	return out, nil
}

// FindAuditLogByAction finds audit entries by action.
func (m *RelationalDB) FindAuditLogByAction(_ context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	if err := m.fail("FindAuditLogByAction"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.AuditEntry
	for _, e := range m.Audit {
		if strings.EqualFold(e.Action, action) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Claim returns a stored claim for assertions, or nil.
func (m *RelationalDB) Claim(id string) *entities.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Claims[id]; ok {
		return copyClaim(c)
	}
	return nil
}

// AuditActions returns the recorded audit actions for a claim in order.
func (m *RelationalDB) AuditActions(claimID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.Audit {
		if e.ClaimID == claimID {
			out = append(out, e.Action)
		}
	}
	return out
}
