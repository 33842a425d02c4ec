package entities

import "time"

// UserRole is the platform role of an account.
type UserRole string

// Account roles.
const (
	RoleUser        UserRole = "user"
	RoleFactChecker UserRole = "fact_checker"
	RoleAdmin       UserRole = "admin"
)

// UserStatus is the registration state of an account.
type UserStatus string

// Account states.
const (
	UserPending   UserStatus = "pending"
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserRejected  UserStatus = "rejected"
)

// User is the slice of the platform account this core reads: contact
// details, role and channel preferences.
type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               UserRole   `json:"role"`
	Status             UserStatus `json:"status"`
	EmailNotifications bool       `json:"email_notifications"`
	PushNotifications  bool       `json:"push_notifications"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CanReview reports whether the account may hold claim assignments.
func (u *User) CanReview() bool {
	return u.Status == UserActive && (u.Role == RoleFactChecker || u.Role == RoleAdmin)
}

// ReviewSession tracks one reviewer's active time on one claim.
type ReviewSession struct {
	ID              string     `json:"id"`
	ClaimID         string     `json:"claim_id"`
	FactCheckerID   string     `json:"fact_checker_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	EndReason       string     `json:"end_reason,omitempty"`
}

// Session end reasons.
const (
	SessionEndCompleted = "completed"
	SessionEndExpired   = "expired"
	SessionEndEscalated = "escalated"
)

// IsOpen reports whether the session has not been ended.
func (s *ReviewSession) IsOpen() bool {
	return s.EndedAt == nil
}

// ReviewerStats summarizes a fact-checker's productivity.
type ReviewerStats struct {
	FactCheckerID        string  `json:"fact_checker_id"`
	Sessions             int     `json:"sessions"`
	TotalSeconds         int64   `json:"total_seconds"`
	AverageSeconds       float64 `json:"average_seconds"`
	VerdictsAuthored     int     `json:"verdicts_authored"`
	ActiveAssignments    int     `json:"active_assignments"`
	ExpiredSessionsCount int     `json:"expired_sessions"`
}
