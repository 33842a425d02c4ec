package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
)

// CheckerAction is an admin decision about a fact-checker account.
type CheckerAction string

const (
	CheckerApprove  CheckerAction = "approve"
	CheckerReject   CheckerAction = "reject"
	CheckerSuspend  CheckerAction = "suspend"
	CheckerActivate CheckerAction = "activate"
	CheckerPromote  CheckerAction = "promote"
)

// ParseCheckerAction parses a checker action name.
func ParseCheckerAction(s string) (CheckerAction, bool) {
	switch a := CheckerAction(strings.ToLower(strings.TrimSpace(s))); a {
	case CheckerApprove, CheckerReject, CheckerSuspend, CheckerActivate, CheckerPromote:
		return a, true
	default:
		return "", false
	}
}

// RegisterInput is the account data the core keeps for a user.
type RegisterInput struct {
	ID                 string
	Email              string
	Name               string
	Role               entities.UserRole
	EmailNotifications bool
	PushNotifications  bool
}

// UserService manages the account slice this core reads and the
// fact-checker admin actions.
type UserService struct {
	relationalDB ports.RelationalDB
	machine      *StateMachine
	log          *logger.Logger
}

// NewUserService creates a new UserService.
func NewUserService(relationalDB ports.RelationalDB, machine *StateMachine, log *logger.Logger) *UserService {
	return &UserService{relationalDB: relationalDB, machine: machine, log: log}
}

// Register creates an account. Fact-checker accounts start pending and must
// be approved; other roles are active immediately.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &entities.ValidationError{Field: "email", Reason: "not a valid address"}
	}
	role := in.Role
	if role == "" {
		role = entities.RoleUser
	}
	if role != entities.RoleUser && role != entities.RoleFactChecker && role != entities.RoleAdmin {
		return nil, &entities.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.New().String()
	} else {
		existing, err := s.relationalDB.FindUserByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("finding user: %w", err)
		}
		if existing != nil {
			return nil, &entities.ValidationError{Field: "id", Reason: "user already exists"}
		}
	}

	status := entities.UserActive
	if role == entities.RoleFactChecker {
		status = entities.UserPending
	}
	user := &entities.User{
		ID:                 id,
		Email:              email,
		Name:               strings.TrimSpace(in.Name),
		Role:               role,
		Status:             status,
		EmailNotifications: in.EmailNotifications,
		PushNotifications:  in.PushNotifications,
		CreatedAt:          timeNow().UTC(),
	}
	if err := s.relationalDB.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return user, nil
}

// Get returns an account or NotFoundError.
func (s *UserService) Get(ctx context.Context, id string) (*entities.User, error) {
	user, err := s.relationalDB.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, &entities.NotFoundError{Entity: "user", ID: id}
	}
	return user, nil
}

// ListByRole lists accounts with a role.
func (s *UserService) ListByRole(ctx context.Context, role entities.UserRole) ([]entities.User, error) {
	users, err := s.relationalDB.ListUsersByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// ApplyCheckerAction moves a fact-checker account through its registration
// lifecycle. Suspending a checker releases every claim they hold.
func (s *UserService) ApplyCheckerAction(ctx context.Context, adminID, checkerID string, action CheckerAction) (*entities.User, error) {
	if err := requireAdmin(ctx, s.relationalDB, adminID); err != nil {
		return nil, err
	}

	var updated *entities.User
	err := s.relationalDB.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.Get(ctx, checkerID)
		if err != nil {
			return err
		}
		if user.Role != entities.RoleFactChecker && user.Role != entities.RoleAdmin {
			return &entities.ValidationError{Field: "user_id", Reason: "not a fact-checker account"}
		}
		from := user.Status

		switch action {
		case CheckerApprove:
			if user.Status != entities.UserPending {
				return &entities.ValidationError{Field: "action", Reason: fmt.Sprintf("cannot approve a %s account", user.Status)}
			}
			user.Status = entities.UserActive
		case CheckerReject:
			if user.Status != entities.UserPending {
				return &entities.ValidationError{Field: "action", Reason: fmt.Sprintf("cannot reject a %s account", user.Status)}
			}
			user.Status = entities.UserRejected
		case CheckerSuspend:
			if user.Status != entities.UserActive {
				return &entities.ValidationError{Field: "action", Reason: fmt.Sprintf("cannot suspend a %s account", user.Status)}
			}
			user.Status = entities.UserSuspended
			if err := s.releaseAssignments(ctx, user.ID); err != nil {
				return err
			}
		case CheckerActivate:
			if user.Status != entities.UserSuspended {
				return &entities.ValidationError{Field: "action", Reason: fmt.Sprintf("cannot activate a %s account", user.Status)}
			}
			user.Status = entities.UserActive
		case CheckerPromote:
			if user.Status != entities.UserActive || user.Role == entities.RoleAdmin {
				return &entities.ValidationError{Field: "action", Reason: "only active fact-checkers can be promoted"}
			}
			user.Role = entities.RoleAdmin
		default:
			return &entities.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown checker action %q", action)}
		}

		if err := s.relationalDB.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("saving user: %w", err)
		}
		if err := s.relationalDB.LogAction(ctx, entities.AuditCheckerAction, "", map[string]any{
			"admin_id":   adminID,
			"checker_id": user.ID,
			"action":     string(action),
			"from":       string(from),
			"to":         string(user.Status),
			"role":       string(user.Role),
		}); err != nil {
			return fmt.Errorf("logging checker action: %w", err)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("checker action applied", "checker_id", checkerID, "action", string(action), "admin_id", adminID)
	return updated, nil
}

func (s *UserService) releaseAssignments(ctx context.Context, checkerID string) error {
	held, err := s.relationalDB.ListClaims(ctx, entities.ClaimFilter{
		CheckerID: checkerID,
		Statuses:  entities.PrePublicationStatuses(),
	})
	if err != nil {
		return fmt.Errorf("listing assigned claims: %w", err)
	}
	now := timeNow().UTC()
	for _, claim := range held {
		if _, err := s.relationalDB.UnassignClaim(ctx, claim.ID, checkerID); err != nil {
			return fmt.Errorf("unassigning claim %s: %w", claim.ID, err)
		}
		if err := closeOpenSession(ctx, s.relationalDB, claim.ID, entities.SessionEndEscalated, now); err != nil {
			return err
		}
		if claim.Status == entities.StatusUnderReview {
			if _, err := s.machine.Transition(ctx, claim.ID, entities.StatusHumanReview, "checker_suspended"); err != nil {
				return err
			}
		}
		if err := s.relationalDB.LogAction(ctx, entities.AuditClaimUnassigned, claim.ID, map[string]any{
			"fact_checker_id": checkerID,
			"reason":          "checker_suspended",
		}); err != nil {
			return fmt.Errorf("logging unassignment: %w", err)
		}
	}
	return nil
}
