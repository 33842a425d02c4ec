package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

// UserHandler handles account registration and fact-checker administration.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Register creates an account.
func (h *UserHandler) Register(ctx context.Context, in services.RegisterInput) (*entities.User, error) {
	return h.users.Register(ctx, in)
}

// Get returns an account.
func (h *UserHandler) Get(ctx context.Context, id string) (*entities.User, error) {
	return h.users.Get(ctx, id)
}

// List returns the accounts holding role.
func (h *UserHandler) List(ctx context.Context, role string) ([]entities.User, error) {
	r, err := parseRole(role)
	if err != nil {
		return nil, err
	}
	return h.users.ListByRole(ctx, r)
}

// Apply runs an admin action such as approve or suspend on a fact-checker.
func (h *UserHandler) Apply(ctx context.Context, adminID, checkerID, action string) (*entities.User, error) {
	a, ok := services.ParseCheckerAction(action)
	if !ok {
		return nil, &entities.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown checker action %q", action)}
	}
	return h.users.ApplyCheckerAction(ctx, adminID, checkerID, a)
}

func parseRole(s string) (entities.UserRole, error) {
	switch r := entities.UserRole(strings.ToLower(strings.TrimSpace(s))); r {
	case entities.RoleUser, entities.RoleFactChecker, entities.RoleAdmin:
		return r, nil
	default:
		return "", &entities.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", s)}
	}
}
