package users

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Service is the identity and roster collaborator of the workflow.
type Service struct {
	store  StoreAPI
	logger *zap.Logger
}

func New(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

var (
	_ expense.Roster      = (*Service)(nil)
	_ expense.ActorLookup = (*Service)(nil)
)

// Actor resolves userID into an actor context. Inactive users resolve with
// Active=false so that every later check fails closed.
func (s *Service) Actor(ctx context.Context, userID string) (auth.Actor, error) {
	if strings.TrimSpace(userID) == "" {
		return auth.Actor{}, ErrUserNotFound
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return auth.Actor{}, err
	}
	return u.Actor(), nil
}

func (s *Service) FindActiveUsersByRole(ctx context.Context, role auth.Role) ([]expense.Candidate, error) {
	list, err := s.store.ActiveByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	out := make([]expense.Candidate, 0, len(list))
	for _, u := range list {
		out = append(out, expense.Candidate{ID: u.ID, Role: u.Role, DepartmentID: u.DepartmentID})
	}
	return out, nil
}

// Email returns the address notifications for userID are mailed to.
func (s *Service) Email(ctx context.Context, userID string) (string, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// Me returns the actor's own profile.
func (s *Service) Me(ctx context.Context, actor auth.Actor) (User, error) {
	if err := auth.Require(actor); err != nil {
		return User{}, err
	}
	return s.store.GetUser(ctx, actor.UserID)
}

func (s *Service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (Page, error) {
	if err := auth.Authorize(actor, auth.PermViewAllUsers); err != nil {
		return Page{}, err
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return Page{}, ErrInvalidRole
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListUsers(ctx, filter)
}

// ChangeRole assigns a new role. Actors cannot change their own role.
func (s *Service) ChangeRole(ctx context.Context, actor auth.Actor, userID string, role auth.Role) (User, error) {
	if err := auth.Authorize(actor, auth.PermUpdateUserRole); err != nil {
		return User{}, err
	}
	if !role.Valid() {
		return User{}, ErrInvalidRole
	}
	if userID == actor.UserID {
		return User{}, ErrSelfChange
	}
	ok, err := s.store.UpdateRole(ctx, userID, role)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrUserNotFound
	}
	s.logger.Info("user role changed", zap.String("userId", userID), zap.String("role", string(role)), zap.String("actorId", actor.UserID))
	return s.store.GetUser(ctx, userID)
}

// SetActive activates or deactivates a user. A deactivated user keeps its
// records but fails every authorization check.
func (s *Service) SetActive(ctx context.Context, actor auth.Actor, userID string, active bool) (User, error) {
	if err := auth.Authorize(actor, auth.PermUpdateUser); err != nil {
		return User{}, err
	}
	if userID == actor.UserID {
		return User{}, ErrSelfChange
	}
	ok, err := s.store.SetActive(ctx, userID, active)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrUserNotFound
	}
	s.logger.Info("user status changed", zap.String("userId", userID), zap.Bool("active", active), zap.String("actorId", actor.UserID))
	return s.store.GetUser(ctx, userID)
}
