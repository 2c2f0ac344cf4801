// Package departments manages the organisational units that scope claim
// visibility, budgets and manager approval.
package departments

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"expenseflow/internal/domain/auth"
	apperrors "expenseflow/internal/errors"
)

const maxNameLen = 100

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// ManagerLookup resolves a prospective department manager.
type ManagerLookup interface {
	Actor(ctx context.Context, userID string) (auth.Actor, error)
}

type Service struct {
	store    StoreAPI
	managers ManagerLookup
	logger   *zap.Logger
	now      func() time.Time
}

// New builds the service. managers may be nil, in which case manager ids are
// stored without being checked.
func New(store StoreAPI, managers ManagerLookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, managers: managers, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Department, error) {
	if err := auth.Authorize(actor, auth.PermViewDepartments); err != nil {
		return nil, err
	}
	return s.store.ListDepartments(ctx)
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, departmentID string) (Department, error) {
	if err := auth.Authorize(actor, auth.PermViewDepartments); err != nil {
		return Department{}, err
	}
	return s.store.GetDepartment(ctx, departmentID)
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Department, error) {
	if err := auth.Authorize(actor, auth.PermCreateDepartment); err != nil {
		return Department{}, err
	}
	now := s.now()
	d := Department{
		ID:          strings.TrimSpace(in.ID),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		ManagerID:   strings.TrimSpace(in.ManagerID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	} else if !slugPattern.MatchString(d.ID) {
		return Department{}, validation("id", "id must be lowercase letters, digits and dashes")
	}
	if err := validateName(d.Name); err != nil {
		return Department{}, err
	}
	if err := s.checkManager(ctx, d.ManagerID); err != nil {
		return Department{}, err
	}
	if err := s.store.CreateDepartment(ctx, d); err != nil {
		return Department{}, err
	}
	s.logger.Info("department created", zap.String("departmentId", d.ID), zap.String("actorId", actor.UserID))
	return d, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, departmentID string, patch Patch) (Department, error) {
	if err := auth.Authorize(actor, auth.PermUpdateDepartment); err != nil {
		return Department{}, err
	}
	d, err := s.store.GetDepartment(ctx, departmentID)
	if err != nil {
		return Department{}, err
	}
	if patch.Name != nil {
		d.Name = strings.TrimSpace(*patch.Name)
		if err := validateName(d.Name); err != nil {
			return Department{}, err
		}
	}
	if patch.Description != nil {
		d.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ManagerID != nil {
		managerID := strings.TrimSpace(*patch.ManagerID)
		if managerID != d.ManagerID {
			if err := s.checkManager(ctx, managerID); err != nil {
				return Department{}, err
			}
		}
		d.ManagerID = managerID
	}
	d.UpdatedAt = s.now()
	ok, err := s.store.UpdateDepartment(ctx, d)
	if err != nil {
		return Department{}, err
	}
	if !ok {
		return Department{}, ErrDepartmentNotFound
	}
	s.logger.Info("department updated", zap.String("departmentId", d.ID), zap.String("actorId", actor.UserID))
	return d, nil
}

// Delete removes an unused department. Departments that still have members,
// budgets or expenses fail with ErrInUse.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, departmentID string) error {
	if err := auth.Authorize(actor, auth.PermDeleteDepartment); err != nil {
		return err
	}
	if err := s.store.DeleteDepartment(ctx, departmentID); err != nil {
		return err
	}
	s.logger.Info("department deleted", zap.String("departmentId", departmentID), zap.String("actorId", actor.UserID))
	return nil
}

func (s *Service) checkManager(ctx context.Context, managerID string) error {
	if managerID == "" || s.managers == nil {
		return nil
	}
	m, err := s.managers.Actor(ctx, managerID)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return ErrInvalidManager
	}
	if err != nil {
		return err
	}
	if !m.Active || !auth.HasPermission(m.Role, auth.PermApproveDepartmentExpenses) {
		return ErrInvalidManager
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return validation("name", "name is required")
	}
	if len(name) > maxNameLen {
		return validation("name", "name must be at most 100 characters")
	}
	return nil
}
