// Package categories maintains the expense category catalogue.
package categories

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
	apperrors "expenseflow/internal/errors"
)

const (
	maxNameLen = 100
	maxIconLen = 50
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Service struct {
	store  StoreAPI
	logger *zap.Logger
	now    func() time.Time
}

func New(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

var _ expense.CategoryLookup = (*Service)(nil)

// List returns active categories. Inactive ones are included only for
// actors who can edit the catalogue.
func (s *Service) List(ctx context.Context, actor auth.Actor, filter ListFilter) ([]Category, error) {
	if err := auth.Authorize(actor, auth.PermViewCategories); err != nil {
		return nil, err
	}
	if filter.IncludeInactive {
		if err := auth.Authorize(actor, auth.PermUpdateCategory); err != nil {
			return nil, err
		}
	}
	return s.store.ListCategories(ctx, filter)
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, categoryID string) (Category, error) {
	if err := auth.Authorize(actor, auth.PermViewCategories); err != nil {
		return Category{}, err
	}
	return s.store.GetCategory(ctx, categoryID)
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Category, error) {
	if err := auth.Authorize(actor, auth.PermCreateCategory); err != nil {
		return Category{}, err
	}
	now := s.now()
	c := Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Icon:        strings.TrimSpace(in.Icon),
		Color:       strings.TrimSpace(in.Color),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate(c); err != nil {
		return Category{}, err
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return Category{}, err
	}
	s.logger.Info("category created", zap.String("categoryId", c.ID), zap.String("actorId", actor.UserID))
	return c, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, categoryID string, patch Patch) (Category, error) {
	if err := auth.Authorize(actor, auth.PermUpdateCategory); err != nil {
		return Category{}, err
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return Category{}, err
	}
	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		c.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Icon != nil {
		c.Icon = strings.TrimSpace(*patch.Icon)
	}
	if patch.Color != nil {
		c.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	if err := validate(c); err != nil {
		return Category{}, err
	}
	return s.save(ctx, actor, c, "category updated")
}

// Delete deactivates the category. Claims that reference it keep the id;
// new claims can no longer pick it.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, categoryID string) (Category, error) {
	if err := auth.Authorize(actor, auth.PermDeleteCategory); err != nil {
		return Category{}, err
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return Category{}, err
	}
	c.IsActive = false
	return s.save(ctx, actor, c, "category deactivated")
}

// CategoryActive reports whether categoryID names an active category. It is
// the lookup the expense engine validates claims against.
func (s *Service) CategoryActive(ctx context.Context, categoryID string) (bool, error) {
	c, err := s.store.GetCategory(ctx, categoryID)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return c.IsActive, nil
}

func (s *Service) save(ctx context.Context, actor auth.Actor, c Category, msg string) (Category, error) {
	c.UpdatedAt = s.now()
	ok, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return Category{}, err
	}
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	s.logger.Info(msg, zap.String("categoryId", c.ID), zap.Bool("active", c.IsActive), zap.String("actorId", actor.UserID))
	return c, nil
}

func validate(c Category) error {
	if c.Name == "" {
		return validation("name", "name is required")
	}
	if len(c.Name) > maxNameLen {
		return validation("name", "name must be at most 100 characters")
	}
	if len(c.Icon) > maxIconLen {
		return validation("icon", "icon must be at most 50 characters")
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return validation("color", "color must be a hex value such as #1a2b3c")
	}
	return nil
}
