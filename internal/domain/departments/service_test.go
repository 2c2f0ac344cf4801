package departments

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseflow/internal/domain/auth"
	apperrors "expenseflow/internal/errors"
)

type memStore struct {
	departments map[string]Department
	inUse       map[string]bool
}

func newMemStore(list ...Department) *memStore {
	m := &memStore{departments: map[string]Department{}, inUse: map[string]bool{}}
	for _, d := range list {
		m.departments[d.ID] = d
	}
	return m
}

func (m *memStore) ListDepartments(context.Context) ([]Department, error) {
	out := []Department{}
	for _, d := range m.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetDepartment(_ context.Context, departmentID string) (Department, error) {
	d, ok := m.departments[departmentID]
	if !ok {
		return Department{}, ErrDepartmentNotFound
	}
	return d, nil
}

func (m *memStore) CreateDepartment(_ context.Context, d Department) error {
	for _, existing := range m.departments {
		if existing.ID == d.ID || existing.Name == d.Name {
			return ErrDuplicate
		}
	}
	m.departments[d.ID] = d
	return nil
}

func (m *memStore) UpdateDepartment(_ context.Context, d Department) (bool, error) {
	if _, ok := m.departments[d.ID]; !ok {
		return false, nil
	}
	m.departments[d.ID] = d
	return true, nil
}

func (m *memStore) DeleteDepartment(_ context.Context, departmentID string) error {
	if m.inUse[departmentID] {
		return ErrInUse
	}
	if _, ok := m.departments[departmentID]; !ok {
		return ErrDepartmentNotFound
	}
	delete(m.departments, departmentID)
	return nil
}

type actorSet map[string]auth.Actor

func (a actorSet) Actor(_ context.Context, userID string) (auth.Actor, error) {
	actor, ok := a[userID]
	if !ok {
		return auth.Actor{}, apperrors.ErrNotFound
	}
	return actor, nil
}

var (
	admin    = auth.Actor{UserID: "u-admin", Role: auth.RoleAdmin, Active: true}
	employee = auth.Actor{UserID: "u-emp", Role: auth.RoleEmployee, DepartmentID: "eng", Active: true}
	people   = actorSet{
		"u-mgr":     {UserID: "u-mgr", Role: auth.RoleManager, DepartmentID: "eng", Active: true},
		"u-emp":     employee,
		"u-retired": {UserID: "u-retired", Role: auth.RoleManager, Active: false},
	}
	eng = Department{ID: "eng", Name: "Engineering"}
)

func TestListRequiresViewPermission(t *testing.T) {
	svc := New(newMemStore(eng, Department{ID: "sales", Name: "Sales"}), people, nil)

	list, err := svc.List(context.Background(), employee)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Engineering", list[0].Name)

	_, err = svc.List(context.Background(), auth.Actor{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthenticated))

	inactive := employee
	inactive.Active = false
	_, err = svc.Get(context.Background(), inactive, "eng")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestCreateValidatesAndAssignsID(t *testing.T) {
	store := newMemStore(eng)
	svc := New(store, people, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, employee, Input{Name: "Finance"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.Create(ctx, admin, Input{Name: "  "})
	assert.Equal(t, "name", apperrors.GetMetadata(err)["field"])

	_, err = svc.Create(ctx, admin, Input{ID: "Bad Slug", Name: "Finance"})
	assert.Equal(t, "id", apperrors.GetMetadata(err)["field"])

	d, err := svc.Create(ctx, admin, Input{Name: " Finance ", Description: "Money"})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "Finance", d.Name)
	assert.False(t, d.CreatedAt.IsZero())

	d, err = svc.Create(ctx, admin, Input{ID: "ops", Name: "Operations", ManagerID: "u-mgr"})
	require.NoError(t, err)
	assert.Equal(t, "ops", d.ID)
	assert.Equal(t, "u-mgr", d.ManagerID)

	_, err = svc.Create(ctx, admin, Input{ID: "eng", Name: "Engineering two"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestManagerMustBeActiveApprover(t *testing.T) {
	svc := New(newMemStore(eng), people, nil)
	ctx := context.Background()

	for _, managerID := range []string{"u-emp", "u-retired", "u-ghost"} {
		_, err := svc.Create(ctx, admin, Input{Name: "Dept " + managerID, ManagerID: managerID})
		assert.ErrorIs(t, err, ErrInvalidManager, managerID)
		assert.Equal(t, "managerId", apperrors.GetMetadata(err)["field"])
	}

	d, err := svc.Update(ctx, admin, "eng", Patch{ManagerID: ptr("u-mgr")})
	require.NoError(t, err)
	assert.Equal(t, "u-mgr", d.ManagerID)

	d, err = svc.Update(ctx, admin, "eng", Patch{ManagerID: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, d.ManagerID)
}

func TestUpdatePatchesFields(t *testing.T) {
	store := newMemStore(eng)
	svc := New(store, nil, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, employee, "eng", Patch{Name: ptr("X")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.Update(ctx, admin, "missing", Patch{Name: ptr("X")})
	assert.ErrorIs(t, err, ErrDepartmentNotFound)

	_, err = svc.Update(ctx, admin, "eng", Patch{Name: ptr("")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	d, err := svc.Update(ctx, admin, "eng", Patch{Description: ptr(" Builds things ")})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", d.Name)
	assert.Equal(t, "Builds things", store.departments["eng"].Description)
}

func TestDeleteRefusesDepartmentInUse(t *testing.T) {
	store := newMemStore(eng, Department{ID: "empty", Name: "Empty"})
	store.inUse["eng"] = true
	svc := New(store, people, nil)
	ctx := context.Background()

	err := svc.Delete(ctx, employee, "empty")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	err = svc.Delete(ctx, admin, "eng")
	assert.ErrorIs(t, err, ErrInUse)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	require.NoError(t, svc.Delete(ctx, admin, "empty"))
	assert.NotContains(t, store.departments, "empty")

	assert.ErrorIs(t, svc.Delete(ctx, admin, "empty"), ErrDepartmentNotFound)
}

func ptr(s string) *string { return &s }
