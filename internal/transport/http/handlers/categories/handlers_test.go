package categorieshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/categories"
	"expenseflow/internal/requestctx"
)

type fakeService struct {
	items   []categories.Category
	filter  categories.ListFilter
	created categories.Input
	patch   categories.Patch
	err     error
}

func (f *fakeService) List(_ context.Context, _ auth.Actor, filter categories.ListFilter) ([]categories.Category, error) {
	f.filter = filter
	return f.items, f.err
}

func (f *fakeService) Get(_ context.Context, _ auth.Actor, categoryID string) (categories.Category, error) {
	for _, c := range f.items {
		if c.ID == categoryID {
			return c, nil
		}
	}
	return categories.Category{}, categories.ErrCategoryNotFound
}

func (f *fakeService) Create(_ context.Context, _ auth.Actor, in categories.Input) (categories.Category, error) {
	if f.err != nil {
		return categories.Category{}, f.err
	}
	f.created = in
	return categories.Category{ID: "cat-new", Name: in.Name, IsActive: true}, nil
}

func (f *fakeService) Update(_ context.Context, _ auth.Actor, categoryID string, patch categories.Patch) (categories.Category, error) {
	f.patch = patch
	c := categories.Category{ID: categoryID, IsActive: true}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	return c, nil
}

func (f *fakeService) Delete(_ context.Context, _ auth.Actor, categoryID string) (categories.Category, error) {
	if f.err != nil {
		return categories.Category{}, f.err
	}
	return categories.Category{ID: categoryID, IsActive: false}, nil
}

type recorder struct{ entries []audit.Entry }

func (r *recorder) Record(_ context.Context, e audit.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func serve(t *testing.T, h *Handler, actor *auth.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if actor != nil {
		req = req.WithContext(requestctx.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var (
	employee = auth.Actor{UserID: "u-emp", Role: auth.RoleEmployee, DepartmentID: "eng", Active: true}
	admin    = auth.Actor{UserID: "u-admin", Role: auth.RoleAdmin, Active: true}
	travel   = categories.Category{ID: "cat-travel", Name: "Travel", IsActive: true}
)

func TestListPassesIncludeInactive(t *testing.T) {
	svc := &fakeService{items: []categories.Category{travel}}
	h := NewHandler(svc, nil)

	rec := serve(t, h, &employee, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.filter.IncludeInactive)

	var env struct {
		Data []categories.Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Travel", env.Data[0].Name)

	rec = serve(t, h, &admin, http.MethodGet, "/categories?includeInactive=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.filter.IncludeInactive)
}

func TestListEmptyIsArray(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{}, nil), &employee, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestGetNotFound(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{}, nil), &employee, http.MethodGet, "/categories/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMutationsRequirePermission(t *testing.T) {
	h := NewHandler(&fakeService{items: []categories.Category{travel}}, nil)

	assert.Equal(t, http.StatusForbidden, serve(t, h, &employee, http.MethodPost, "/categories", `{"name":"Meals"}`).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, h, &employee, http.MethodPatch, "/categories/cat-travel", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, h, &employee, http.MethodDelete, "/categories/cat-travel", "").Code)
}

func TestCreateRecordsAudit(t *testing.T) {
	svc := &fakeService{}
	log := &recorder{}
	rec := serve(t, NewHandler(svc, log), &admin, http.MethodPost, "/categories", `{"name":"Meals","color":"#ff0000"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "#ff0000", svc.created.Color)
	require.Len(t, log.entries, 1)
	assert.Equal(t, audit.ActionCategoryCreate, log.entries[0].Action)
	assert.Equal(t, audit.EntityCategory, log.entries[0].EntityType)
	assert.Equal(t, "cat-new", log.entries[0].EntityID)
}

func TestCreateDuplicateConflicts(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{err: categories.ErrDuplicate}, nil), &admin, http.MethodPost, "/categories", `{"name":"Travel"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateReactivates(t *testing.T) {
	svc := &fakeService{items: []categories.Category{{ID: "cat-old", Name: "Old"}}}
	log := &recorder{}
	rec := serve(t, NewHandler(svc, log), &admin, http.MethodPatch, "/categories/cat-old", `{"isActive":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.patch.IsActive)
	assert.True(t, *svc.patch.IsActive)
	require.Len(t, log.entries, 1)
	assert.Equal(t, audit.ActionCategoryUpdate, log.entries[0].Action)
}

func TestDeleteReturnsDeactivated(t *testing.T) {
	log := &recorder{}
	rec := serve(t, NewHandler(&fakeService{}, log), &admin, http.MethodDelete, "/categories/cat-travel", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isActive":false`)
	require.Len(t, log.entries, 1)
	assert.Equal(t, audit.ActionCategoryDelete, log.entries[0].Action)
	assert.Equal(t, "cat-travel", log.entries[0].EntityID)
}
