package handlers

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusperks/realtime-service/internal/auth"
	"github.com/campusperks/realtime-service/internal/events"
	"github.com/campusperks/realtime-service/internal/middleware"
	"github.com/campusperks/realtime-service/internal/model"
	"github.com/campusperks/realtime-service/internal/repository"
	"github.com/campusperks/realtime-service/internal/service"
)

type fakeRepo struct {
	filter repository.ListFilter
}

func (f *fakeRepo) Create(_ context.Context, _ *model.Notification) error { return nil }

func (f *fakeRepo) ListForUser(_ context.Context, _, _ string, lf repository.ListFilter) ([]model.Notification, error) {
	f.filter = lf
	return nil, nil
}

func (f *fakeRepo) MarkRead(_ context.Context, _, _, _ string) error { return nil }

func (f *fakeRepo) MarkAllRead(_ context.Context, _, _ string) (int64, error) { return 0, nil }

func (f *fakeRepo) Delete(_ context.Context, _, _, _ string) error { return nil }

func (f *fakeRepo) CountUnread(_ context.Context, _, _ string) (int64, error) { return 0, nil }

type fakeEmitter struct{}

func (fakeEmitter) Emit(_ events.Event) error { return nil }

func listApp(repo *fakeRepo) *fiber.App {
	svc := service.New(repo, fakeEmitter{}, zap.NewNop().Sugar())
	h := New(svc, nil)
	app := fiber.New()
	app.Get("/notifications", func(c *fiber.Ctx) error {
		c.Locals(middleware.ClaimsKey, &auth.Claims{UserID: "S1", Role: auth.RoleStudent})
		return c.Next()
	}, h.List)
	return app
}

func TestListRejectsNonNumericPagination(t *testing.T) {
	app := listApp(&fakeRepo{})
	for _, target := range []string{
		"/notifications?page=abc",
		"/notifications?limit=xyz",
		"/notifications?read=maybe",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, target)
	}
}

func TestListPassesFiltersThrough(t *testing.T) {
	repo := &fakeRepo{}
	app := listApp(repo)

	resp, err := app.Test(httptest.NewRequest("GET", "/notifications?page=3&limit=5&read=false&type=offer", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, repo.filter.Page)
	assert.EqualValues(t, 5, repo.filter.Limit)
	assert.Equal(t, "offer", repo.filter.Type)
	require.NotNil(t, repo.filter.Read)
	assert.False(t, *repo.filter.Read)
}
