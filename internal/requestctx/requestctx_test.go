package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"expenseflow/internal/domain/auth"
)

func TestRequestIDRoundTrip(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestActorRoundTrip(t *testing.T) {
	_, ok := Actor(context.Background())
	assert.False(t, ok)

	want := auth.Actor{UserID: "u-1", Role: auth.RoleManager, DepartmentID: "sales", Active: true}
	got, ok := Actor(WithActor(context.Background(), want))
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
