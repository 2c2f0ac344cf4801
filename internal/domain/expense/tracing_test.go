package expense_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"expenseflow/internal/domain/expense"
)

func spanAttr(span sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range span.Attributes() {
		if kv.Key == attribute.Key(key) {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestEngineRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	f := newFixture(t, fullRoster(), expense.WithTracer(provider.Tracer("test")))
	ctx := context.Background()

	res, err := f.engine.Create(ctx, employee, expense.ClaimInput{Title: "Taxi", Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)

	_, err = f.engine.Submit(ctx, manager, res.Claim.ID)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	create := spans[0]
	assert.Equal(t, "expense.Create", create.Name())
	assert.Equal(t, codes.Unset, create.Status().Code)
	assert.Equal(t, employee.UserID, spanAttr(create, "actor.id"))

	submit := spans[1]
	assert.Equal(t, "expense.Submit", submit.Name())
	assert.Equal(t, codes.Error, submit.Status().Code)
	assert.Equal(t, res.Claim.ID, spanAttr(submit, "expense.id"))
	assert.Equal(t, string(manager.Role), spanAttr(submit, "actor.role"))
	assert.NotEmpty(t, submit.Events(), "error should be recorded as a span event")
}
