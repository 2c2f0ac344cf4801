package shared

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/requestctx"
)

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// RecordAudit stamps entry with the request metadata and records it. A
// failed write is logged; the mutation it describes has already happened.
func RecordAudit(r *http.Request, recorder AuditRecorder, actor auth.Actor, entry audit.Entry) {
	if recorder == nil {
		return
	}
	entry.ActorID = actor.UserID
	entry.RequestID = requestctx.GetRequestID(r.Context())
	entry.IP = ClientIP(r)
	if err := recorder.Record(r.Context(), entry); err != nil {
		zap.L().Warn("audit record failed",
			zap.String("action", entry.Action),
			zap.String("entityId", entry.EntityID),
			zap.Error(err),
		)
	}
}
