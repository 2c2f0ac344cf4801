package expense

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"expenseflow/internal/domain/auth"
	apperrors "expenseflow/internal/errors"
)

// Engine owns claim status once a claim leaves DRAFT.
type Engine struct {
	store      StoreAPI
	roster     Roster
	notifier   Notifier
	actors     ActorLookup
	recorder   Recorder
	logger     *zap.Logger
	tracer     trace.Tracer
	categories CategoryLookup
	threshold  decimal.Decimal
	policy     EditPolicy
	now        func() time.Time
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithThreshold(threshold decimal.Decimal) Option {
	return func(e *Engine) { e.threshold = threshold }
}

func WithEditPolicy(policy EditPolicy) Option {
	return func(e *Engine) { e.policy = policy }
}

func WithActorLookup(actors ActorLookup) Option {
	return func(e *Engine) { e.actors = actors }
}

// WithCategories validates category references on create and update. Without
// it any category id is accepted as is.
func WithCategories(categories CategoryLookup) Option {
	return func(e *Engine) { e.categories = categories }
}

func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(store StoreAPI, roster Roster, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		roster:    roster,
		notifier:  notifier,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("expenseflow/expense"),
		threshold: DefaultThreshold,
		policy:    DefaultEditPolicy(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Threshold() decimal.Decimal {
	return e.threshold
}

func (e *Engine) start(ctx context.Context, name string, actor auth.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("actor.id", actor.UserID), attribute.String("actor.role", string(actor.Role)))
	return e.tracer.Start(ctx, "expense."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func resourceOf(claim Claim) auth.Resource {
	return auth.Resource{OwnerID: claim.OwnerID, DepartmentID: claim.DepartmentID}
}

// Create stores a new DRAFT claim owned by actor and optionally submits it.
func (e *Engine) Create(ctx context.Context, actor auth.Actor, in ClaimInput) (res SubmitResult, err error) {
	ctx, span := e.start(ctx, "Create", actor)
	defer func() { finish(span, err) }()

	if err := auth.Authorize(actor, auth.PermCreateExpense); err != nil {
		return SubmitResult{}, err
	}
	if in.DepartmentID == "" {
		in.DepartmentID = actor.DepartmentID
	}
	if err := checkDepartment(actor, in.DepartmentID); err != nil {
		return SubmitResult{}, err
	}
	now := e.now()
	claim := Claim{
		ID:           uuid.NewString(),
		OwnerID:      actor.UserID,
		DepartmentID: in.DepartmentID,
		CategoryID:   strings.TrimSpace(in.CategoryID),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Amount:       in.Amount,
		Currency:     normalizeCurrency(in.Currency),
		Status:       StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validateClaim(claim); err != nil {
		return SubmitResult{}, err
	}
	if err := e.checkCategory(ctx, claim.CategoryID); err != nil {
		return SubmitResult{}, err
	}
	if err := e.store.CreateClaim(ctx, claim); err != nil {
		return SubmitResult{}, err
	}
	e.logger.Info("expense created", zap.String("expenseId", claim.ID), zap.String("ownerId", claim.OwnerID))
	e.record("created")

	if !in.SubmitOnCreate {
		return SubmitResult{Claim: claim}, nil
	}
	return e.submit(ctx, actor, claim)
}

// Submit moves an owned DRAFT claim to PENDING and assigns its approvers.
func (e *Engine) Submit(ctx context.Context, actor auth.Actor, claimID string) (res SubmitResult, err error) {
	ctx, span := e.start(ctx, "Submit", actor, attribute.String("expense.id", claimID))
	defer func() { finish(span, err) }()

	if err := auth.Authorize(actor, auth.PermCreateExpense); err != nil {
		return SubmitResult{}, err
	}
	claim, err := e.store.GetClaim(ctx, claimID)
	if err != nil {
		return SubmitResult{}, err
	}
	if claim.OwnerID != actor.UserID {
		if auth.CanView(actor, resourceOf(claim)) {
			return SubmitResult{}, apperrors.ErrForbidden.With("action", "submit")
		}
		return SubmitResult{}, ErrClaimNotFound
	}
	return e.submit(ctx, actor, claim)
}

func (e *Engine) submit(ctx context.Context, actor auth.Actor, claim Claim) (SubmitResult, error) {
	if claim.Status != StatusDraft {
		return SubmitResult{}, ErrNotDraft
	}
	approvers, err := e.assignApprovers(ctx, claim)
	if err != nil {
		return SubmitResult{}, err
	}
	at := e.now()
	records, err := e.store.SubmitClaim(ctx, claim.ID, approvers, at)
	if err != nil {
		return SubmitResult{}, err
	}
	claim.Status = StatusPending
	claim.SubmittedAt = &at
	claim.UpdatedAt = at

	result := SubmitResult{Claim: claim, Approvals: records, Unassigned: len(records) == 0}
	if result.Unassigned {
		e.logger.Warn("expense submitted without approvers",
			zap.String("expenseId", claim.ID),
			zap.String("departmentId", claim.DepartmentID),
			zap.String("amount", claim.Amount.String()),
		)
		e.record("unassigned")
	}
	e.logger.Info("expense submitted", zap.String("expenseId", claim.ID), zap.Strings("approverIds", approvers))
	e.record("submitted")

	for _, rec := range records {
		e.notify(ctx, rec.ApproverID, KindApprovalRequested, map[string]any{
			"title":      "New Expense Approval Required",
			"message":    fmt.Sprintf("%q for %s %s is waiting for your review.", claim.Title, claim.Amount.StringFixed(2), claim.Currency),
			"expenseId":  claim.ID,
			"approvalId": rec.ID,
		})
	}
	e.notify(ctx, claim.OwnerID, KindExpenseSubmitted, map[string]any{
		"title":     "Expense Submitted Successfully",
		"message":   fmt.Sprintf("Your expense %q for %s %s has been submitted for approval.", claim.Title, claim.Amount.StringFixed(2), claim.Currency),
		"expenseId": claim.ID,
	})
	return result, nil
}

// Decide applies actor's decision to one of their PENDING approval records and
// recomputes the claim status from the full record set.
func (e *Engine) Decide(ctx context.Context, actor auth.Actor, recordID string, decision Decision, comments string) (res DecideResult, err error) {
	ctx, span := e.start(ctx, "Decide", actor, attribute.String("approval.id", recordID), attribute.String("decision", string(decision)))
	defer func() { finish(span, err) }()

	if err := auth.Require(actor); err != nil {
		return DecideResult{}, err
	}
	if !decision.IsDecision() {
		return DecideResult{}, ErrInvalidDecision
	}
	comments = strings.TrimSpace(comments)
	if decision == RecordRejected && comments == "" {
		return DecideResult{}, ErrCommentsRequired
	}

	rec, err := e.store.GetApprovalRecord(ctx, recordID)
	if err != nil {
		return DecideResult{}, err
	}
	if rec.ApproverID != actor.UserID {
		return DecideResult{}, ErrNotYourApproval
	}
	claim, err := e.store.GetClaim(ctx, rec.ExpenseID)
	if err != nil {
		return DecideResult{}, err
	}
	if err := auth.AuthorizeApprove(actor, resourceOf(claim)); err != nil {
		return DecideResult{}, err
	}
	if decision == RecordRejected {
		if err := auth.Authorize(actor, auth.PermRejectExpenses); err != nil {
			return DecideResult{}, err
		}
	}
	if rec.Status != RecordPending {
		return DecideResult{}, ErrAlreadyDecided
	}

	at := e.now()
	ok, err := e.store.ConditionalDecide(ctx, rec.ID, RecordPending, decision, comments, at)
	if err != nil {
		return DecideResult{}, err
	}
	if !ok {
		e.record("conflict")
		return DecideResult{}, ErrAlreadyDecided
	}
	rec.Status = decision
	rec.Comments = comments
	rec.DecidedAt = &at
	e.logger.Info("approval decided",
		zap.String("approvalId", rec.ID),
		zap.String("expenseId", claim.ID),
		zap.String("approverId", actor.UserID),
		zap.String("decision", string(decision)),
	)
	e.record(strings.ToLower(string(decision)))

	status, changed, err := e.recompute(ctx, claim.ID)
	if err != nil {
		return DecideResult{Record: rec}, err
	}
	if changed {
		e.notifyOutcome(ctx, claim, status, comments)
	}
	return DecideResult{Record: rec, ClaimStatus: status, Finalized: changed}, nil
}

// recompute re-reads every record of the claim and replaces its status. Only
// a PENDING claim is ever written, so PAID and settled outcomes are never
// overwritten and exactly one caller observes the transition.
func (e *Engine) recompute(ctx context.Context, claimID string) (Status, bool, error) {
	records, err := e.store.ListApprovalRecords(ctx, claimID)
	if err != nil {
		return "", false, err
	}
	status := ComputeStatus(records)
	if status == StatusPending {
		return status, false, nil
	}
	changed, err := e.store.SetClaimStatus(ctx, claimID, status, StatusPending)
	if err != nil {
		return "", false, err
	}
	if changed {
		e.logger.Info("expense status recomputed", zap.String("expenseId", claimID), zap.String("status", string(status)))
		e.record("finalized_" + strings.ToLower(string(status)))
	}
	return status, changed, nil
}

func (e *Engine) notifyOutcome(ctx context.Context, claim Claim, status Status, comments string) {
	kind := KindExpenseApproved
	if status == StatusRejected {
		kind = KindExpenseRejected
	}
	verb := strings.ToLower(string(status))
	message := fmt.Sprintf("Your expense %q has been %s", claim.Title, verb)
	if comments != "" {
		message += ": " + comments
	}
	e.notify(ctx, claim.OwnerID, kind, map[string]any{
		"title":     "Expense " + verb,
		"message":   message,
		"expenseId": claim.ID,
		"status":    string(status),
		"comments":  comments,
		"link":      "/expenses/" + claim.ID,
	})
}

// Get returns a claim the actor may view.
func (e *Engine) Get(ctx context.Context, actor auth.Actor, claimID string) (claim Claim, err error) {
	ctx, span := e.start(ctx, "Get", actor, attribute.String("expense.id", claimID))
	defer func() { finish(span, err) }()
	return e.load(ctx, actor, claimID)
}

func (e *Engine) load(ctx context.Context, actor auth.Actor, claimID string) (Claim, error) {
	if err := auth.Require(actor); err != nil {
		return Claim{}, err
	}
	claim, err := e.store.GetClaim(ctx, claimID)
	if err != nil {
		return Claim{}, err
	}
	if err := auth.AuthorizeView(actor, resourceOf(claim)); err != nil {
		return Claim{}, err
	}
	return claim, nil
}

// List returns the claims inside the actor's view scope.
func (e *Engine) List(ctx context.Context, actor auth.Actor, filter ListFilter) (page ClaimPage, err error) {
	ctx, span := e.start(ctx, "List", actor)
	defer func() { finish(span, err) }()

	scope, err := auth.ResolveScope(actor)
	if err != nil {
		return ClaimPage{}, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return ClaimPage{}, validation("status", "unknown status")
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	span.SetAttributes(attribute.String("scope", scope.String()))
	return e.store.ListClaims(ctx, scope, filter)
}

// Update applies patch to a claim the actor may edit in its current state.
func (e *Engine) Update(ctx context.Context, actor auth.Actor, claimID string, patch ClaimPatch) (claim Claim, err error) {
	ctx, span := e.start(ctx, "Update", actor, attribute.String("expense.id", claimID))
	defer func() { finish(span, err) }()

	claim, err = e.load(ctx, actor, claimID)
	if err != nil {
		return Claim{}, err
	}
	if err := auth.AuthorizeEdit(actor, resourceOf(claim)); err != nil {
		return Claim{}, err
	}
	var records []ApprovalRecord
	if claim.Status == StatusPending {
		if records, err = e.store.ListApprovalRecords(ctx, claim.ID); err != nil {
			return Claim{}, err
		}
	}
	if !e.policy.Editable(actor, claim, records) {
		return Claim{}, ErrNotEditable
	}
	if claim.Status != StatusDraft && patch.touchesRouting(claim) {
		return Claim{}, ErrRoutingLocked
	}

	expected := claim.Status
	if patch.Title != nil {
		claim.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		claim.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Amount != nil {
		claim.Amount = *patch.Amount
	}
	if patch.Currency != nil {
		claim.Currency = normalizeCurrency(*patch.Currency)
	}
	if patch.DepartmentID != nil {
		if err := checkDepartment(actor, *patch.DepartmentID); err != nil {
			return Claim{}, err
		}
		claim.DepartmentID = *patch.DepartmentID
	}
	if patch.CategoryID != nil {
		categoryID := strings.TrimSpace(*patch.CategoryID)
		if categoryID != claim.CategoryID {
			if err := e.checkCategory(ctx, categoryID); err != nil {
				return Claim{}, err
			}
		}
		claim.CategoryID = categoryID
	}
	if err := validateClaim(claim); err != nil {
		return Claim{}, err
	}
	claim.UpdatedAt = e.now()

	ok, err := e.store.UpdateClaim(ctx, claim, expected)
	if err != nil {
		return Claim{}, err
	}
	if !ok {
		return Claim{}, ErrNotEditable
	}
	return claim, nil
}

// Delete removes a claim. APPROVED claims need an ADMIN; PAID claims stay.
func (e *Engine) Delete(ctx context.Context, actor auth.Actor, claimID string) (err error) {
	ctx, span := e.start(ctx, "Delete", actor, attribute.String("expense.id", claimID))
	defer func() { finish(span, err) }()

	claim, err := e.load(ctx, actor, claimID)
	if err != nil {
		return err
	}
	if err := auth.AuthorizeDelete(actor, resourceOf(claim)); err != nil {
		return err
	}
	switch claim.Status {
	case StatusPaid:
		return ErrPaidNotDeleted
	case StatusApproved:
		if actor.Role != auth.RoleAdmin {
			return ErrAdminOverride
		}
	}
	ok, err := e.store.DeleteClaim(ctx, claim.ID, claim.Status)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotEditable
	}
	e.logger.Info("expense deleted", zap.String("expenseId", claim.ID), zap.String("actorId", actor.UserID), zap.String("status", string(claim.Status)))
	return nil
}

// PendingForApprover lists the actor's own outstanding approval records,
// whatever their role.
func (e *Engine) PendingForApprover(ctx context.Context, actor auth.Actor) (items []PendingApproval, err error) {
	ctx, span := e.start(ctx, "PendingForApprover", actor)
	defer func() { finish(span, err) }()

	if err := auth.Require(actor); err != nil {
		return nil, err
	}
	return e.store.ListPendingApprovals(ctx, auth.OwnerScope(actor.UserID))
}

// Approvals returns the approval records of a claim the actor may view.
func (e *Engine) Approvals(ctx context.Context, actor auth.Actor, claimID string) (records []ApprovalRecord, err error) {
	ctx, span := e.start(ctx, "Approvals", actor, attribute.String("expense.id", claimID))
	defer func() { finish(span, err) }()

	claim, err := e.load(ctx, actor, claimID)
	if err != nil {
		return nil, err
	}
	return e.store.ListApprovalRecords(ctx, claim.ID)
}

// AssignApprover adds one approver to a PENDING claim. It is the recovery
// path for claims submitted while no eligible approver existed.
func (e *Engine) AssignApprover(ctx context.Context, actor auth.Actor, claimID, approverID string) (rec ApprovalRecord, err error) {
	ctx, span := e.start(ctx, "AssignApprover", actor, attribute.String("expense.id", claimID), attribute.String("approver.id", approverID))
	defer func() { finish(span, err) }()

	if err := auth.Authorize(actor, auth.PermUpdateAnyExpense); err != nil {
		return ApprovalRecord{}, err
	}
	if err := auth.Authorize(actor, auth.PermManageSystemSettings); err != nil {
		return ApprovalRecord{}, err
	}
	if strings.TrimSpace(approverID) == "" {
		return ApprovalRecord{}, validation("approverId", "approverId is required")
	}
	if e.actors == nil {
		return ApprovalRecord{}, apperrors.New(apperrors.CodeInternal, "approver lookup is not configured")
	}
	claim, err := e.load(ctx, actor, claimID)
	if err != nil {
		return ApprovalRecord{}, err
	}
	if claim.Status != StatusPending {
		return ApprovalRecord{}, ErrNotPending
	}
	if approverID == claim.OwnerID {
		return ApprovalRecord{}, apperrors.ErrSelfApprovalForbidden
	}
	target, err := e.actors.Actor(ctx, approverID)
	if err != nil {
		return ApprovalRecord{}, err
	}
	if !auth.CanApprove(target, resourceOf(claim)) {
		return ApprovalRecord{}, ErrIneligibleApprover
	}
	existing, err := e.store.ListApprovalRecords(ctx, claim.ID)
	if err != nil {
		return ApprovalRecord{}, err
	}
	if slices.ContainsFunc(existing, func(r ApprovalRecord) bool { return r.ApproverID == approverID }) {
		return ApprovalRecord{}, ErrAlreadyAssigned
	}
	created, err := e.store.CreateApprovalRecords(ctx, claim.ID, []string{approverID})
	if err != nil {
		return ApprovalRecord{}, err
	}
	if len(created) != 1 {
		return ApprovalRecord{}, apperrors.New(apperrors.CodeInternal, "approval record was not created")
	}
	if _, _, err := e.recompute(ctx, claim.ID); err != nil {
		return created[0], err
	}
	e.logger.Info("approver assigned manually",
		zap.String("expenseId", claim.ID),
		zap.String("approverId", approverID),
		zap.String("actorId", actor.UserID),
	)
	e.record("assigned")
	e.notify(ctx, approverID, KindApprovalRequested, map[string]any{
		"title":      "New Expense Approval Required",
		"message":    fmt.Sprintf("%q for %s %s is waiting for your review.", claim.Title, claim.Amount.StringFixed(2), claim.Currency),
		"expenseId":  claim.ID,
		"approvalId": created[0].ID,
	})
	return created[0], nil
}

// MarkPaid records the external payment of an APPROVED claim.
func (e *Engine) MarkPaid(ctx context.Context, actor auth.Actor, claimID string) (claim Claim, err error) {
	ctx, span := e.start(ctx, "MarkPaid", actor, attribute.String("expense.id", claimID))
	defer func() { finish(span, err) }()

	if err := auth.Authorize(actor, auth.PermUpdateAnyExpense); err != nil {
		return Claim{}, err
	}
	if actor.Role != auth.RoleFinance && actor.Role != auth.RoleAdmin {
		return Claim{}, apperrors.ErrForbidden.With("action", "pay")
	}
	claim, err = e.load(ctx, actor, claimID)
	if err != nil {
		return Claim{}, err
	}
	if claim.Status != StatusApproved {
		return Claim{}, ErrNotApproved
	}
	ok, err := e.store.SetClaimStatus(ctx, claim.ID, StatusPaid, StatusApproved)
	if err != nil {
		return Claim{}, err
	}
	if !ok {
		return Claim{}, ErrNotApproved
	}
	claim.Status = StatusPaid
	claim.UpdatedAt = e.now()
	e.record("paid")
	e.notify(ctx, claim.OwnerID, KindExpensePaid, map[string]any{
		"title":     "Expense paid",
		"message":   fmt.Sprintf("Your expense %q has been paid.", claim.Title),
		"expenseId": claim.ID,
	})
	return claim, nil
}

func (e *Engine) notify(ctx context.Context, userID, kind string, payload map[string]any) {
	if e.notifier == nil || userID == "" {
		return
	}
	if err := e.notifier.Notify(ctx, userID, kind, payload); err != nil {
		e.logger.Warn("notification failed", zap.String("userId", userID), zap.String("kind", kind), zap.Error(err))
	}
}

func (e *Engine) record(event string) {
	if e.recorder != nil {
		e.recorder.RecordWorkflow(event)
	}
}

// checkCategory accepts an empty id; anything else must name an active category.
func (e *Engine) checkCategory(ctx context.Context, categoryID string) error {
	if categoryID == "" || e.categories == nil {
		return nil
	}
	active, err := e.categories.CategoryActive(ctx, categoryID)
	if err != nil {
		return err
	}
	if !active {
		return ErrUnknownCategory
	}
	return nil
}

func checkDepartment(actor auth.Actor, departmentID string) error {
	if departmentID == actor.DepartmentID || auth.HasPermission(actor.Role, auth.PermUpdateAnyExpense) {
		return nil
	}
	return apperrors.ErrForbidden.With("field", "departmentId")
}

func validateClaim(claim Claim) error {
	if claim.Title == "" {
		return validation("title", "title is required")
	}
	if len(claim.Title) > maxTitleLength {
		return validation("title", "title is too long")
	}
	if !claim.Amount.IsPositive() {
		return validation("amount", "amount must be greater than zero")
	}
	if !claim.Amount.Equal(claim.Amount.Round(2)) {
		return validation("amount", "amount supports at most two decimal places")
	}
	if len(claim.Currency) != 3 {
		return validation("currency", "currency must be a three letter code")
	}
	return nil
}

func normalizeCurrency(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return DefaultCurrency
	}
	return value
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
