// Package service implements the gate pass lifecycle business logic.
package service

import (
	"context"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/observability"
	"gatekeeper/internal/repository"
	"gatekeeper/internal/token"
	"gatekeeper/internal/validation"
)

// Decision is a mentor's verdict on a pending pass.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// RedemptionOutcome is the externally distinguishable result of a checkpoint
// scan. Nothing beyond these three values is ever revealed to the gate.
type RedemptionOutcome string

const (
	OutcomeAdmitted      RedemptionOutcome = "ADMITTED"
	OutcomeDeniedInvalid RedemptionOutcome = "DENIED_INVALID"
	OutcomeDeniedUsed    RedemptionOutcome = "DENIED_ALREADY_USED"
)

// RedemptionResult carries the outcome and, on admission, the pass for the
// checkpoint's audit display.
type RedemptionResult struct {
	Outcome RedemptionOutcome
	Pass    *models.GatePass
}

// EventPublisher receives best-effort lifecycle notifications. Publish
// failures are the publisher's problem; the service never blocks or rolls
// back on them.
type EventPublisher interface {
	PublishPassEvent(ctx context.Context, event string, pass *models.GatePass)
}

// Lifecycle event names handed to the EventPublisher.
const (
	EventPassApplied  = "pass.applied"
	EventPassDecided  = "pass.decided"
	EventPassRedeemed = "pass.redeemed"
)

// PassService implements the pass state machine: apply, decide, redeem.
// It never caches pass state across calls; every decision re-reads the store
// immediately before attempting its conditional write.
type PassService struct {
	passRepo repository.GatePassRepository
	userRepo repository.UserRepository
	events   EventPublisher
}

// NewPassService returns a new PassService.
func NewPassService(passRepo repository.GatePassRepository, userRepo repository.UserRepository, events EventPublisher) *PassService {
	return &PassService{
		passRepo: passRepo,
		userRepo: userRepo,
		events:   events,
	}
}

// Apply creates a PENDING pass for the student, resolving the assigned
// approver through the directory. The actor identity is an explicit argument;
// the service never reads ambient session state.
func (s *PassService) Apply(ctx context.Context, studentID uint, reason string) (*models.GatePass, error) {
	trimmed, err := validationReason(reason)
	if err != nil {
		return nil, err
	}

	approver, err := s.userRepo.ApproverFor(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if approver == nil {
		return nil, models.NewNoApproverError(studentID)
	}

	pass := &models.GatePass{
		StudentID: studentID,
		MentorID:  approver.ID,
		Reason:    trimmed,
		Status:    models.PassStatusPending,
		AppliedAt: time.Now().UTC(),
	}
	if err := s.passRepo.Create(ctx, pass); err != nil {
		return nil, err
	}

	observability.PassTransitions.WithLabelValues(string(models.PassStatusPending)).Inc()
	s.publish(ctx, EventPassApplied, pass)

	return pass, nil
}

// Decide resolves a PENDING pass. Approval issues the single-use credential
// as part of the same conditional transition, so two racing decide calls end
// with exactly one winner; the loser observes InvalidTransition.
func (s *PassService) Decide(ctx context.Context, passID string, approverID uint, decision Decision) (*models.GatePass, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, models.NewValidationError("Decision must be APPROVE or REJECT")
	}

	pass, err := s.passRepo.GetByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	if pass.MentorID != approverID {
		return nil, models.NewUnauthorizedError("Only the assigned approver can decide this pass")
	}
	if pass.Status != models.PassStatusPending {
		return nil, models.NewInvalidTransitionError("Pass has already been decided")
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"decided_at": now,
	}
	next := models.PassStatusRejected
	if decision == DecisionApprove {
		next = models.PassStatusApproved
		updates["token"] = token.Generate()
		updates["token_issued_at"] = now
		updates["token_active"] = true
	}
	updates["status"] = next

	updated, err := s.passRepo.Transition(ctx, passID, models.PassStatusPending, updates)
	if err != nil {
		if models.ErrorCode(err) == models.CodeTransitionConflict {
			// Another decide won between our read and write. The caller's
			// precondition is stale; surface it as a definitive outcome.
			return nil, models.NewInvalidTransitionError("Pass has already been decided")
		}
		return nil, err
	}

	observability.PassTransitions.WithLabelValues(string(next)).Inc()
	s.publish(ctx, EventPassDecided, updated)

	return updated, nil
}

// RedemptionRefFor returns the checkpoint reference for an approved pass the
// student presents at the gate. Denied for anyone but the pass owner.
func (s *PassService) RedemptionRefFor(ctx context.Context, passID string, studentID uint) (*token.RedemptionRef, error) {
	pass, err := s.passRepo.GetByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	if pass.StudentID != studentID {
		return nil, models.NewUnauthorizedError("Pass belongs to another student")
	}
	if pass.Status != models.PassStatusApproved || pass.Token == nil {
		return nil, models.NewInvalidTransitionError("Pass has no active credential")
	}
	return &token.RedemptionRef{PassID: pass.ID, Token: *pass.Token}, nil
}

// Redeem consumes a credential presented at the checkpoint, admitting at
// most once per token. The check-then-conditional-write shape is mandatory:
// the conditional transition collapses the race window between two scans of
// the same QR image to a single atomic compare-and-set at the store.
func (s *PassService) Redeem(ctx context.Context, ref token.RedemptionRef) (*RedemptionResult, error) {
	if !token.Valid(ref.Token) {
		return s.denied(observability.OutcomeDeniedInvalid), nil
	}

	pass, err := s.passRepo.GetByToken(ctx, ref.Token)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return s.denied(observability.OutcomeDeniedInvalid), nil
		}
		return nil, err
	}
	if pass.ID != ref.PassID {
		return s.denied(observability.OutcomeDeniedInvalid), nil
	}

	if pass.Status != models.PassStatusApproved || !pass.TokenActive {
		if pass.Status == models.PassStatusUtilized {
			return s.denied(observability.OutcomeDeniedUsed), nil
		}
		return s.denied(observability.OutcomeDeniedInvalid), nil
	}

	updated, err := s.passRepo.Transition(ctx, pass.ID, models.PassStatusApproved, map[string]interface{}{
		"status":       models.PassStatusUtilized,
		"token_active": false,
		"redeemed_at":  time.Now().UTC(),
	})
	if err != nil {
		switch models.ErrorCode(err) {
		case models.CodeTransitionConflict:
			// Another redemption won the race. Not an error to the caller;
			// the correct outcome of the race is a stable denial.
			observability.TransitionConflicts.Inc()
			return s.denied(observability.OutcomeDeniedUsed), nil
		case models.CodeNotFound:
			return s.denied(observability.OutcomeDeniedInvalid), nil
		}
		return nil, err
	}

	observability.PassTransitions.WithLabelValues(string(models.PassStatusUtilized)).Inc()
	observability.RedemptionOutcomes.WithLabelValues(observability.OutcomeAdmitted).Inc()
	s.publish(ctx, EventPassRedeemed, updated)

	return &RedemptionResult{Outcome: OutcomeAdmitted, Pass: updated}, nil
}

func (s *PassService) denied(metricOutcome string) *RedemptionResult {
	observability.RedemptionOutcomes.WithLabelValues(metricOutcome).Inc()
	out := OutcomeDeniedInvalid
	if metricOutcome == observability.OutcomeDeniedUsed {
		out = OutcomeDeniedUsed
	}
	return &RedemptionResult{Outcome: out}
}

func (s *PassService) publish(ctx context.Context, event string, pass *models.GatePass) {
	if s.events == nil {
		return
	}
	// Fire-and-forget; the publisher logs its own failures.
	s.events.PublishPassEvent(ctx, event, pass)
}

func validationReason(reason string) (string, error) {
	trimmed, err := validation.ValidateReason(reason)
	if err != nil {
		return "", models.NewValidationError(err.Error())
	}
	return trimmed, nil
}
