package repository

import (
	"context"
	"testing"
	"time"

	"gatekeeper/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPassTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.GatePass{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func createPendingPass(t *testing.T, repo GatePassRepository) *models.GatePass {
	t.Helper()
	pass := &models.GatePass{
		StudentID: 1,
		MentorID:  2,
		Reason:    "clinic visit",
		Status:    models.PassStatusPending,
		AppliedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), pass); err != nil {
		t.Fatalf("create pass: %v", err)
	}
	if pass.ID == "" {
		t.Fatal("expected generated pass id")
	}
	return pass
}

func TestGatePassRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	repo := NewGatePassRepository(setupPassTestDB(t))
	pass := createPendingPass(t, repo)

	got, err := repo.GetByID(context.Background(), pass.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.PassStatusPending || got.Token != nil {
		t.Fatalf("unexpected fresh pass state: %+v", got)
	}

	_, err = repo.GetByID(context.Background(), "missing-id")
	if models.ErrorCode(err) != models.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGatePassRepository_TransitionApprove(t *testing.T) {
	t.Parallel()
	repo := NewGatePassRepository(setupPassTestDB(t))
	pass := createPendingPass(t, repo)

	now := time.Now().UTC()
	updated, err := repo.Transition(context.Background(), pass.ID, models.PassStatusPending, map[string]interface{}{
		"status":          models.PassStatusApproved,
		"decided_at":      now,
		"token":           "AB12CD34EF",
		"token_issued_at": now,
		"token_active":    true,
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.Status != models.PassStatusApproved {
		t.Fatalf("expected APPROVED, got %s", updated.Status)
	}
	if updated.Token == nil || *updated.Token != "AB12CD34EF" || !updated.TokenActive {
		t.Fatalf("token fields not applied: %+v", updated)
	}

	got, err := repo.GetByToken(context.Background(), "AB12CD34EF")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got.ID != pass.ID {
		t.Fatalf("GetByToken returned pass %s, want %s", got.ID, pass.ID)
	}
}

func TestGatePassRepository_TransitionConflict(t *testing.T) {
	t.Parallel()
	repo := NewGatePassRepository(setupPassTestDB(t))
	pass := createPendingPass(t, repo)

	now := time.Now().UTC()
	if _, err := repo.Transition(context.Background(), pass.ID, models.PassStatusPending, map[string]interface{}{
		"status":     models.PassStatusRejected,
		"decided_at": now,
	}); err != nil {
		t.Fatalf("first Transition: %v", err)
	}

	// The same precondition no longer holds: conditional write must refuse.
	_, err := repo.Transition(context.Background(), pass.ID, models.PassStatusPending, map[string]interface{}{
		"status":     models.PassStatusApproved,
		"decided_at": now,
	})
	if models.ErrorCode(err) != models.CodeTransitionConflict {
		t.Fatalf("expected TRANSITION_CONFLICT, got %v", err)
	}

	// And the record must be untouched by the losing write.
	got, err := repo.GetByID(context.Background(), pass.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.PassStatusRejected {
		t.Fatalf("loser overwrote state: %s", got.Status)
	}
}

func TestGatePassRepository_TransitionMissingPass(t *testing.T) {
	t.Parallel()
	repo := NewGatePassRepository(setupPassTestDB(t))

	_, err := repo.Transition(context.Background(), "missing-id", models.PassStatusPending, map[string]interface{}{
		"status": models.PassStatusRejected,
	})
	if models.ErrorCode(err) != models.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGatePassRepository_TokenUniqueIndex(t *testing.T) {
	t.Parallel()
	repo := NewGatePassRepository(setupPassTestDB(t))
	first := createPendingPass(t, repo)
	second := createPendingPass(t, repo)

	now := time.Now().UTC()
	approve := func(id string) error {
		_, err := repo.Transition(context.Background(), id, models.PassStatusPending, map[string]interface{}{
			"status":          models.PassStatusApproved,
			"decided_at":      now,
			"token":           "SAMETOKEN1",
			"token_issued_at": now,
			"token_active":    true,
		})
		return err
	}

	if err := approve(first.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	err := approve(second.ID)
	if models.ErrorCode(err) != models.CodeValidation {
		t.Fatalf("expected defensive uniqueness rejection, got %v", err)
	}

	// The losing pass must still be PENDING and token-free.
	got, _ := repo.GetByID(context.Background(), second.ID)
	if got.Status != models.PassStatusPending || got.Token != nil {
		t.Fatalf("collision corrupted pass: %+v", got)
	}
}

func TestGatePassRepository_ListFilters(t *testing.T) {
	t.Parallel()
	db := setupPassTestDB(t)
	repo := NewGatePassRepository(db)

	base := time.Now().UTC()
	seed := []models.GatePass{
		{StudentID: 1, MentorID: 2, Reason: "clinic", Status: models.PassStatusPending, AppliedAt: base},
		{StudentID: 1, MentorID: 2, Reason: "library", Status: models.PassStatusRejected, AppliedAt: base.Add(time.Minute)},
		{StudentID: 3, MentorID: 2, Reason: "home", Status: models.PassStatusPending, AppliedAt: base.Add(2 * time.Minute)},
		{StudentID: 4, MentorID: 5, Reason: "sports", Status: models.PassStatusPending, AppliedAt: base.Add(3 * time.Minute)},
	}
	for i := range seed {
		if err := repo.Create(context.Background(), &seed[i]); err != nil {
			t.Fatalf("seed create: %v", err)
		}
	}

	byStudent, err := repo.List(context.Background(), PassFilter{StudentID: 1})
	if err != nil {
		t.Fatalf("List by student: %v", err)
	}
	if len(byStudent) != 2 {
		t.Fatalf("expected 2 passes for student 1, got %d", len(byStudent))
	}

	byMentorPending, err := repo.List(context.Background(), PassFilter{MentorID: 2, Status: models.PassStatusPending})
	if err != nil {
		t.Fatalf("List by mentor+status: %v", err)
	}
	if len(byMentorPending) != 2 {
		t.Fatalf("expected 2 pending passes for mentor 2, got %d", len(byMentorPending))
	}

	// Newest first.
	all, err := repo.List(context.Background(), PassFilter{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 4 || !all[0].AppliedAt.After(all[3].AppliedAt) {
		t.Fatalf("expected 4 passes ordered newest first, got %d", len(all))
	}
}
