package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"athena/interview/internal/models"
	"athena/interview/internal/testhelpers"

	"github.com/google/uuid"
)

func newLockoutRepos(t *testing.T) (*LockoutRepository, *AttemptRepository) {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	return &LockoutRepository{DB: db}, &AttemptRepository{DB: db}
}

func TestLockoutRepository_Holds(t *testing.T) {
	repo, _ := newLockoutRepos(t)
	ctx := context.Background()

	hold, err := repo.GetHold(ctx, "u1")
	if err != nil || hold != nil {
		t.Fatalf("expected no hold, got %+v (%v)", hold, err)
	}

	if err := repo.SetHold(ctx, &models.AdminHold{UserID: "u1", Reason: "first", SetBy: "admin"}); err != nil {
		t.Fatalf("SetHold returned error: %v", err)
	}
	if err := repo.SetHold(ctx, &models.AdminHold{UserID: "u1", Reason: "second", SetBy: "admin"}); err != nil {
		t.Fatalf("SetHold upsert returned error: %v", err)
	}
	hold, err = repo.GetHold(ctx, "u1")
	if err != nil || hold == nil || hold.Reason != "second" {
		t.Fatalf("expected replaced hold, got %+v (%v)", hold, err)
	}

	if err := repo.ClearHold(ctx, "u1"); err != nil {
		t.Fatalf("ClearHold returned error: %v", err)
	}
	if err := repo.ClearHold(ctx, "u1"); !errors.Is(err, ErrHoldNotFound) {
		t.Fatalf("expected ErrHoldNotFound, got %v", err)
	}
}

func TestLockoutRepository_OnePendingRequestPerUser(t *testing.T) {
	repo, _ := newLockoutRepos(t)
	ctx := context.Background()

	first := &models.UnlockRequest{ID: uuid.New().String(), UserID: "u1", AttemptID: "a1", Status: models.UnlockPending}
	if err := repo.CreateUnlockRequest(ctx, first); err != nil {
		t.Fatalf("CreateUnlockRequest returned error: %v", err)
	}
	second := &models.UnlockRequest{ID: uuid.New().String(), UserID: "u1", AttemptID: "a1", Status: models.UnlockPending}
	if err := repo.CreateUnlockRequest(ctx, second); err == nil {
		t.Fatal("expected second pending request to be rejected")
	}

	pending, err := repo.HasPendingRequest(ctx, "u1")
	if err != nil || !pending {
		t.Fatalf("expected pending request, got %v (%v)", pending, err)
	}

	if _, err := repo.ResolveUnlockRequest(ctx, first.ID, false, "admin", time.Now()); err != nil {
		t.Fatalf("ResolveUnlockRequest returned error: %v", err)
	}
	if err := repo.CreateUnlockRequest(ctx, second); err != nil {
		t.Fatalf("new request after resolution should be allowed: %v", err)
	}
}

func TestLockoutRepository_ApprovalClearsAbandonedLock(t *testing.T) {
	repo, attempts := newLockoutRepos(t)
	ctx := context.Background()

	abandoned := &models.InterviewAttempt{
		ID: uuid.New().String(), UserID: "u1", AttemptNumber: 1, Status: models.StatusAbandoned,
		PromptVersionID: "pv", EvaluatorVersionID: "ev", ArtifactKey: "k",
	}
	if err := attempts.Create(ctx, abandoned); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	req := &models.UnlockRequest{ID: uuid.New().String(), UserID: "u1", AttemptID: abandoned.ID, Status: models.UnlockPending}
	repo.CreateUnlockRequest(ctx, req)

	resolved, err := repo.ResolveUnlockRequest(ctx, req.ID, true, "admin", time.Now())
	if err != nil {
		t.Fatalf("ResolveUnlockRequest returned error: %v", err)
	}
	if resolved.Status != models.UnlockApproved || resolved.ResolvedBy != "admin" {
		t.Fatalf("unexpected resolution: %+v", resolved)
	}

	got, _ := attempts.FindByID(ctx, abandoned.ID)
	if got.LockClearedAt == nil {
		t.Fatal("expected abandoned attempt lock to be cleared")
	}

	if _, err := repo.ResolveUnlockRequest(ctx, req.ID, true, "admin", time.Now()); !errors.Is(err, ErrUnlockRequestResolved) {
		t.Fatalf("expected ErrUnlockRequestResolved, got %v", err)
	}
	if _, err := repo.ResolveUnlockRequest(ctx, "missing", true, "admin", time.Now()); !errors.Is(err, ErrUnlockRequestNotFound) {
		t.Fatalf("expected ErrUnlockRequestNotFound, got %v", err)
	}

	list, err := repo.ListUnlockRequests(ctx, models.UnlockApproved, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one approved request, got %+v (%v)", list, err)
	}
}
