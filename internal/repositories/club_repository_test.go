package repositories

import (
	"context"
	"errors"
	"testing"

	"sports_club_backend/internal/models"
)

func TestMemoryClubRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryClubRepository()

	club := &models.SportsClub{ID: "c1", Name: "Riverside", SpreadsheetID: "club-c1", OwnerEmail: "Owner@Example.com", Editors: []string{" Coach@Example.com "}}
	if err := repo.CreateClub(ctx, club); err != nil {
		t.Fatalf("CreateClub failed: %v", err)
	}
	if club.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}
	dup := &models.SportsClub{ID: "c2", Name: "Copy", SpreadsheetID: "club-c1"}
	if err := repo.CreateClub(ctx, dup); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for a shared spreadsheet, got %v", err)
	}

	got, err := repo.GetClubByID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetClubByID failed: %v", err)
	}
	if got.OwnerEmail != "owner@example.com" || len(got.Editors) != 1 || got.Editors[0] != "coach@example.com" {
		t.Errorf("expected normalized emails, got %+v", got)
	}
	got.Editors[0] = "mutated"
	again, _ := repo.GetClubByID(ctx, "c1")
	if again.Editors[0] != "coach@example.com" {
		t.Errorf("callers must not share the stored slices")
	}

	byEmail, _ := repo.GetClubsByEmail(ctx, "COACH@example.com")
	if len(byEmail) != 1 {
		t.Errorf("expected 1 club for the coach, got %d", len(byEmail))
	}
	none, _ := repo.GetClubsByEmail(ctx, "nobody@example.com")
	if len(none) != 0 {
		t.Errorf("expected no clubs, got %d", len(none))
	}

	got.Name = "Riverside FC"
	if err := repo.UpdateClub(ctx, got); err != nil {
		t.Fatalf("UpdateClub failed: %v", err)
	}
	renamed, _ := repo.GetClubByID(ctx, "c1")
	if renamed.Name != "Riverside FC" {
		t.Errorf("unexpected club %+v", renamed)
	}

	other := &models.SportsClub{ID: "c3", Name: "Hillside", SpreadsheetID: "club-c3", OwnerEmail: "other@example.com"}
	if err := repo.CreateClub(ctx, other); err != nil {
		t.Fatalf("CreateClub failed: %v", err)
	}
	moved := *other
	moved.SpreadsheetID = "club-c1"
	if err := repo.UpdateClub(ctx, &moved); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey when moving onto another club's spreadsheet, got %v", err)
	}
	if kept, _ := repo.GetClubByID(ctx, "c3"); kept.SpreadsheetID != "club-c3" {
		t.Errorf("expected the spreadsheet to stay club-c3, got %s", kept.SpreadsheetID)
	}
	if _, err := repo.GetClubByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateClub(ctx, &models.SportsClub{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
