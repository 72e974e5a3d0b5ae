package repositories

import (
	"errors"
	"path/filepath"
	"testing"

	"sports_club_backend/internal/models"
)

func TestWorkbook(t *testing.T) {
	t.Run("memory workbook", func(t *testing.T) {
		w := NewMemoryWorkbook("mem")
		if ok, _ := w.SheetExists("Members"); ok {
			t.Fatalf("expected no Members sheet yet")
		}
		if _, err := w.ReadSheet("Members"); !errors.Is(err, ErrSheetNotFound) {
			t.Fatalf("expected ErrSheetNotFound, got %v", err)
		}
		if err := w.CreateSheet("Members", []string{"ID", "Name"}); err != nil {
			t.Fatalf("CreateSheet failed: %v", err)
		}
		if ok, _ := w.SheetExists(defaultSheet); ok {
			t.Errorf("expected the empty default sheet to be removed")
		}
		if err := w.AppendRow("Members", []string{"1", "Ann"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		if err := w.AppendRow("Members", []string{"2", "Bob"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		if err := w.WriteRow("Members", 2, []string{"1", "Anna"}); err != nil {
			t.Fatalf("WriteRow failed: %v", err)
		}
		rows, err := w.ReadSheet("Members")
		if err != nil {
			t.Fatalf("ReadSheet failed: %v", err)
		}
		if len(rows) != 3 || rows[1][1] != "Anna" || rows[2][1] != "Bob" {
			t.Errorf("unexpected rows %v", rows)
		}
		if err := w.WriteRow("Members", 0, []string{"x"}); err == nil {
			t.Errorf("expected an error for row 0")
		}
	})

	t.Run("file workbook survives reopening", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "clubs", "club-1.xlsx")
		w, err := OpenWorkbook("club-1", path)
		if err != nil {
			t.Fatalf("OpenWorkbook failed: %v", err)
		}
		if err := w.CreateSheet("Sports", []string{"Name"}); err != nil {
			t.Fatalf("CreateSheet failed: %v", err)
		}
		if err := w.AppendRow("Sports", []string{"Tennis"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened, err := OpenWorkbook("club-1", path)
		if err != nil {
			t.Fatalf("reopening failed: %v", err)
		}
		defer reopened.Close()
		rows, err := reopened.ReadSheet("Sports")
		if err != nil {
			t.Fatalf("ReadSheet failed: %v", err)
		}
		if len(rows) != 2 || rows[1][0] != "Tennis" {
			t.Errorf("unexpected rows %v", rows)
		}
	})
}

func TestWorkbookPool(t *testing.T) {
	pool := NewWorkbookPool("")
	a, err := pool.Get("club-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	again, _ := pool.Get(" club-a ")
	if a != again {
		t.Errorf("expected the same workbook for the same id")
	}
	for _, bad := range []string{"", "../etc/passwd", "a b", "-lead"} {
		if _, err := pool.Get(bad); !errors.Is(err, ErrInvalidSpreadsheetID) {
			t.Errorf("Get(%q): expected ErrInvalidSpreadsheetID, got %v", bad, err)
		}
	}
	if ok, err := pool.Exists("club-a"); err != nil || !ok {
		t.Errorf("expected club-a to exist, got %v, %v", ok, err)
	}
	if ok, err := pool.Exists("club-b"); err != nil || ok {
		t.Errorf("expected club-b not to exist, got %v, %v", ok, err)
	}
	if _, err := pool.Exists("../x"); !errors.Is(err, ErrInvalidSpreadsheetID) {
		t.Errorf("expected ErrInvalidSpreadsheetID, got %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestWorkbookPoolExistsOnDisk(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWorkbook("club-disk", filepath.Join(dir, "club-disk.xlsx"))
	if err != nil {
		t.Fatalf("OpenWorkbook failed: %v", err)
	}
	w.Close()

	pool := NewWorkbookPool(dir)
	defer pool.Close()
	if ok, err := pool.Exists("club-disk"); err != nil || !ok {
		t.Errorf("expected a workbook file to count as existing, got %v, %v", ok, err)
	}
	if ok, err := pool.Exists("club-new"); err != nil || ok {
		t.Errorf("expected club-new not to exist, got %v, %v", ok, err)
	}
}

func TestTable(t *testing.T) {
	t.Run("matches headers loosely and keeps unknown columns", func(t *testing.T) {
		w := NewMemoryWorkbook("t")
		// A hand made sheet: odd header spelling, an extra column, a blank row.
		if err := w.CreateSheet(SheetMembers, []string{"id", "FIRST NAME", "Phone", "Coach Notes"}); err != nil {
			t.Fatalf("CreateSheet failed: %v", err)
		}
		if err := w.AppendRow(SheetMembers, []string{"1", "Ann", "555", "keeps left foot"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		if err := w.WriteRow(SheetMembers, 4, []string{"3", "Cid", "777", ""}); err != nil {
			t.Fatalf("WriteRow failed: %v", err)
		}

		repo := NewMemberRepository(w)
		members, err := repo.GetMembers()
		if err != nil {
			t.Fatalf("GetMembers failed: %v", err)
		}
		if len(members) != 2 || members[0].FirstName != "Ann" || members[1].ID != "3" {
			t.Fatalf("unexpected members %+v", members)
		}

		m := members[0]
		m.LastName = "Lee"
		if err := repo.UpdateMember(&m); err != nil {
			t.Fatalf("UpdateMember failed: %v", err)
		}
		rows, _ := w.ReadSheet(SheetMembers)
		header := rows[0]
		col := func(name string) int {
			for i, h := range header {
				if h == name {
					return i
				}
			}
			t.Fatalf("header %q missing from %v", name, header)
			return -1
		}
		if rows[1][col("Coach Notes")] != "keeps left foot" {
			t.Errorf("unknown column was overwritten: %v", rows[1])
		}
		if rows[1][col("Last Name")] != "Lee" {
			t.Errorf("expected the new Last Name column to be filled: %v", rows[1])
		}

		id, err := repo.CreateMember(&models.Member{FirstName: "Dee", Phone: "888"})
		if err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
		if id != "4" {
			t.Errorf("expected next id 4, got %q", id)
		}
	})

	t.Run("update of a missing row", func(t *testing.T) {
		repo := NewMemberRepository(NewMemoryWorkbook("t"))
		if err := repo.UpdateMember(&models.Member{ID: "1"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("dates are normalized on read", func(t *testing.T) {
		w := NewMemoryWorkbook("t")
		if err := w.CreateSheet(SheetMembers, memberColumns); err != nil {
			t.Fatalf("CreateSheet failed: %v", err)
		}
		row := make([]string, len(memberColumns))
		row[0], row[1], row[4], row[6], row[8] = "1", "Ann", "1", "45658", "2025/02/01"
		if err := w.AppendRow(SheetMembers, row); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		m, err := NewMemberRepository(w).GetMemberByID("1")
		if err != nil {
			t.Fatalf("GetMemberByID failed: %v", err)
		}
		if m.JoinDate != "2025-01-01" {
			t.Errorf("expected the Excel serial to become 2025-01-01, got %q", m.JoinDate)
		}
		if m.ExpiryDate == nil || *m.ExpiryDate != "2025-02-01" {
			t.Errorf("expected expiry 2025-02-01, got %v", m.ExpiryDate)
		}
	})
}

func TestSettingRepository(t *testing.T) {
	repo := NewSettingRepository(NewMemoryWorkbook("t"))
	if ok, _ := repo.Exists(); ok {
		t.Fatalf("expected no settings sheet")
	}
	if err := repo.SetSetting("Late Payment Days", "7"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := repo.SetSetting("latepaymentdays", "10"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	settings, err := repo.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if len(settings) != 1 || settings[0].Key != "Late Payment Days" || settings[0].Value != "10" {
		t.Errorf("unexpected settings %+v", settings)
	}
}
