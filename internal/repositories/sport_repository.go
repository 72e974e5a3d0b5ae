package repositories

import (
	"fmt"
	"strconv"
	"strings"

	"sports_club_backend/internal/models"
)

// SheetSports is the name of the sports sheet.
const SheetSports = "Sports"

var sportColumns = []string{"Name", "Fee", "Description", "Active"}

// SportRepository defines the storage operations for sports. Name is the key.
type SportRepository interface {
	EnsureSchema() error
	CreateSport(s *models.Sport) error
	GetSportByName(name string) (*models.Sport, error)
	GetSports() ([]models.Sport, error)
	UpdateSport(name string, s *models.Sport) error
}

type sportRepository struct {
	table *Table[models.Sport]
}

// NewSportRepository creates a SportRepository on top of a club store.
func NewSportRepository(store TabularStore) SportRepository {
	return &sportRepository{table: newTable(store, SheetSports, sportColumns, "Name", encodeSport, decodeSport)}
}

func encodeSport(s models.Sport) Row {
	return Row{
		"Name":        s.Name,
		"Fee":         s.Fee.String(),
		"Description": s.Description,
		"Active":      strconv.FormatBool(s.Active),
	}
}

func decodeSport(r Row) (models.Sport, error) {
	fee, err := decodeAmount(r["Fee"])
	if err != nil {
		return models.Sport{}, err
	}
	active := true
	if s := strings.TrimSpace(r["Active"]); s != "" {
		switch strings.ToLower(s) {
		case "true", "yes", "y", "1":
			active = true
		default:
			active = false
		}
	}
	return models.Sport{Name: r["Name"], Fee: fee, Description: r["Description"], Active: active}, nil
}

func (r *sportRepository) EnsureSchema() error {
	return r.table.Ensure()
}

func (r *sportRepository) CreateSport(s *models.Sport) error {
	if _, err := r.GetSportByName(s.Name); err == nil {
		return fmt.Errorf("%w: sport %s", ErrDuplicateKey, s.Name)
	}
	if err := r.table.Append(*s); err != nil {
		return fmt.Errorf("creating sport: %w", err)
	}
	return nil
}

// GetSportByName matches names case-insensitively.
func (r *sportRepository) GetSportByName(name string) (*models.Sport, error) {
	s, err := r.table.Find(func(s models.Sport) bool {
		return strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(name))
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sportRepository) GetSports() ([]models.Sport, error) {
	return r.table.All()
}

func (r *sportRepository) UpdateSport(name string, s *models.Sport) error {
	err := r.table.UpdateWhere(func(row Row) bool {
		return strings.EqualFold(strings.TrimSpace(row["Name"]), strings.TrimSpace(name))
	}, *s)
	if err != nil {
		return fmt.Errorf("updating sport %s: %w", name, err)
	}
	return nil
}
