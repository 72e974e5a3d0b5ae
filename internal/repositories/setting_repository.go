package repositories

import (
	"errors"

	"sports_club_backend/internal/models"
	"sports_club_backend/pkg/utils"
)

// SheetSettings is the name of the settings sheet.
const SheetSettings = "Settings"

var settingColumns = []string{"Key", "Value"}

// SettingRepository defines the storage operations for the key/value settings sheet.
type SettingRepository interface {
	EnsureSchema() error
	Exists() (bool, error)
	GetSettings() ([]models.Setting, error)
	SetSetting(key, value string) error
}

type settingRepository struct {
	table *Table[models.Setting]
}

// NewSettingRepository creates a SettingRepository on top of a club store.
func NewSettingRepository(store TabularStore) SettingRepository {
	return &settingRepository{table: newTable(store, SheetSettings, settingColumns, "Key", encodeSetting, decodeSetting)}
}

func encodeSetting(s models.Setting) Row {
	return Row{"Key": s.Key, "Value": s.Value}
}

func decodeSetting(r Row) (models.Setting, error) {
	return models.Setting{Key: r["Key"], Value: r["Value"]}, nil
}

func (r *settingRepository) EnsureSchema() error {
	return r.table.Ensure()
}

func (r *settingRepository) Exists() (bool, error) {
	return r.table.Exists()
}

func (r *settingRepository) GetSettings() ([]models.Setting, error) {
	return r.table.All()
}

// SetSetting overwrites the value of the row whose normalized key matches,
// or appends a new row. The stored key text of an existing row is kept.
func (r *settingRepository) SetSetting(key, value string) error {
	if err := r.table.Ensure(); err != nil {
		return err
	}
	want := utils.NormalizeKey(key)
	existing, err := r.table.Find(func(s models.Setting) bool { return utils.NormalizeKey(s.Key) == want })
	if err == nil {
		existing.Value = value
		return r.table.UpdateWhere(func(row Row) bool { return utils.NormalizeKey(row["Key"]) == want }, existing)
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return r.table.Append(models.Setting{Key: key, Value: value})
}
