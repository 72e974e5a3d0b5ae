package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sports_club_backend/internal/repositories"
	"sports_club_backend/pkg/utils"
)

// Well known setting keys.
const (
	SettingCurrency        = "Currency"
	SettingClubName        = "Club Name"
	SettingLatePaymentDays = "Late Payment Days"
	SettingAPIToken        = "API Token"

	lastUpdatedSuffix = " Last Updated"
	maskedValue       = "********"
)

const defaultLatePaymentDays = 7

// defaultSettings is returned by GetSettings while the settings sheet does not exist.
var defaultSettings = map[string]string{
	SettingCurrency:        "USD",
	SettingClubName:        "",
	SettingLatePaymentDays: strconv.Itoa(defaultLatePaymentDays),
}

// SettingService defines the settings operations.
type SettingService interface {
	GetSettings(rc *RequestContext) (map[string]string, error)
	UpdateSettings(ctx context.Context, rc *RequestContext, values map[string]string) (map[string]string, error)
	VerifyAPIToken(store repositories.TabularStore, token string) error
	LatePaymentDays(store repositories.TabularStore) int
	Touch(store repositories.TabularStore, domain string)
}

type settingService struct {
	gate *WriteGate
	now  Clock
}

// NewSettingService creates a new SettingService.
func NewSettingService(gate *WriteGate, now Clock) SettingService {
	return &settingService{gate: gate, now: clockOrDefault(now)}
}

func isKey(key, want string) bool {
	return utils.NormalizeKey(key) == utils.NormalizeKey(want)
}

// GetSettings returns every setting. The API token is never returned in clear.
func (s *settingService) GetSettings(rc *RequestContext) (map[string]string, error) {
	repo := repositories.NewSettingRepository(rc.Store)
	exists, err := repo.Exists()
	if err != nil {
		return nil, fmt.Errorf("checking settings sheet: %w", err)
	}
	out := make(map[string]string)
	if !exists {
		for k, v := range defaultSettings {
			out[k] = v
		}
		return out, nil
	}
	rows, err := repo.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	for _, row := range rows {
		if strings.TrimSpace(row.Key) == "" {
			continue
		}
		if isKey(row.Key, SettingAPIToken) && row.Value != "" {
			out[row.Key] = maskedValue
			continue
		}
		out[row.Key] = row.Value
	}
	return out, nil
}

// UpdateSettings upserts each key. Keys match existing rows case and space insensitively.
func (s *settingService) UpdateSettings(ctx context.Context, rc *RequestContext, values map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, validationErrorf("no settings to update")
	}
	for k := range values {
		if strings.TrimSpace(k) == "" {
			return nil, validationErrorf("setting key must not be empty")
		}
	}
	if v, ok := lookupFold(values, SettingLatePaymentDays); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err != nil || n < 0 {
			return nil, validationErrorf("%s must be a non-negative whole number", SettingLatePaymentDays)
		}
	}

	err := s.gate.Do(ctx, func() error {
		repo := repositories.NewSettingRepository(rc.Store)
		for k, v := range values {
			if isKey(k, SettingAPIToken) && v != "" {
				hash, err := bcrypt.GenerateFromPassword([]byte(v), bcrypt.DefaultCost)
				if err != nil {
					return fmt.Errorf("hashing API token: %w", err)
				}
				v = string(hash)
			}
			if err := repo.SetSetting(strings.TrimSpace(k), v); err != nil {
				return fmt.Errorf("saving setting %q: %w", k, err)
			}
		}
		s.Touch(rc.Store, "Settings")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSettings(rc)
}

// VerifyAPIToken compares token with the stored API token hash. Stores
// without an API token accept any token.
func (s *settingService) VerifyAPIToken(store repositories.TabularStore, token string) error {
	hash, err := s.lookup(store, SettingAPIToken)
	if err != nil {
		return err
	}
	if hash == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
		return ErrInvalidAPIToken
	}
	return nil
}

// LatePaymentDays returns the grace window of the payment status report.
func (s *settingService) LatePaymentDays(store repositories.TabularStore) int {
	v, err := s.lookup(store, SettingLatePaymentDays)
	if err != nil {
		utils.LogError(err, "Reading late payment days, using default")
		return defaultLatePaymentDays
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return defaultLatePaymentDays
	}
	return n
}

// Touch records "<domain> Last Updated". A failure is logged and otherwise ignored.
// Callers hold the write gate.
func (s *settingService) Touch(store repositories.TabularStore, domain string) {
	repo := repositories.NewSettingRepository(store)
	if err := repo.SetSetting(domain+lastUpdatedSuffix, s.now().Format(time.RFC3339)); err != nil {
		utils.LogError(err, "Failed to update last updated timestamp", map[string]interface{}{"domain": domain, "store": store.ID()})
	}
}

func (s *settingService) lookup(store repositories.TabularStore, key string) (string, error) {
	repo := repositories.NewSettingRepository(store)
	rows, err := repo.GetSettings()
	if err != nil {
		if errors.Is(err, repositories.ErrSheetNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading settings: %w", err)
	}
	for _, row := range rows {
		if isKey(row.Key, key) {
			return row.Value, nil
		}
	}
	if v, ok := defaultSettings[key]; ok {
		return v, nil
	}
	return "", nil
}

func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if isKey(k, key) {
			return v, true
		}
	}
	return "", false
}
