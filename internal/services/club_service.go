package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sports_club_backend/internal/models"
	"sports_club_backend/internal/repositories"
	"sports_club_backend/pkg/utils"
)

// accessWildcard in an editor or viewer list grants the role to every identity.
const accessWildcard = "*"

// DefaultStore describes the store used by requests without a sportsClubId.
type DefaultStore struct {
	SpreadsheetID string
	Editors       []string
	Viewers       []string
}

// --- Sports club DTOs ---
type AddSportsClubRequest struct {
	Name          string   `json:"name" validate:"required"`
	SpreadsheetID string   `json:"spreadsheetId"`
	Editors       []string `json:"editors" validate:"omitempty,dive,grantee"`
	Viewers       []string `json:"viewers" validate:"omitempty,dive,grantee"`
}

type UpdateSportsClubRequest struct {
	ID            string    `json:"id" validate:"required"`
	Name          *string   `json:"name"`
	SpreadsheetID *string   `json:"spreadsheetId"`
	Editors       *[]string `json:"editors" validate:"omitempty,dive,grantee"`
	Viewers       *[]string `json:"viewers" validate:"omitempty,dive,grantee"`
}

// ClubAccess is the resolved store of a request and what the caller may do with it.
type ClubAccess struct {
	Store   repositories.TabularStore
	Club    *models.SportsClub
	CanEdit bool
}

// --- ClubService Interface ---
type ClubService interface {
	// ResolveStore finds the store of clubID, or the default store for "".
	ResolveStore(ctx context.Context, clubID string) (repositories.TabularStore, *models.SportsClub, error)
	// Authorize checks email against the club's owner, editor and viewer lists.
	Authorize(club *models.SportsClub, email string) (*ClubAccess, error)
	GetSportsClubs(ctx context.Context, rc *RequestContext) ([]models.SportsClub, error)
	GetSportsClub(ctx context.Context, rc *RequestContext, id string) (*models.SportsClub, error)
	AddSportsClub(ctx context.Context, rc *RequestContext, req AddSportsClubRequest) (*models.SportsClub, error)
	UpdateSportsClub(ctx context.Context, rc *RequestContext, req UpdateSportsClubRequest) (*models.SportsClub, error)
}

type clubService struct {
	clubRepo repositories.ClubRepository
	pool     *repositories.WorkbookPool
	defaults DefaultStore
	gate     *WriteGate
}

// NewClubService creates a new ClubService.
func NewClubService(repo repositories.ClubRepository, pool *repositories.WorkbookPool, defaults DefaultStore, gate *WriteGate) ClubService {
	return &clubService{clubRepo: repo, pool: pool, defaults: defaults, gate: gate}
}

func (s *clubService) defaultClub() *models.SportsClub {
	return &models.SportsClub{
		Name:          "Default",
		SpreadsheetID: s.defaults.SpreadsheetID,
		Editors:       s.defaults.Editors,
		Viewers:       s.defaults.Viewers,
	}
}

func (s *clubService) ResolveStore(ctx context.Context, clubID string) (repositories.TabularStore, *models.SportsClub, error) {
	club := s.defaultClub()
	if clubID = strings.TrimSpace(clubID); clubID != "" {
		var err error
		club, err = s.clubRepo.GetClubByID(ctx, clubID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, nil, ErrClubNotFound
			}
			return nil, nil, fmt.Errorf("loading sports club %s: %w", clubID, err)
		}
	}
	if strings.TrimSpace(club.SpreadsheetID) == "" {
		return nil, nil, ErrClubNotFound
	}
	store, err := s.pool.Get(club.SpreadsheetID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidSpreadsheetID) {
			return nil, nil, ErrClubNotFound
		}
		return nil, nil, fmt.Errorf("opening store of sports club %s: %w", club.ID, err)
	}
	return store, club, nil
}

// isGrantee reports whether s may appear in an editor or viewer list.
func isGrantee(s string) bool {
	return s == accessWildcard || utils.IsValidEmail(s)
}

const msgSpreadsheetID = "spreadsheetId may only contain letters, digits, '-' and '_'"

// claimSpreadsheet checks that id can back a new or moved club. The default
// store and any workbook that already exists belong to someone else.
func (s *clubService) claimSpreadsheet(id string) error {
	if def := strings.TrimSpace(s.defaults.SpreadsheetID); def != "" && strings.EqualFold(id, def) {
		return ErrSpreadsheetInUse
	}
	exists, err := s.pool.Exists(id)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidSpreadsheetID) {
			return validationErrorf(msgSpreadsheetID)
		}
		return err
	}
	if exists {
		return ErrSpreadsheetInUse
	}
	return nil
}

func listed(list []string, email string) bool {
	return utils.ContainsFold(list, email) || utils.ContainsFold(list, accessWildcard)
}

func (s *clubService) Authorize(club *models.SportsClub, email string) (*ClubAccess, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, ErrNoClubAccess
	}
	switch {
	case club.OwnerEmail != "" && strings.EqualFold(club.OwnerEmail, email), listed(club.Editors, email):
		return &ClubAccess{Club: club, CanEdit: true}, nil
	case listed(club.Viewers, email):
		return &ClubAccess{Club: club, CanEdit: false}, nil
	}
	return nil, ErrNoClubAccess
}

// GetSportsClubs lists the clubs the caller owns, edits or views.
func (s *clubService) GetSportsClubs(ctx context.Context, rc *RequestContext) ([]models.SportsClub, error) {
	return s.clubRepo.GetClubsByEmail(ctx, rc.UserEmail)
}

func (s *clubService) GetSportsClub(ctx context.Context, rc *RequestContext, id string) (*models.SportsClub, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationErrorf("id is required")
	}
	club, err := s.clubRepo.GetClubByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	if _, err := s.Authorize(club, rc.UserEmail); err != nil {
		return nil, err
	}
	return club, nil
}

// AddSportsClub registers a club owned by the caller and provisions its
// workbook with every sheet and the default settings.
func (s *clubService) AddSportsClub(ctx context.Context, rc *RequestContext, req AddSportsClubRequest) (*models.SportsClub, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if utils.NormalizeEmail(rc.UserEmail) == "" {
		return nil, ErrInvalidToken
	}
	id := uuid.NewString()
	club := &models.SportsClub{
		ID:            id,
		Name:          strings.TrimSpace(req.Name),
		SpreadsheetID: strings.TrimSpace(req.SpreadsheetID),
		OwnerEmail:    rc.UserEmail,
		Editors:       req.Editors,
		Viewers:       req.Viewers,
	}
	if club.SpreadsheetID == "" {
		club.SpreadsheetID = "club-" + id
	}

	err := s.gate.Do(ctx, func() error {
		if err := s.claimSpreadsheet(club.SpreadsheetID); err != nil {
			return err
		}
		store, err := s.pool.Get(club.SpreadsheetID)
		if err != nil {
			if errors.Is(err, repositories.ErrInvalidSpreadsheetID) {
				return validationErrorf(msgSpreadsheetID)
			}
			return err
		}
		if err := s.provision(store, club.Name); err != nil {
			return fmt.Errorf("provisioning store %s: %w", club.SpreadsheetID, err)
		}
		if err := s.clubRepo.CreateClub(ctx, club); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return validationErrorf("a sports club already uses spreadsheet %s", club.SpreadsheetID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Sports club created", map[string]interface{}{"club_id": club.ID, "owner": club.OwnerEmail})
	return club, nil
}

func (s *clubService) provision(store repositories.TabularStore, name string) error {
	schemas := []interface{ EnsureSchema() error }{
		repositories.NewMemberRepository(store),
		repositories.NewAttendanceRepository(store),
		repositories.NewPaymentRepository(store),
		repositories.NewExpenseRepository(store),
		repositories.NewSportRepository(store),
	}
	settings := repositories.NewSettingRepository(store)
	exists, err := settings.Exists()
	if err != nil {
		return err
	}
	for _, repo := range schemas {
		if err := repo.EnsureSchema(); err != nil {
			return err
		}
	}
	if exists {
		return nil
	}
	if err := settings.EnsureSchema(); err != nil {
		return err
	}
	for _, key := range []string{SettingClubName, SettingCurrency, SettingLatePaymentDays} {
		value := defaultSettings[key]
		if key == SettingClubName {
			value = name
		}
		if err := settings.SetSetting(key, value); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSportsClub changes a club. Only its owner may do so.
func (s *clubService) UpdateSportsClub(ctx context.Context, rc *RequestContext, req UpdateSportsClubRequest) (*models.SportsClub, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, validationErrorf("name cannot be empty if provided")
	}
	var updated *models.SportsClub
	err := s.gate.Do(ctx, func() error {
		club, err := s.clubRepo.GetClubByID(ctx, strings.TrimSpace(req.ID))
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrClubNotFound
			}
			return err
		}
		if !strings.EqualFold(club.OwnerEmail, utils.NormalizeEmail(rc.UserEmail)) {
			if _, err := s.Authorize(club, rc.UserEmail); err != nil {
				return err
			}
			return ErrNotClubOwner
		}
		if req.Name != nil {
			club.Name = strings.TrimSpace(*req.Name)
		}
		if id := strings.TrimSpace(utils.StringValue(req.SpreadsheetID)); req.SpreadsheetID != nil && id != club.SpreadsheetID {
			if err := s.claimSpreadsheet(id); err != nil {
				return err
			}
			store, err := s.pool.Get(id)
			if err != nil {
				if errors.Is(err, repositories.ErrInvalidSpreadsheetID) {
					return validationErrorf(msgSpreadsheetID)
				}
				return err
			}
			if err := s.provision(store, club.Name); err != nil {
				return err
			}
			club.SpreadsheetID = store.ID()
		}
		if req.Editors != nil {
			club.Editors = *req.Editors
		}
		if req.Viewers != nil {
			club.Viewers = *req.Viewers
		}
		if err := s.clubRepo.UpdateClub(ctx, club); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return validationErrorf("a sports club already uses spreadsheet %s", club.SpreadsheetID)
			}
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrClubNotFound
			}
			return err
		}
		updated = club
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
