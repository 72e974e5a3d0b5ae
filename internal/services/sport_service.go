package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"sports_club_backend/internal/models"
	"sports_club_backend/internal/repositories"
)

// --- Sport DTOs ---
type AddSportRequest struct {
	Name        string           `json:"name" validate:"required"`
	Fee         *decimal.Decimal `json:"fee"`
	Description string           `json:"description"`
	Active      *bool            `json:"active"`
}

// UpdateSportRequest renames or edits the sport called Name.
type UpdateSportRequest struct {
	Name        string           `json:"name" validate:"required"`
	NewName     *string          `json:"newName"`
	Fee         *decimal.Decimal `json:"fee"`
	Description *string          `json:"description"`
	Active      *bool            `json:"active"`
}

// --- SportService Interface ---
type SportService interface {
	GetSports(rc *RequestContext) ([]models.Sport, error)
	AddSport(ctx context.Context, rc *RequestContext, req AddSportRequest) (*models.Sport, error)
	UpdateSport(ctx context.Context, rc *RequestContext, req UpdateSportRequest) (*models.Sport, error)
}

type sportService struct {
	gate     *WriteGate
	settings SettingService
}

// NewSportService creates a new SportService.
func NewSportService(gate *WriteGate, settings SettingService) SportService {
	return &sportService{gate: gate, settings: settings}
}

func (s *sportService) GetSports(rc *RequestContext) ([]models.Sport, error) {
	sports, err := repositories.NewSportRepository(rc.Store).GetSports()
	if err != nil {
		return nil, err
	}
	if sports == nil {
		sports = []models.Sport{}
	}
	sort.SliceStable(sports, func(i, j int) bool {
		return strings.ToLower(sports[i].Name) < strings.ToLower(sports[j].Name)
	})
	return sports, nil
}

func validFee(fee *decimal.Decimal) error {
	if fee != nil && fee.IsNegative() {
		return validationErrorf("fee cannot be negative")
	}
	return nil
}

func (s *sportService) AddSport(ctx context.Context, rc *RequestContext, req AddSportRequest) (*models.Sport, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validFee(req.Fee); err != nil {
		return nil, err
	}
	sport := &models.Sport{
		Name:        strings.TrimSpace(req.Name),
		Fee:         decimal.Zero,
		Description: strings.TrimSpace(req.Description),
		Active:      true,
	}
	if req.Fee != nil {
		sport.Fee = *req.Fee
	}
	if req.Active != nil {
		sport.Active = *req.Active
	}
	err := s.gate.Do(ctx, func() error {
		if err := repositories.NewSportRepository(rc.Store).CreateSport(sport); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return ErrSportExists
			}
			return err
		}
		s.settings.Touch(rc.Store, "Sports")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sport, nil
}

func (s *sportService) UpdateSport(ctx context.Context, rc *RequestContext, req UpdateSportRequest) (*models.Sport, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validFee(req.Fee); err != nil {
		return nil, err
	}
	if req.NewName != nil && strings.TrimSpace(*req.NewName) == "" {
		return nil, validationErrorf("newName cannot be empty if provided")
	}
	var updated *models.Sport
	err := s.gate.Do(ctx, func() error {
		repo := repositories.NewSportRepository(rc.Store)
		sport, err := repo.GetSportByName(req.Name)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrSportNotFound
			}
			return err
		}
		if req.NewName != nil {
			newName := strings.TrimSpace(*req.NewName)
			if !strings.EqualFold(newName, sport.Name) {
				if _, err := repo.GetSportByName(newName); err == nil {
					return ErrSportExists
				}
			}
			sport.Name = newName
		}
		if req.Fee != nil {
			sport.Fee = *req.Fee
		}
		if req.Description != nil {
			sport.Description = strings.TrimSpace(*req.Description)
		}
		if req.Active != nil {
			sport.Active = *req.Active
		}
		if err := repo.UpdateSport(req.Name, sport); err != nil {
			return err
		}
		s.settings.Touch(rc.Store, "Sports")
		updated = sport
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
