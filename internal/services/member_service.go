package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sports_club_backend/internal/models"
	"sports_club_backend/internal/repositories"
	"sports_club_backend/pkg/utils"
)

// --- Member DTOs ---
type AddMemberRequest struct {
	FirstName  string   `json:"firstName" validate:"required"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email" validate:"omitempty,email"`
	Phone      string   `json:"phone" validate:"required"`
	Place      string   `json:"place"`
	JoinDate   string   `json:"joinDate"` // YYYY-MM-DD, defaults to today
	Status     string   `json:"status" validate:"omitempty,oneof=active inactive"`
	ExpiryDate string   `json:"expiryDate"`
	Sports     []string `json:"sports"`
	Notes      string   `json:"notes"`
}

// UpdateMemberRequest changes only the fields that are present.
type UpdateMemberRequest struct {
	ID         string    `json:"id" validate:"required"`
	FirstName  *string   `json:"firstName"`
	LastName   *string   `json:"lastName"`
	Email      *string   `json:"email" validate:"omitempty,email"`
	Phone      *string   `json:"phone"`
	Place      *string   `json:"place"`
	JoinDate   *string   `json:"joinDate"`
	Status     *string   `json:"status" validate:"omitempty,oneof=active inactive"`
	ExpiryDate *string   `json:"expiryDate"`
	Sports     *[]string `json:"sports"`
	Notes      *string   `json:"notes"`
}

// MemberFilter narrows getMembers. Empty fields do not filter.
type MemberFilter struct {
	SinceID string `json:"sinceId"`
	Status  string `json:"status"`
	Sport   string `json:"sport"`
}

// --- MemberService Interface ---
type MemberService interface {
	AddMember(ctx context.Context, rc *RequestContext, req AddMemberRequest) (*models.Member, error)
	GetMemberByID(rc *RequestContext, id string) (*models.Member, error)
	GetMemberByPhone(rc *RequestContext, phone string) (*models.Member, error)
	GetMembers(rc *RequestContext, filter MemberFilter) ([]models.Member, error)
	UpdateMember(ctx context.Context, rc *RequestContext, req UpdateMemberRequest) (*models.Member, error)
}

type memberService struct {
	gate     *WriteGate
	settings SettingService
	now      Clock
}

// NewMemberService creates a new MemberService.
func NewMemberService(gate *WriteGate, settings SettingService, now Clock) MemberService {
	return &memberService{gate: gate, settings: settings, now: clockOrDefault(now)}
}

// optionalDate normalizes a date field; empty stays empty.
func optionalDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	d, err := utils.NormalizeDate(s)
	if err != nil {
		return "", ErrDateFormat
	}
	return d, nil
}

func cleanSports(sports []string) []string {
	out := []string{}
	for _, s := range sports {
		if s = strings.TrimSpace(s); s != "" && !utils.ContainsFold(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func (s *memberService) ensurePhoneFree(repo repositories.MemberRepository, phone, selfID string) error {
	existing, err := repo.GetMemberByPhone(phone)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check phone number uniqueness: %w", err)
	}
	if existing.ID != selfID {
		return ErrDuplicatePhone
	}
	return nil
}

func (s *memberService) AddMember(ctx context.Context, rc *RequestContext, req AddMemberRequest) (*models.Member, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if utils.NormalizePhone(req.Phone) == "" {
		return nil, validationErrorf("phone must contain digits")
	}
	joinDate, err := optionalDate(req.JoinDate)
	if err != nil {
		return nil, err
	}
	if joinDate == "" {
		joinDate = utils.FormatDate(s.now())
	}
	expiry, err := optionalDate(req.ExpiryDate)
	if err != nil {
		return nil, err
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = models.MemberStatusActive
	}

	member := &models.Member{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      utils.NormalizeEmail(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Place:      strings.TrimSpace(req.Place),
		JoinDate:   joinDate,
		Status:     status,
		ExpiryDate: utils.NewNullString(expiry),
		Sports:     cleanSports(req.Sports),
		Notes:      req.Notes,
	}

	err = s.gate.Do(ctx, func() error {
		repo := repositories.NewMemberRepository(rc.Store)
		if err := s.ensurePhoneFree(repo, member.Phone, ""); err != nil {
			return err
		}
		if _, err := repo.CreateMember(member); err != nil {
			return err
		}
		s.settings.Touch(rc.Store, "Members")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *memberService) GetMemberByID(rc *RequestContext, id string) (*models.Member, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationErrorf("memberId is required")
	}
	m, err := repositories.NewMemberRepository(rc.Store).GetMemberByID(strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *memberService) GetMemberByPhone(rc *RequestContext, phone string) (*models.Member, error) {
	if utils.NormalizePhone(phone) == "" {
		return nil, validationErrorf("phone is required")
	}
	m, err := repositories.NewMemberRepository(rc.Store).GetMemberByPhone(phone)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *memberService) GetMembers(rc *RequestContext, filter MemberFilter) ([]models.Member, error) {
	all, err := repositories.NewMemberRepository(rc.Store).GetMembers()
	if err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(all))
	for _, m := range all {
		if filter.SinceID != "" && utils.CompareIDs(m.ID, filter.SinceID) <= 0 {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(m.Status, filter.Status) {
			continue
		}
		if filter.Sport != "" && !utils.ContainsFold(m.Sports, filter.Sport) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return utils.CompareIDs(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

func (s *memberService) UpdateMember(ctx context.Context, rc *RequestContext, req UpdateMemberRequest) (*models.Member, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var joinDate, expiry string
	var err error
	if req.JoinDate != nil {
		if joinDate, err = optionalDate(*req.JoinDate); err != nil {
			return nil, err
		}
	}
	if req.ExpiryDate != nil {
		if expiry, err = optionalDate(*req.ExpiryDate); err != nil {
			return nil, err
		}
	}
	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) == "" {
		return nil, validationErrorf("firstName cannot be empty if provided")
	}
	if req.Phone != nil && utils.NormalizePhone(*req.Phone) == "" {
		return nil, validationErrorf("phone cannot be empty if provided")
	}

	var updated *models.Member
	err = s.gate.Do(ctx, func() error {
		repo := repositories.NewMemberRepository(rc.Store)
		member, err := repo.GetMemberByID(strings.TrimSpace(req.ID))
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		if req.FirstName != nil {
			member.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			member.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.Email != nil {
			member.Email = utils.NormalizeEmail(*req.Email)
		}
		if req.Phone != nil {
			if err := s.ensurePhoneFree(repo, *req.Phone, member.ID); err != nil {
				return err
			}
			member.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Place != nil {
			member.Place = strings.TrimSpace(*req.Place)
		}
		if req.JoinDate != nil {
			member.JoinDate = joinDate
		}
		if req.Status != nil {
			member.Status = strings.ToLower(strings.TrimSpace(*req.Status))
		}
		if req.ExpiryDate != nil {
			member.ExpiryDate = utils.NewNullString(expiry)
		}
		if req.Sports != nil {
			member.Sports = cleanSports(*req.Sports)
		}
		if req.Notes != nil {
			member.Notes = *req.Notes
		}
		if err := repo.UpdateMember(member); err != nil {
			return err
		}
		s.settings.Touch(rc.Store, "Members")
		updated = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
