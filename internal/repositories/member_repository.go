package repositories

import (
	"fmt"

	"sports_club_backend/internal/models"
	"sports_club_backend/pkg/utils"
)

// SheetMembers is the name of the members sheet.
const SheetMembers = "Members"

var memberColumns = []string{
	"ID", "First Name", "Last Name", "Email", "Phone", "Place",
	"Join Date", "Status", "Expiry Date", "Sports", "Notes",
}

// MemberRepository defines the storage operations for members of one club.
type MemberRepository interface {
	EnsureSchema() error
	CreateMember(member *models.Member) (string, error)
	GetMemberByID(id string) (*models.Member, error)
	GetMemberByPhone(phone string) (*models.Member, error)
	GetMembers() ([]models.Member, error)
	UpdateMember(member *models.Member) error
}

type memberRepository struct {
	table *Table[models.Member]
}

// NewMemberRepository creates a MemberRepository on top of a club store.
func NewMemberRepository(store TabularStore) MemberRepository {
	return &memberRepository{table: newTable(store, SheetMembers, memberColumns, "ID", encodeMember, decodeMember)}
}

func encodeMember(m models.Member) Row {
	return Row{
		"ID":          m.ID,
		"First Name":  m.FirstName,
		"Last Name":   m.LastName,
		"Email":       m.Email,
		"Phone":       m.Phone,
		"Place":       m.Place,
		"Join Date":   m.JoinDate,
		"Status":      m.Status,
		"Expiry Date": utils.StringValue(m.ExpiryDate),
		"Sports":      utils.JoinList(m.Sports),
		"Notes":       m.Notes,
	}
}

func decodeMember(r Row) (models.Member, error) {
	m := models.Member{
		ID:         r["ID"],
		FirstName:  r["First Name"],
		LastName:   r["Last Name"],
		Email:      r["Email"],
		Phone:      r["Phone"],
		Place:      r["Place"],
		JoinDate:   normalizeDateCell(r["Join Date"]),
		Status:     r["Status"],
		ExpiryDate: utils.NewNullString(normalizeDateCell(r["Expiry Date"])),
		Sports:     utils.SplitList(r["Sports"]),
		Notes:      r["Notes"],
	}
	if m.Sports == nil {
		m.Sports = []string{}
	}
	return m, nil
}

// normalizeDateCell rewrites parsable dates (including Excel serials) as
// YYYY-MM-DD and leaves anything else untouched.
func normalizeDateCell(s string) string {
	if s == "" {
		return ""
	}
	if d, err := utils.NormalizeDate(s); err == nil {
		return d
	}
	return s
}

func (r *memberRepository) EnsureSchema() error {
	return r.table.Ensure()
}

// CreateMember assigns the next sequential id and appends the member.
func (r *memberRepository) CreateMember(member *models.Member) (string, error) {
	id, err := r.table.NextID()
	if err != nil {
		return "", fmt.Errorf("allocating member id: %w", err)
	}
	member.ID = id
	if err := r.table.Append(*member); err != nil {
		return "", fmt.Errorf("creating member: %w", err)
	}
	return id, nil
}

func (r *memberRepository) GetMemberByID(id string) (*models.Member, error) {
	m, err := r.table.Find(func(m models.Member) bool { return m.ID == id })
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMemberByPhone matches phone numbers after stripping formatting.
func (r *memberRepository) GetMemberByPhone(phone string) (*models.Member, error) {
	want := utils.NormalizePhone(phone)
	if want == "" {
		return nil, ErrNotFound
	}
	m, err := r.table.Find(func(m models.Member) bool { return utils.NormalizePhone(m.Phone) == want })
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) GetMembers() ([]models.Member, error) {
	return r.table.All()
}

func (r *memberRepository) UpdateMember(member *models.Member) error {
	if err := r.table.Update(member.ID, *member); err != nil {
		return fmt.Errorf("updating member %s: %w", member.ID, err)
	}
	return nil
}
