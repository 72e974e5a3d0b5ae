package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq" // For pq.Error and pq.Array

	"sports_club_backend/internal/models"
	"sports_club_backend/pkg/utils"
)

// ClubRepository defines the storage operations for the sports club registry.
type ClubRepository interface {
	CreateClub(ctx context.Context, club *models.SportsClub) error
	GetClubByID(ctx context.Context, id string) (*models.SportsClub, error)
	GetClubsByEmail(ctx context.Context, email string) ([]models.SportsClub, error)
	UpdateClub(ctx context.Context, club *models.SportsClub) error
}

type clubRepository struct {
	db SQLExecutor
}

// NewClubRepository creates a PostgreSQL backed ClubRepository.
func NewClubRepository(db *sql.DB) ClubRepository {
	return &clubRepository{db: db}
}

const clubColumns = `id, name, spreadsheet_id, owner_email, editors, viewers, created_at, updated_at`

func scanClub(row scanner) (*models.SportsClub, error) {
	var club models.SportsClub
	var editors, viewers []string
	err := row.Scan(&club.ID, &club.Name, &club.SpreadsheetID, &club.OwnerEmail,
		pq.Array(&editors), pq.Array(&viewers), &club.CreatedAt, &club.UpdatedAt)
	if err != nil {
		return nil, err
	}
	club.Editors = nonNil(editors)
	club.Viewers = nonNil(viewers)
	return &club, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func mapPQError(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, action, err)
}

// CreateClub inserts a new club.
func (r *clubRepository) CreateClub(ctx context.Context, club *models.SportsClub) error {
	query := `INSERT INTO sports_clubs (` + clubColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now().UTC()
	if club.CreatedAt.IsZero() {
		club.CreatedAt = now
	}
	club.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		club.ID, club.Name, club.SpreadsheetID, utils.NormalizeEmail(club.OwnerEmail),
		pq.Array(normalizeEmails(club.Editors)), pq.Array(normalizeEmails(club.Viewers)),
		club.CreatedAt, club.UpdatedAt,
	)
	if err != nil {
		return mapPQError(err, "creating sports club")
	}
	return nil
}

// GetClubByID retrieves a club by id.
func (r *clubRepository) GetClubByID(ctx context.Context, id string) (*models.SportsClub, error) {
	query := `SELECT ` + clubColumns + ` FROM sports_clubs WHERE id = $1`
	club, err := scanClub(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting sports club %s: %v", ErrDatabaseError, id, err)
	}
	return club, nil
}

// GetClubsByEmail lists the clubs the address owns, edits or views.
func (r *clubRepository) GetClubsByEmail(ctx context.Context, email string) ([]models.SportsClub, error) {
	query := `SELECT ` + clubColumns + ` FROM sports_clubs
	          WHERE owner_email = $1 OR $1 = ANY(editors) OR $1 = ANY(viewers)
	          ORDER BY name ASC`
	return r.queryClubs(ctx, query, utils.NormalizeEmail(email))
}

func (r *clubRepository) queryClubs(ctx context.Context, query string, args ...interface{}) ([]models.SportsClub, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying sports clubs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	clubs := []models.SportsClub{}
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning sports club: %v", ErrDatabaseError, err)
		}
		clubs = append(clubs, *club)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating sports club rows: %v", ErrDatabaseError, err)
	}
	return clubs, nil
}

// UpdateClub updates name, spreadsheet and access lists of a club.
func (r *clubRepository) UpdateClub(ctx context.Context, club *models.SportsClub) error {
	query := `UPDATE sports_clubs SET
	            name = $1, spreadsheet_id = $2, owner_email = $3, editors = $4, viewers = $5, updated_at = $6
	          WHERE id = $7`

	club.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		club.Name, club.SpreadsheetID, utils.NormalizeEmail(club.OwnerEmail),
		pq.Array(normalizeEmails(club.Editors)), pq.Array(normalizeEmails(club.Viewers)),
		club.UpdatedAt, club.ID,
	)
	if err != nil {
		return mapPQError(err, "updating sports club "+club.ID)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for sports club %s: %v", ErrDatabaseError, club.ID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = utils.NormalizeEmail(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// memoryClubRepository keeps the registry in process memory. Used when no
// DATABASE_URL is configured and in tests.
type memoryClubRepository struct {
	mu    sync.RWMutex
	clubs map[string]models.SportsClub
}

// NewMemoryClubRepository creates an in-memory ClubRepository.
func NewMemoryClubRepository() ClubRepository {
	return &memoryClubRepository{clubs: make(map[string]models.SportsClub)}
}

func cloneClub(c models.SportsClub) models.SportsClub {
	c.Editors = append([]string{}, c.Editors...)
	c.Viewers = append([]string{}, c.Viewers...)
	return c
}

func (r *memoryClubRepository) CreateClub(_ context.Context, club *models.SportsClub) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clubs[club.ID]; ok {
		return fmt.Errorf("%w: sports club %s", ErrDuplicateKey, club.ID)
	}
	for _, c := range r.clubs {
		if c.SpreadsheetID == club.SpreadsheetID {
			return fmt.Errorf("%w: spreadsheet %s", ErrDuplicateKey, club.SpreadsheetID)
		}
	}
	now := time.Now().UTC()
	if club.CreatedAt.IsZero() {
		club.CreatedAt = now
	}
	club.UpdatedAt = now
	club.OwnerEmail = utils.NormalizeEmail(club.OwnerEmail)
	club.Editors = normalizeEmails(club.Editors)
	club.Viewers = normalizeEmails(club.Viewers)
	r.clubs[club.ID] = cloneClub(*club)
	return nil
}

func (r *memoryClubRepository) GetClubByID(_ context.Context, id string) (*models.SportsClub, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clubs[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneClub(c)
	return &c, nil
}

func (r *memoryClubRepository) GetClubsByEmail(_ context.Context, email string) ([]models.SportsClub, error) {
	email = utils.NormalizeEmail(email)
	return r.filter(func(c models.SportsClub) bool {
		return c.OwnerEmail == email || utils.ContainsFold(c.Editors, email) || utils.ContainsFold(c.Viewers, email)
	}), nil
}

func (r *memoryClubRepository) filter(keep func(models.SportsClub) bool) []models.SportsClub {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.SportsClub{}
	for _, c := range r.clubs {
		if keep(c) {
			out = append(out, cloneClub(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memoryClubRepository) UpdateClub(_ context.Context, club *models.SportsClub) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.clubs[club.ID]
	if !ok {
		return ErrNotFound
	}
	for id, c := range r.clubs {
		if id != club.ID && c.SpreadsheetID == club.SpreadsheetID {
			return fmt.Errorf("%w: spreadsheet %s", ErrDuplicateKey, club.SpreadsheetID)
		}
	}
	club.CreatedAt = existing.CreatedAt
	club.UpdatedAt = time.Now().UTC()
	club.OwnerEmail = utils.NormalizeEmail(club.OwnerEmail)
	club.Editors = normalizeEmails(club.Editors)
	club.Viewers = normalizeEmails(club.Viewers)
	r.clubs[club.ID] = cloneClub(*club)
	return nil
}
