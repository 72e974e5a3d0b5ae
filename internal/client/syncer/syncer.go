// Package syncer keeps the client cache in step with the API server.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"sports_club_backend/internal/client/analytics"
	"sports_club_backend/internal/client/cache"
	"sports_club_backend/internal/models"
	"sports_club_backend/pkg/utils"
)

// Synced domains.
const (
	DomainMembers    = "members"
	DomainAttendance = "attendance"
	DomainPayments   = "payments"
	DomainExpenses   = "expenses"
)

// Domains lists the synced domains in sync order. Members go first so the
// other domains relink against fresh names.
var Domains = []string{DomainMembers, DomainAttendance, DomainPayments, DomainExpenses}

// UnknownMember is shown for rows whose member is not in the cache.
const UnknownMember = "Unknown Member"

// Meta keys.
const (
	MetaSelectedClub = "selectedClubId"
	MetaAnalytics    = "analytics"
	metaLastID       = "LastSyncedId"
	metaLastTime     = "LastSyncTime"
)

var ErrUnknownDomain = errors.New("unknown sync domain")

// LastSyncedIDKey is the meta key of the high-water mark of domain.
func LastSyncedIDKey(domain string) string { return domain + metaLastID }

// LastSyncTimeKey is the meta key of the last sync time of domain.
func LastSyncTimeKey(domain string) string { return domain + metaLastTime }

// Source fetches rows with an id greater than sinceID. An empty sinceID fetches everything.
type Source interface {
	FetchMembers(ctx context.Context, sinceID string) ([]models.Member, error)
	FetchAttendance(ctx context.Context, sinceID string) ([]models.Attendance, error)
	FetchPayments(ctx context.Context, sinceID string) ([]models.Payment, error)
	FetchExpenses(ctx context.Context, sinceID string) ([]models.Expense, error)
}

// Result describes one finished domain sync.
type Result struct {
	Domain       string    `json:"domain"`
	Full         bool      `json:"full"`
	Fetched      int       `json:"fetched"`
	Total        int       `json:"total"`
	LastSyncedID string    `json:"lastSyncedId"`
	SyncedAt     time.Time `json:"syncedAt"`
}

// Service pulls deltas from a Source into a cache.
type Service struct {
	src    Source
	cache  *cache.Store
	logger zerolog.Logger
	now    func() time.Time
	group  singleflight.Group
}

// NewService creates a sync service. now may be nil.
func NewService(src Source, store *cache.Store, logger zerolog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{src: src, cache: store, logger: logger.With().Str("component", "syncer").Logger(), now: now}
}

// Sync brings domain up to date. Concurrent calls for the same domain share
// one run and its result. A forced full sync that joined an incremental run
// runs again once that run is done. On failure the cache keeps its previous
// content.
func (s *Service) Sync(ctx context.Context, domain string, forceFull bool) (*Result, error) {
	for {
		v, err, shared := s.group.Do(domain, func() (interface{}, error) {
			return s.sync(ctx, domain, forceFull)
		})
		if err != nil {
			s.logger.Error().Err(err).Str("domain", domain).Bool("shared", shared).Msg("Sync failed")
			return nil, err
		}
		res := v.(*Result)
		if !forceFull || res.Full {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.logger.Debug().Str("domain", domain).Msg("Joined an incremental sync, running the full sync")
	}
}

// SyncAll syncs every domain in order, stopping at the first failure.
func (s *Service) SyncAll(ctx context.Context, forceFull bool) ([]Result, error) {
	results := make([]Result, 0, len(Domains))
	for _, d := range Domains {
		r, err := s.Sync(ctx, d, forceFull)
		if err != nil {
			return results, fmt.Errorf("syncing %s: %w", d, err)
		}
		results = append(results, *r)
	}
	return results, nil
}

// SyncIfStale syncs the domains whose last sync is older than maxAge or missing.
func (s *Service) SyncIfStale(ctx context.Context, maxAge time.Duration) ([]Result, error) {
	var results []Result
	for _, d := range Domains {
		stale, err := s.isStale(ctx, d, maxAge)
		if err != nil {
			return results, err
		}
		if !stale {
			continue
		}
		r, err := s.Sync(ctx, d, false)
		if err != nil {
			return results, fmt.Errorf("syncing %s: %w", d, err)
		}
		results = append(results, *r)
	}
	return results, nil
}

func (s *Service) isStale(ctx context.Context, domain string, maxAge time.Duration) (bool, error) {
	v, err := s.cache.Meta(ctx, LastSyncTimeKey(domain))
	if errors.Is(err, cache.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	last, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return true, nil
	}
	return s.now().Sub(last) > maxAge, nil
}

// SelectedClub returns the persisted club id, "" when none was selected.
func (s *Service) SelectedClub(ctx context.Context) (string, error) {
	v, err := s.cache.Meta(ctx, MetaSelectedClub)
	if errors.Is(err, cache.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SelectClub persists clubID. Switching to another club empties the cache.
func (s *Service) SelectClub(ctx context.Context, clubID string) error {
	current, err := s.SelectedClub(ctx)
	if err != nil {
		return err
	}
	if current == clubID {
		return nil
	}
	if err := s.cache.Reset(ctx); err != nil {
		return fmt.Errorf("clearing cache for club switch: %w", err)
	}
	s.logger.Info().Str("from", current).Str("to", clubID).Msg("Selected sports club changed")
	return s.cache.SetMeta(ctx, map[string]string{MetaSelectedClub: clubID})
}

// Analytics returns the snapshot computed after the last sync.
func (s *Service) Analytics(ctx context.Context) (*analytics.Snapshot, error) {
	v, err := s.cache.Meta(ctx, MetaAnalytics)
	if err != nil {
		return nil, err
	}
	var snap analytics.Snapshot
	if err := json.Unmarshal([]byte(v), &snap); err != nil {
		return nil, fmt.Errorf("decoding analytics: %w", err)
	}
	return &snap, nil
}

func (s *Service) sync(ctx context.Context, domain string, forceFull bool) (*Result, error) {
	since := ""
	if !forceFull {
		v, err := s.cache.Meta(ctx, LastSyncedIDKey(domain))
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			return nil, err
		}
		since = v
	}
	full := since == ""

	var (
		res *Result
		err error
	)
	switch domain {
	case DomainMembers:
		res, err = syncDomain(ctx, s, domain, since, s.src.FetchMembers, func(m models.Member) string { return m.ID }, nil)
	case DomainAttendance:
		res, err = syncDomain(ctx, s, domain, since, s.src.FetchAttendance, func(a models.Attendance) string { return a.ID }, s.relinkAttendance)
	case DomainPayments:
		res, err = syncDomain(ctx, s, domain, since, s.src.FetchPayments, func(p models.Payment) string { return p.ID }, s.relinkPayments)
	case DomainExpenses:
		res, err = syncDomain(ctx, s, domain, since, s.src.FetchExpenses, func(e models.Expense) string { return e.ID }, nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	if err != nil {
		return nil, err
	}
	res.Full = full
	s.logger.Info().Str("domain", domain).Bool("full", full).Int("fetched", res.Fetched).
		Int("total", res.Total).Str("last_id", res.LastSyncedID).Msg("Sync completed")

	if err := s.refreshAnalytics(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to recompute analytics")
	}
	return res, nil
}

// syncDomain fetches rows after since, merges them over the cached rows
// (fetched rows win), relinks and writes the merged set with its markers in
// one transaction.
func syncDomain[T any](
	ctx context.Context,
	s *Service,
	domain, since string,
	fetch func(context.Context, string) ([]T, error),
	id func(T) string,
	relink func(context.Context, []T) ([]T, error),
) (*Result, error) {
	fetched, err := fetch(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", domain, err)
	}

	var merged []T
	if since != "" {
		merged, err = cache.Load[T](ctx, s.cache, domain)
		if err != nil {
			return nil, err
		}
	}
	merged = mergeByID(merged, fetched, id)

	if relink != nil {
		if merged, err = relink(ctx, merged); err != nil {
			return nil, err
		}
	}

	records, err := cache.Encode(merged, id)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(merged))
	for i, v := range merged {
		ids[i] = id(v)
	}
	lastID := utils.MaxID(ids...)
	syncedAt := s.now()
	meta := map[string]string{
		LastSyncedIDKey(domain): lastID,
		LastSyncTimeKey(domain): syncedAt.Format(time.RFC3339Nano),
	}
	if err := s.cache.Replace(ctx, domain, records, meta); err != nil {
		return nil, fmt.Errorf("storing %s: %w", domain, err)
	}
	return &Result{Domain: domain, Fetched: len(fetched), Total: len(merged), LastSyncedID: lastID, SyncedAt: syncedAt}, nil
}

// mergeByID overlays incoming on existing. Rows keep the position of their
// first appearance; an incoming row replaces an existing one with the same id.
func mergeByID[T any](existing, incoming []T, id func(T) string) []T {
	index := make(map[string]int, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))
	for _, batch := range [][]T{existing, incoming} {
		for _, v := range batch {
			k := id(v)
			if i, ok := index[k]; ok {
				out[i] = v
				continue
			}
			index[k] = len(out)
			out = append(out, v)
		}
	}
	return out
}

func (s *Service) memberNames(ctx context.Context) (map[string]string, error) {
	members, err := cache.Load[models.Member](ctx, s.cache, DomainMembers)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.FullName()
	}
	return names, nil
}

func displayName(names map[string]string, memberID string) string {
	if n, ok := names[memberID]; ok && n != "" {
		return n
	}
	return UnknownMember
}

func (s *Service) relinkAttendance(ctx context.Context, rows []models.Attendance) ([]models.Attendance, error) {
	names, err := s.memberNames(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].MemberName = displayName(names, rows[i].MemberID)
	}
	return rows, nil
}

func (s *Service) relinkPayments(ctx context.Context, rows []models.Payment) ([]models.Payment, error) {
	names, err := s.memberNames(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].MemberName = displayName(names, rows[i].MemberID)
	}
	return rows, nil
}

func (s *Service) refreshAnalytics(ctx context.Context) error {
	members, err := cache.Load[models.Member](ctx, s.cache, DomainMembers)
	if err != nil {
		return err
	}
	attendance, err := cache.Load[models.Attendance](ctx, s.cache, DomainAttendance)
	if err != nil {
		return err
	}
	payments, err := cache.Load[models.Payment](ctx, s.cache, DomainPayments)
	if err != nil {
		return err
	}
	expenses, err := cache.Load[models.Expense](ctx, s.cache, DomainExpenses)
	if err != nil {
		return err
	}
	body, err := json.Marshal(analytics.Compute(members, attendance, payments, expenses, s.now()))
	if err != nil {
		return err
	}
	return s.cache.SetMeta(ctx, map[string]string{MetaAnalytics: string(body)})
}
