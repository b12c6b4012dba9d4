// Package memory is an in-process implementation of the service stores, used by
// tests and by the API when no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/features"
	"paycanvas.org/internal/masters"
	"paycanvas.org/internal/provisioning"
)

// Store keeps every table behind a single mutex so multi-row operations are atomic.
type Store struct {
	mu sync.Mutex

	companies map[string]provisioning.Company
	users     map[string]auth.User
	sessions  map[string]auth.Session // by id
	features  []auth.Feature
	enabled   map[string]map[string]bool // company -> feature -> enabled
	stores    map[string]masters.Store
}

var (
	_ auth.Store         = (*Store)(nil)
	_ features.Store     = (*Store)(nil)
	_ masters.Repository = storeTable{}
	_ provisioning.Store = companyTable{}
)

func New() *Store {
	return &Store{
		companies: map[string]provisioning.Company{},
		users:     map[string]auth.User{},
		sessions:  map[string]auth.Session{},
		enabled:   map[string]map[string]bool{},
		stores:    map[string]masters.Store{},
	}
}

func (s *Store) Users(context.Context) auth.UserStore       { return userTable{s} }
func (s *Store) Sessions(context.Context) auth.SessionStore { return sessionTable{s} }
func (s *Store) Features(context.Context) auth.FeatureStore { return s }

// Stores returns the store master table.
func (s *Store) Stores() masters.Repository { return storeTable{s} }

// Provisioning returns the company and account writer.
func (s *Store) Provisioning() provisioning.Store { return companyTable{s} }

type (
	userTable    struct{ *Store }
	sessionTable struct{ *Store }
	storeTable   struct{ *Store }
	companyTable struct{ *Store }
)

// Seeding -------------------------------------------------------------------

// AddCompany registers an active company with an empty profile.
func (s *Store) AddCompany(c auth.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = provisioning.Company{
		ID:        c.ID,
		Name:      c.Name,
		Status:    provisioning.CompanyStatusActive,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.CreatedAt,
	}
}

// AddUser stores u with its email lower-cased.
func (s *Store) AddUser(u auth.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = auth.NormalizeEmail(u.Email)
	u.Roles = append([]auth.Role(nil), u.Roles...)
	s.users[u.ID] = u
}

// SetUserStatus flips an account between active and inactive.
func (s *Store) SetUserStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Status = status
		s.users[id] = u
	}
}

// SetUserRoles replaces the ordered role assignments of a user.
func (s *Store) SetUserRoles(id string, roles ...auth.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Roles = append([]auth.Role(nil), roles...)
		s.users[id] = u
	}
}

func (s *Store) AddFeature(f auth.Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.features {
		if existing.Key == f.Key {
			s.features[i] = f
			return
		}
	}
	s.features = append(s.features, f)
}

// User store ----------------------------------------------------------------

func (s userTable) Find(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.withTenantName(u), nil
}

func (s userTable) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = auth.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return s.withTenantName(u), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s userTable) withTenantName(u auth.User) *auth.User {
	u.Roles = append([]auth.Role(nil), u.Roles...)
	if c, ok := s.companies[u.TenantID]; ok {
		u.TenantName = c.Name
	}
	return &u
}

// Provisioning --------------------------------------------------------------

func (s companyTable) ListCompanies(context.Context) ([]provisioning.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provisioning.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s companyTable) FindCompany(_ context.Context, id string) (provisioning.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return provisioning.Company{}, auth.ErrNotFound
	}
	return c, nil
}

func (s companyTable) InsertCompany(_ context.Context, c provisioning.Company) (provisioning.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[c.ID]; ok {
		return provisioning.Company{}, auth.ErrConflict
	}
	s.companies[c.ID] = c
	return c, nil
}

func (s companyTable) UpdateCompany(_ context.Context, c provisioning.Company) (provisioning.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.companies[c.ID]
	if !ok {
		return provisioning.Company{}, auth.ErrNotFound
	}
	c.Status = current.Status
	c.CreatedAt = current.CreatedAt
	s.companies[c.ID] = c
	return c, nil
}

func (s companyTable) InsertUser(_ context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = auth.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return auth.ErrConflict
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return auth.ErrConflict
	}
	if u.TenantID != "" {
		if _, ok := s.companies[u.TenantID]; !ok {
			return auth.ErrNotFound
		}
	}
	u.Roles = append([]auth.Role(nil), u.Roles...)
	s.users[u.ID] = u
	return nil
}

// Session store -------------------------------------------------------------

func (s sessionTable) Replace(_ context.Context, sess *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSessionInsert(sess); err != nil {
		return err
	}
	s.dropUserSessions(sess.UserID)
	s.sessions[sess.ID] = *sess
	return nil
}

func (s sessionTable) FindByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash {
			out := sess
			return &out, nil
		}
	}
	return nil, auth.ErrSessionNotFound
}

func (s sessionTable) Rotate(_ context.Context, oldID string, next *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[oldID]; !ok {
		return auth.ErrSessionNotFound
	}
	if err := s.checkSessionInsert(next); err != nil {
		return err
	}
	delete(s.sessions, oldID)
	s.dropUserSessions(next.UserID)
	s.sessions[next.ID] = *next
	return nil
}

func (s sessionTable) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.TokenHash == tokenHash {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s sessionTable) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// SessionCount reports how many sessions userID holds.
func (s *Store) SessionCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

func (s sessionTable) checkSessionInsert(sess *auth.Session) error {
	if sess == nil || sess.ID == "" || sess.TokenHash == "" {
		return auth.ErrInvalidInput
	}
	if _, ok := s.users[sess.UserID]; !ok {
		return auth.ErrNotFound
	}
	for _, existing := range s.sessions {
		if existing.TokenHash == sess.TokenHash {
			return auth.ErrConflict
		}
	}
	return nil
}

func (s sessionTable) dropUserSessions(userID string) {
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
}

// Feature store -------------------------------------------------------------

func (s *Store) AllKeys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.features))
	for _, f := range s.features {
		keys = append(keys, f.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) EnabledKeys(_ context.Context, tenantID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := []string{}
	for _, f := range s.features {
		if s.enabled[tenantID][f.Key] {
			keys = append(keys, f.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) ListToggles(_ context.Context, tenantID string) ([]features.Toggle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]features.Toggle, 0, len(s.features))
	for _, f := range s.features {
		count := 0
		for _, flags := range s.enabled {
			if flags[f.Key] {
				count++
			}
		}
		out = append(out, features.Toggle{
			Key:            f.Key,
			Name:           f.Name,
			Description:    f.Description,
			Enabled:        tenantID != "" && s.enabled[tenantID][f.Key],
			EnabledTenants: count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) SetEnabled(_ context.Context, tenantID, key string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[tenantID]; !ok {
		return auth.ErrNotFound
	}
	known := false
	for _, f := range s.features {
		if f.Key == key {
			known = true
			break
		}
	}
	if !known {
		return auth.ErrNotFound
	}
	if s.enabled[tenantID] == nil {
		s.enabled[tenantID] = map[string]bool{}
	}
	s.enabled[tenantID][key] = enabled
	return nil
}

// Store masters -------------------------------------------------------------

func (s storeTable) ListByTenant(_ context.Context, tenantID string) ([]masters.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []masters.Store{}
	for _, st := range s.stores {
		if st.CompanyID == tenantID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s storeTable) Find(_ context.Context, id string) (masters.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[id]
	if !ok {
		return masters.Store{}, auth.ErrNotFound
	}
	return st, nil
}

func (s storeTable) Insert(_ context.Context, st masters.Store) (masters.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[st.CompanyID]; !ok {
		return masters.Store{}, auth.ErrNotFound
	}
	if _, ok := s.stores[st.ID]; ok {
		return masters.Store{}, auth.ErrConflict
	}
	if s.nameTaken(st) {
		return masters.Store{}, auth.ErrConflict
	}
	s.stores[st.ID] = st
	return st, nil
}

func (s storeTable) Update(_ context.Context, st masters.Store) (masters.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.stores[st.ID]
	if !ok {
		return masters.Store{}, auth.ErrNotFound
	}
	if s.nameTaken(st) {
		return masters.Store{}, auth.ErrConflict
	}
	st.CompanyID = current.CompanyID
	st.CreatedAt = current.CreatedAt
	s.stores[st.ID] = st
	return st, nil
}

func (s storeTable) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stores[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.stores, id)
	return nil
}

func (s storeTable) nameTaken(st masters.Store) bool {
	for id, other := range s.stores {
		if id != st.ID && other.CompanyID == st.CompanyID && strings.EqualFold(other.Name, st.Name) {
			return true
		}
	}
	return false
}
