package database

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/almanac/almanacbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// The memory stores back STORE_DRIVER=memory and tests. They mirror the
// Mongo stores' contracts: same sentinel errors, same uniqueness rules, and
// whole-document replacement on Save.

type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[bson.ObjectID]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[bson.ObjectID]models.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	if s.emailTaken(u.Email, u.ID) {
		return ErrDuplicate
	}
	if _, ok := s.users[u.ID]; ok {
		return ErrDuplicate
	}
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *MemoryUserStore) InsertIfAbsent(ctx context.Context, u *models.User) (bool, error) {
	err := s.Create(ctx, u)
	if err == ErrDuplicate {
		return false, nil
	}
	return err == nil, err
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (s *MemoryUserStore) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	if s.emailTaken(u.Email, u.ID) {
		return ErrDuplicate
	}
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *MemoryUserStore) Delete(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryUserStore) List(_ context.Context, skip, limit int) ([]models.User, int64, error) {
	s.mu.RLock()
	all := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, cloneUser(u))
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b models.User) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	total := int64(len(all))
	if skip >= len(all) {
		return []models.User{}, total, nil
	}
	end := min(skip+limit, len(all))
	return all[skip:end], total, nil
}

func (s *MemoryUserStore) emailTaken(email string, except bson.ObjectID) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUser(u models.User) models.User {
	u.EmailVerificationCodeExpiry = cloneTime(u.EmailVerificationCodeExpiry)
	u.TwoFactorCodeExpiry = cloneTime(u.TwoFactorCodeExpiry)
	u.LockUntil = cloneTime(u.LockUntil)
	u.LastPasswordResetAt = cloneTime(u.LastPasswordResetAt)
	u.LastLogin = cloneTime(u.LastLogin)
	return u
}

type MemoryRefreshTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]models.RefreshToken
}

func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{tokens: make(map[string]models.RefreshToken)}
}

func (s *MemoryRefreshTokenStore) Create(_ context.Context, t *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.TokenHash]; ok {
		return ErrDuplicate
	}
	if t.ID.IsZero() {
		t.ID = bson.NewObjectID()
	}
	c := *t
	c.RevokedAt = cloneTime(t.RevokedAt)
	s.tokens[t.TokenHash] = c
	return nil
}

func (s *MemoryRefreshTokenStore) FindByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[hash]
	if !ok {
		return nil, ErrNotFound
	}
	t.RevokedAt = cloneTime(t.RevokedAt)
	return &t, nil
}

func (s *MemoryRefreshTokenStore) Revoke(_ context.Context, hash string, userID bson.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.UserID != userID || t.IsRevoked {
		return false, nil
	}
	t.IsRevoked = true
	t.RevokedAt = &at
	s.tokens[hash] = t
	return true, nil
}

func (s *MemoryRefreshTokenStore) RevokeAllForUser(_ context.Context, userID bson.ObjectID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, t := range s.tokens {
		if t.UserID != userID || t.IsRevoked {
			continue
		}
		t.IsRevoked = true
		t.RevokedAt = &at
		s.tokens[hash] = t
		n++
	}
	return n, nil
}

func (s *MemoryRefreshTokenStore) DeleteForUser(_ context.Context, userID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, hash)
		}
	}
	return nil
}

type MemoryCalendarStore struct {
	mu   sync.RWMutex
	cals map[bson.ObjectID]models.Calendar
}

func NewMemoryCalendarStore() *MemoryCalendarStore {
	return &MemoryCalendarStore{cals: make(map[bson.ObjectID]models.Calendar)}
}

func (s *MemoryCalendarStore) Create(_ context.Context, cal *models.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cal.ID.IsZero() {
		cal.ID = bson.NewObjectID()
	}
	s.cals[cal.ID] = *cal
	return nil
}

func (s *MemoryCalendarStore) FindByID(_ context.Context, id bson.ObjectID) (*models.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal, ok := s.cals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &cal, nil
}

func (s *MemoryCalendarStore) ListByOwner(_ context.Context, ownerID bson.ObjectID) ([]models.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Calendar, 0)
	for _, c := range s.cals {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Calendar) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *MemoryCalendarStore) Save(_ context.Context, cal *models.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cals[cal.ID]; !ok {
		return ErrNotFound
	}
	s.cals[cal.ID] = *cal
	return nil
}

func (s *MemoryCalendarStore) Delete(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cals[id]; !ok {
		return ErrNotFound
	}
	delete(s.cals, id)
	return nil
}

func (s *MemoryCalendarStore) DeleteByOwner(_ context.Context, ownerID bson.ObjectID) ([]bson.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]bson.ObjectID, 0)
	for id, c := range s.cals {
		if c.OwnerID == ownerID {
			ids = append(ids, id)
			delete(s.cals, id)
		}
	}
	return ids, nil
}

type MemoryMemberStore struct {
	mu      sync.RWMutex
	members map[bson.ObjectID]models.Member
}

func NewMemoryMemberStore() *MemoryMemberStore {
	return &MemoryMemberStore{members: make(map[bson.ObjectID]models.Member)}
}

func (s *MemoryMemberStore) Create(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.CalendarID == m.CalendarID && existing.UserID == m.UserID {
			return ErrDuplicate
		}
	}
	if m.ID.IsZero() {
		m.ID = bson.NewObjectID()
	}
	s.members[m.ID] = *m
	return nil
}

func (s *MemoryMemberStore) FindByID(_ context.Context, id bson.ObjectID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryMemberStore) Find(_ context.Context, calendarID, userID bson.ObjectID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.CalendarID == calendarID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryMemberStore) ListByCalendar(_ context.Context, calendarID bson.ObjectID) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Member, 0)
	for _, m := range s.members {
		if m.CalendarID == calendarID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b models.Member) int { return a.JoinedAt.Compare(b.JoinedAt) })
	return out, nil
}

func (s *MemoryMemberStore) Save(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return ErrNotFound
	}
	s.members[m.ID] = *m
	return nil
}

func (s *MemoryMemberStore) Delete(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return ErrNotFound
	}
	delete(s.members, id)
	return nil
}

func (s *MemoryMemberStore) DeleteByCalendars(_ context.Context, calendarIDs ...bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, m := range s.members {
		if slices.Contains(calendarIDs, m.CalendarID) {
			delete(s.members, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryMemberStore) DeleteByUser(_ context.Context, userID bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, m := range s.members {
		if m.UserID == userID {
			delete(s.members, id)
			n++
		}
	}
	return n, nil
}
