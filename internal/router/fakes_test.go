package router

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	locentity "github.com/ovaphlow/pitchfork/service-ohsnap/internal/location/entity"
	shotentity "github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot/entity"
	userentity "github.com/ovaphlow/pitchfork/service-ohsnap/internal/user/entity"
)

type fakeUsers struct {
	mu   sync.Mutex
	rows map[string]userentity.User
}

func (f *fakeUsers) Create(ctx context.Context, u *userentity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[u.Username] = *u
	return nil
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*userentity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id int64, p userentity.ProfilePatch, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, u := range f.rows {
		if u.ID != id {
			continue
		}
		if p.Email != nil {
			u.Email = *p.Email
		}
		if p.Bio != nil {
			u.Bio = *p.Bio
		}
		u.UpdatedAt = &at
		f.rows[name] = u
		return 1, nil
	}
	return 0, nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id int64, hash string) error { return nil }

// fakeLocations ignores filters; ordering matches the Postgres repo.
type fakeLocations struct {
	mu   sync.Mutex
	rows map[int64]locentity.Location
}

func (f *fakeLocations) Create(ctx context.Context, l *locentity.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[l.ID] = *l
	return nil
}

func (f *fakeLocations) GetByID(ctx context.Context, id int64) (*locentity.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (f *fakeLocations) List(ctx context.Context, _ locentity.Filter, limit, offset int) ([]*locentity.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*locentity.Location
	for _, l := range f.rows {
		l := l
		all = append(all, &l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeLocations) Count(ctx context.Context, _ locentity.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

func (f *fakeLocations) Update(ctx context.Context, l *locentity.Location) (*locentity.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[l.ID]; !ok {
		return nil, sql.ErrNoRows
	}
	f.rows[l.ID] = *l
	out := *l
	return &out, nil
}

func (f *fakeLocations) Delete(ctx context.Context, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	delete(f.rows, id)
	return 1, nil
}

type fakeShots struct {
	mu   sync.Mutex
	rows []shotentity.Shot
}

func (f *fakeShots) Create(ctx context.Context, s *shotentity.Shot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *s)
	return nil
}

func (f *fakeShots) find(id int64) int {
	for i := range f.rows {
		if f.rows[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeShots) GetByID(ctx context.Context, id int64) (*shotentity.Shot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return nil, sql.ErrNoRows
	}
	s := f.rows[i]
	return &s, nil
}

func (f *fakeShots) filter(keep func(shotentity.Shot) bool) []*shotentity.Shot {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*shotentity.Shot
	for _, s := range f.rows {
		if keep(s) {
			s := s
			out = append(out, &s)
		}
	}
	return out
}

func (f *fakeShots) List(ctx context.Context, flt shotentity.Filter) ([]*shotentity.Shot, error) {
	return f.filter(func(s shotentity.Shot) bool {
		return (flt.IncludePrivate || !s.IsPrivate) &&
			(flt.UserID == 0 || s.UserID == flt.UserID) &&
			(flt.LocationID == 0 || s.LocationID == flt.LocationID)
	}), nil
}

func (f *fakeShots) ListByLocation(ctx context.Context, locationID int64) ([]*shotentity.Shot, error) {
	return f.filter(func(s shotentity.Shot) bool { return s.LocationID == locationID && !s.IsPrivate }), nil
}

func (f *fakeShots) ListByUser(ctx context.Context, userID int64) ([]*shotentity.Shot, error) {
	return f.filter(func(s shotentity.Shot) bool { return s.UserID == userID }), nil
}

func (f *fakeShots) Update(ctx context.Context, s *shotentity.Shot) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(s.ID)
	if i < 0 {
		return 0, nil
	}
	f.rows[i] = *s
	return 1, nil
}

func (f *fakeShots) Delete(ctx context.Context, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return 0, nil
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return 1, nil
}
