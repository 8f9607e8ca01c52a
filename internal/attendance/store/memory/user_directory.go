package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/opsdesk/attendance/internal/attendance/store"
)

type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]store.User
}

func NewUserDirectory(users ...store.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]store.User, len(users))}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

// Put adds or replaces a user.
func (d *UserDirectory) Put(u store.User) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *UserDirectory) GetUser(_ context.Context, id string) (store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (d *UserDirectory) ListActiveUsers(_ context.Context) ([]store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]store.User, 0, len(d.users))
	for _, u := range d.users {
		if u.Active {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
