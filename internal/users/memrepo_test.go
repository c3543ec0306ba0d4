package users

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stockroom/stockroom/internal/shared"
)

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]User
}

func newMemRepo(seed ...User) *memRepo {
	r := &memRepo{rows: make(map[int64]User)}
	for _, u := range seed {
		r.rows[u.ID] = u
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
	}
	return r
}

func (r *memRepo) List(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.rows))
	for _, u := range r.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) Get(ctx context.Context, id int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return u, nil
}

func (r *memRepo) taken(username string, except int64) bool {
	for _, u := range r.rows {
		if u.Username == username && u.ID != except {
			return true
		}
	}
	return false
}

func (r *memRepo) Create(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(u.Username, 0) {
		return User{}, ErrUsernameTaken
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	r.rows[u.ID] = u
	return u, nil
}

func (r *memRepo) Update(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.rows[u.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", u.ID, shared.ErrNotFound)
	}
	if r.taken(u.Username, u.ID) {
		return ErrUsernameTaken
	}
	if u.PasswordHash == "" {
		u.PasswordHash = prev.PasswordHash
	}
	u.CreatedAt = prev.CreatedAt
	r.rows[u.ID] = u
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	delete(r.rows, id)
	return nil
}
