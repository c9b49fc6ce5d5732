package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"todo-service/internal/auth"
	"todo-service/internal/entity"
)

type memUserStore struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*entity.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[int]*entity.User{}}
}

func (s *memUserStore) Create(_ context.Context, username, hash string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return nil, entity.ErrDuplicateUser
		}
	}
	s.nextID++
	u := &entity.User{ID: s.nextID, Username: username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (s *memUserStore) FindByID(_ context.Context, id int) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

type memTaskStore struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]entity.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: map[int]entity.Task{}}
}

func (s *memTaskStore) List(_ context.Context, userID int) ([]entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.Task{}
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memTaskStore) Get(_ context.Context, id, userID int) (*entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, entity.ErrNotFound
	}
	return &t, nil
}

func (s *memTaskStore) Create(_ context.Context, task *entity.Task) (*entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := *task
	t.ID = s.nextID
	t.CreatedAt = time.Now().UTC().Truncate(time.Second)
	t.UpdatedAt = t.CreatedAt
	s.tasks[t.ID] = t
	return &t, nil
}

func (s *memTaskStore) Update(_ context.Context, id, userID int, apply func(*entity.Task) error) (*entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, entity.ErrNotFound
	}
	if err := apply(&t); err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	s.tasks[id] = t
	return &t, nil
}

func (s *memTaskStore) Delete(_ context.Context, id, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return entity.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

type memCache struct {
	entries     map[[2]int]entity.Task
	generations map[[2]int]int64
	hits        int
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{entries: map[[2]int]entity.Task{}, generations: map[[2]int]int64{}}
}

func (c *memCache) Get(_ context.Context, userID, id int) (*entity.Task, error) {
	t, ok := c.entries[[2]int{userID, id}]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &t, nil
}

func (c *memCache) Generation(_ context.Context, userID, id int) (int64, error) {
	return c.generations[[2]int{userID, id}], nil
}

func (c *memCache) Set(_ context.Context, task *entity.Task, generation int64) error {
	key := [2]int{task.UserID, task.ID}
	if c.generations[key] != generation {
		return nil
	}
	c.entries[key] = *task
	return nil
}

func (c *memCache) Invalidate(_ context.Context, userID, id int) error {
	c.invalidated++
	key := [2]int{userID, id}
	c.generations[key]++
	delete(c.entries, key)
	return nil
}

// interleavedStore calls during once, after reading the row and before
// returning it.
type interleavedStore struct {
	*memTaskStore
	during func()
}

func (s *interleavedStore) Get(ctx context.Context, id, userID int) (*entity.Task, error) {
	task, err := s.memTaskStore.Get(ctx, id, userID)
	if s.during != nil {
		during := s.during
		s.during = nil
		during()
	}
	return task, err
}

type publishedEvent struct {
	event  string
	taskID int
}

type recordingPublisher struct {
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishTask(_ context.Context, event string, task *entity.Task) error {
	p.events = append(p.events, publishedEvent{event: event, taskID: task.ID})
	return p.err
}

type staticResolver struct {
	issued     map[string]*auth.Claims
	revoked    []string
	resolveErr error
}

func newStaticResolver() *staticResolver {
	return &staticResolver{issued: map[string]*auth.Claims{}}
}

func (r *staticResolver) Issue(_ context.Context, userID int, username string) (string, time.Time, error) {
	token := username + "-token"
	r.issued[token] = &auth.Claims{UserID: userID, Username: username}
	return token, time.Now().Add(time.Hour), nil
}

func (r *staticResolver) Resolve(_ context.Context, token string) (*auth.Claims, error) {
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	c, ok := r.issued[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return c, nil
}

func (r *staticResolver) Revoke(_ context.Context, token string) error {
	r.revoked = append(r.revoked, token)
	delete(r.issued, token)
	return nil
}

func strPtr(s string) *string { return &s }
