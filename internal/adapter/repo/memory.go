package repo

import (
	"context"
	"fmt"
	"sync"

	"lifelink/internal/domain"
)

// UserMemory is an in-process domain.UserStore.
type UserMemory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserMemory() *UserMemory {
	return &UserMemory{users: map[string]domain.User{}}
}

func (u *UserMemory) Create(_ context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.users[user.Username]; exists {
		return fmt.Errorf("%w: username %q already registered", domain.ErrConflict, user.Username)
	}
	u.users[user.Username] = *user
	return nil
}

func (u *UserMemory) Get(_ context.Context, username string) (*domain.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

// FeedbackMemory is an in-process domain.FeedbackStore.
type FeedbackMemory struct {
	mu      sync.Mutex
	entries []domain.Feedback
}

func NewFeedbackMemory() *FeedbackMemory {
	return &FeedbackMemory{}
}

func (f *FeedbackMemory) Create(_ context.Context, fb *domain.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *fb)
	return nil
}

func (f *FeedbackMemory) List(_ context.Context) ([]domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Feedback{}, f.entries...), nil
}
