package backend

import (
	"context"
	"sync"

	"github.com/MrEthical07/goReset/internal"
)

// User is the part of an account the reset service needs.
type User struct {
	ID           string
	Email        string
	PasswordHash string
}

// UserProvider looks up accounts and stores the new password hash.
// GetUserByEmail returns ErrUserNotFound for unknown addresses.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// MemoryUsers is an in-memory UserProvider for demos and tests.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryUsers) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
	m.byEmail[internal.NormalizeEmail(u.Email)] = u.ID
}

func (m *MemoryUsers) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[internal.NormalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *MemoryUsers) GetUserByID(id string) (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	return u, ok
}

func (m *MemoryUsers) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	m.byID[userID] = u
	return nil
}
