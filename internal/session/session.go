package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Storage entry names, kept identical across the cookie and file stores.
const (
	keyName    = "userName"
	keyAadhaar = "userAadhaarNumber"
)

// ErrInvalid means stored state exists but could not be decoded (tampered,
// expired or written with other keys). It is treated as logged out.
var ErrInvalid = errors.New("session: stored state is invalid")

type User struct {
	Name          string
	AadhaarNumber string
}

// Store is the durable side of a session.
type Store interface {
	Load() (User, bool, error)
	Save(User) error
	Clear() error
}

// Session is the process-wide identity. Business code reads it through
// User/LoggedIn; only Login and Logout change it, and both write through to
// the store before the in-memory value changes.
type Session struct {
	mu    sync.RWMutex
	store Store
	user  *User
}

// Open restores a previously persisted user, if any.
func Open(store Store) (*Session, error) {
	s := &Session{store: store}
	u, ok, err := store.Load()
	switch {
	case errors.Is(err, ErrInvalid):
		_ = store.Clear()
	case err != nil:
		return nil, fmt.Errorf("restore session: %w", err)
	case ok:
		s.user = &u
	}
	return s, nil
}

func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) LoggedIn() bool {
	_, ok := s.User()
	return ok
}

func (s *Session) Login(u User) error {
	u.Name = strings.TrimSpace(u.Name)
	u.AadhaarNumber = strings.TrimSpace(u.AadhaarNumber)
	if u.Name == "" || u.AadhaarNumber == "" {
		return errors.New("session: name and aadhaar number are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(u); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.user = &u
	return nil
}

func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func toEntries(u User) map[string]string {
	return map[string]string{keyName: u.Name, keyAadhaar: u.AadhaarNumber}
}

func fromEntries(m map[string]string) (User, bool) {
	u := User{Name: m[keyName], AadhaarNumber: m[keyAadhaar]}
	if u.Name == "" || u.AadhaarNumber == "" {
		return User{}, false
	}
	return u, true
}

// MemoryStore keeps the session for the life of the process only.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func (m *MemoryStore) Load() (User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := fromEntries(m.entries)
	return u, ok, nil
}

func (m *MemoryStore) Save(u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = toEntries(u)
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}
