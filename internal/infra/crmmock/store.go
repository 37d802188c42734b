package crmmock

import (
	"errors"
	"fmt"
	"sync"
)

const (
	ClientID     = "dummy"
	ClientSecret = "dummy"
	AccessToken  = "mock_token"
	TokenTTL     = 3600
)

var (
	ErrInvalidCredentials = errors.New("invalid client credentials")
	ErrNotFound           = errors.New("user not found")
)

type Record struct {
	CRMID string `json:"crm_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Store is the in-memory state of the mock CRM. Ids are CRM1, CRM2, ... in
// creation order and are never reused.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	next    int
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]Record),
		next:    1,
	}
}

func (s *Store) IssueToken(clientID, clientSecret string) (string, error) {
	if clientID != ClientID || clientSecret != ClientSecret {
		return "", ErrInvalidCredentials
	}
	return AccessToken, nil
}

func (s *Store) ValidToken(token string) bool {
	return token == AccessToken
}

func (s *Store) Create(name, email, phone string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		CRMID: fmt.Sprintf("CRM%d", s.next),
		Name:  name,
		Email: email,
		Phone: phone,
	}
	s.next++
	s.records[rec.CRMID] = rec
	return rec
}

func (s *Store) Get(crmID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[crmID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
