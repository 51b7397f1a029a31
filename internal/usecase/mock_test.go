package usecase

import (
	"context"
	"sync"

	"github.com/totegamma/curatorgate/internal/domain"
)

// memoryStore is a code and grant store guarded by a single mutex, which
// gives Redeem the same all-or-nothing behaviour as the database transaction.
type memoryStore struct {
	mu          sync.Mutex
	codes       map[string]domain.InviteCode
	grants      []domain.Grant
	redeemCalls int
	existsCalls int
	redeemErr   error
	redeemPanic bool
	existsErr   error
	blockExists bool
}

func newMemoryStore(codes ...domain.InviteCode) *memoryStore {
	s := &memoryStore{codes: make(map[string]domain.InviteCode)}
	for _, c := range codes {
		s.codes[c.Code] = c
	}
	return s
}

func (s *memoryStore) Create(ctx context.Context, code domain.InviteCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code.Code]; ok {
		return domain.ErrAlreadyExists
	}
	s.codes[code.Code] = code
	return nil
}

func (s *memoryStore) Get(ctx context.Context, code string) (domain.InviteCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return domain.InviteCode{}, domain.NotFoundError{Resource: "invite code"}
	}
	return c, nil
}

func (s *memoryStore) Redeem(ctx context.Context, input domain.RedeemInput) (domain.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redeemCalls++
	if s.redeemPanic {
		panic("connection pool corrupted")
	}
	if s.redeemErr != nil {
		return domain.Grant{}, s.redeemErr
	}

	code, ok := s.codes[input.Code]
	if !ok {
		return domain.Grant{}, domain.NotFoundError{Resource: "invite code"}
	}
	if err := code.Redeemable(input.Email, input.Now); err != nil {
		return domain.Grant{}, err
	}
	code.UsedCount++
	if code.MaxUses > 0 && code.UsedCount >= code.MaxUses {
		now := input.Now
		code.ConsumedAt = &now
	}
	s.codes[input.Code] = code

	scope := input.Mode.GrantScope(code)
	for _, g := range s.grants {
		if g.SubjectID == input.SubjectID && g.ScopeID == scope {
			return g, nil
		}
	}
	grant := domain.Grant{
		ID:        input.SubjectID + "/" + scope,
		SubjectID: input.SubjectID,
		ScopeID:   scope,
		Code:      code.Code,
		IssuedAt:  input.Now,
	}
	s.grants = append(s.grants, grant)
	return grant, nil
}

func (s *memoryStore) Exists(ctx context.Context, subjectID, scopeID string) (bool, error) {
	s.mu.Lock()
	s.existsCalls++
	block, err := s.blockExists, s.existsErr
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.SubjectID != subjectID {
			continue
		}
		if scopeID == "" || g.ScopeID == scopeID || g.ScopeID == domain.GlobalScope {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) ListBySubject(ctx context.Context, subjectID string) ([]domain.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Grant
	for _, g := range s.grants {
		if g.SubjectID == subjectID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *memoryStore) code(code string) domain.InviteCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[code]
}

type mockLimiter struct {
	mu    sync.Mutex
	deny  map[string]bool
	err   error
	calls []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, key)
	if m.err != nil {
		return false, m.err
	}
	return !m.deny[key], nil
}

type mockSignal struct {
	mu     sync.Mutex
	events []domain.GrantEvent
}

func (m *mockSignal) Publish(ctx context.Context, event domain.GrantEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}
