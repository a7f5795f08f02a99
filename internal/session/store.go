package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Tokens is the access/refresh pair issued by the identity service.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Store owns the tokens and cached customer record of one browser session.
// It is the only writer of its session's persisted keys.
//
// Reads prefer memory and fall back to the persisted KV. A nil KV means no
// persisted storage is available and only memory is used.
type Store struct {
	sessionID string
	kv        KV
	notify    func(Event)

	mu     sync.RWMutex
	tokens Tokens
}

// NewStore creates a store for one session. kv and notify may be nil.
func NewStore(sessionID string, kv KV, notify func(Event)) *Store {
	return &Store{sessionID: sessionID, kv: kv, notify: notify}
}

// SessionID returns the browser session this store belongs to.
func (s *Store) SessionID() string { return s.sessionID }

// SetTokens overwrites any previous pair in memory and persisted storage.
// The two keys are written separately; a failure between the writes can
// leave a mismatched persisted pair, which the next SetTokens repairs.
func (s *Store) SetTokens(ctx context.Context, t Tokens) error {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()

	if s.kv != nil {
		if err := s.kv.Set(ctx, scopedKey(s.sessionID, KeyAccessToken), t.AccessToken); err != nil {
			return fmt.Errorf("session: persist access token: %w", err)
		}
		if err := s.kv.Set(ctx, scopedKey(s.sessionID, KeyRefreshToken), t.RefreshToken); err != nil {
			return fmt.Errorf("session: persist refresh token: %w", err)
		}
	}
	s.emit(EventLogin)
	return nil
}

// AccessToken returns the access token from memory, then persisted storage.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.token(ctx, KeyAccessToken)
}

// RefreshToken returns the refresh token from memory, then persisted storage.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.token(ctx, KeyRefreshToken)
}

func (s *Store) token(ctx context.Context, name string) (string, bool) {
	s.mu.RLock()
	v := s.tokens.AccessToken
	if name == KeyRefreshToken {
		v = s.tokens.RefreshToken
	}
	s.mu.RUnlock()
	if v != "" {
		return v, true
	}
	if s.kv == nil {
		return "", false
	}

	persisted, ok, err := s.kv.Get(ctx, scopedKey(s.sessionID, name))
	if err != nil || !ok || strings.TrimSpace(persisted) == "" {
		return "", false
	}

	s.mu.Lock()
	if name == KeyRefreshToken {
		s.tokens.RefreshToken = persisted
	} else {
		s.tokens.AccessToken = persisted
	}
	s.mu.Unlock()
	return persisted, true
}

// Identity decodes the current access token. See DecodeClaims.
func (s *Store) Identity(ctx context.Context) (*Claims, bool) {
	token, ok := s.AccessToken(ctx)
	if !ok {
		return nil, false
	}
	return DecodeClaims(token)
}

// Clear removes the tokens and cached customer record from both tiers.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()

	var err error
	if s.kv != nil {
		err = s.kv.Delete(ctx,
			scopedKey(s.sessionID, KeyAccessToken),
			scopedKey(s.sessionID, KeyRefreshToken),
			scopedKey(s.sessionID, KeyCustomerData),
		)
	}
	s.emit(EventLogout)
	if err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// CustomerData returns the cached customer record (JSON), if any.
func (s *Store) CustomerData(ctx context.Context) ([]byte, bool) {
	if s.kv == nil {
		return nil, false
	}
	v, ok, err := s.kv.Get(ctx, scopedKey(s.sessionID, KeyCustomerData))
	if err != nil || !ok || v == "" {
		return nil, false
	}
	return []byte(v), true
}

// SetCustomerData caches a serialized customer record.
func (s *Store) SetCustomerData(ctx context.Context, data []byte) error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Set(ctx, scopedKey(s.sessionID, KeyCustomerData), string(data))
}

// ForgetCustomerData drops the cached customer record.
func (s *Store) ForgetCustomerData(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Delete(ctx, scopedKey(s.sessionID, KeyCustomerData))
}

func (s *Store) emit(kind EventKind) {
	if s.notify != nil {
		s.notify(Event{SessionID: s.sessionID, Kind: kind})
	}
}
