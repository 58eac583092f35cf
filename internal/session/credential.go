package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campusmart/client/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential is returned when a bearer credential cannot be decoded or has expired.
var ErrInvalidCredential = errors.New("invalid credential")

// Claims is the payload the backend signs into the bearer token.
type Claims struct {
	User models.Identity `json:"user"`
	jwt.RegisteredClaims
}

// Decode reads the identity from token without verifying the signature; verification
// is the backend's job. The token must carry an expiry strictly after now.
func Decode(token string, now time.Time) (*models.Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expired", ErrInvalidCredential)
	}
	if claims.User.ID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidCredential)
	}

	identity := claims.User
	if identity.Role == "" {
		identity.Role = models.RoleUser
	}
	return &identity, nil
}

// CredentialStore persists the single bearer credential across runs.
type CredentialStore interface {
	// Load returns "" when nothing is stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// MemoryCredentialStore keeps the credential for the life of the process.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryCredentialStore(token string) *MemoryCredentialStore {
	return &MemoryCredentialStore{token: token}
}

func (m *MemoryCredentialStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryCredentialStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryCredentialStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
