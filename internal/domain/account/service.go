package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthwatch/healthwatch/internal/platform/auth"
	"github.com/healthwatch/healthwatch/internal/platform/db"
)

type Service struct {
	repo        AccountRepository
	issuer      *auth.TokenIssuer
	revocations auth.RevocationStore
	cost        int
	// compared against when the username is unknown so both paths pay
	// for one bcrypt comparison
	dummyHash []byte
}

func NewService(repo AccountRepository, issuer *auth.TokenIssuer, revocations auth.RevocationStore) *Service {
	return newServiceWithCost(repo, issuer, revocations, bcrypt.DefaultCost)
}

func newServiceWithCost(repo AccountRepository, issuer *auth.TokenIssuer, revocations auth.RevocationStore, cost int) *Service {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("healthwatch-timing-equalizer"), cost)
	return &Service{repo: repo, issuer: issuer, revocations: revocations, cost: cost, dummyHash: dummy}
}

// CreateAccount provisions a staff account with a bcrypt password hash.
func (s *Service) CreateAccount(ctx context.Context, in CreateInput) (*Account, error) {
	in.normalize()
	role, err := in.validate()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &Account{Username: in.Username, PasswordHash: string(hash), Role: role, Active: true}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

// Authenticate checks credentials. Every failure mode returns
// ErrInvalidCredentials; only storage errors come back as themselves.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	in := CreateInput{Username: username}
	in.normalize()

	a, err := s.repo.GetByUsername(ctx, in.Username)
	if db.IsNotFound(err) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !a.Active {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*auth.IssuedToken, error) {
	if s.issuer == nil {
		return nil, errors.New("token issuer not configured")
	}
	a, err := s.Authenticate(ctx, in.Username, in.Password)
	if err != nil {
		return nil, err
	}
	tok, err := s.issuer.Issue(a.ID.String(), a.Username, a.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}

// Logout revokes the presented token until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revocations == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// SetActive enables or disables an account. Disabling also revokes every
// token already issued to it; new logins are refused by Authenticate.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error) {
	a, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, fmt.Errorf("set account %s active=%t: %w", id, active, err)
	}
	if !active && s.revocations != nil && s.issuer != nil {
		now := time.Now()
		if err := s.revocations.RevokeSubject(ctx, id.String(), now, now.Add(s.issuer.TTL())); err != nil {
			return nil, fmt.Errorf("deactivate account %s: %w: %v", id, ErrRevocationFailed, err)
		}
	}
	return a, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	return items, total, nil
}
