package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stairworks/timeclock/internal/model"
)

// ErrInvalidToken covers every verification failure: malformed token, bad
// signature and expiry all collapse to this one outcome.
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	_tokenIssuer = "timeclock"

	ScopeWorker = "worker"
	ScopeAdmin  = "admin"
)

type WorkerClaims struct {
	WorkerID model.WorkerID `json:"worker_id"`
	Username string         `json:"username"`
	Name     string         `json:"name"`
	Role     model.Role     `json:"role"`
	Branch   *string        `json:"branch,omitempty"`
	Scope    string         `json:"scope"`
	jwt.RegisteredClaims
}

type AdminClaims struct {
	AdminID  int64  `json:"admin_id"`
	Username string `json:"username"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the signed identity tokens handed to
// clients after authentication. Tokens are signed, not encrypted, and there
// is no server-side revocation.
type TokenService struct {
	secret    []byte
	workerTTL time.Duration
	adminTTL  time.Duration
}

func NewTokenService(secret []byte, workerTTL, adminTTL time.Duration) *TokenService {
	return &TokenService{
		secret:    secret,
		workerTTL: workerTTL,
		adminTTL:  adminTTL,
	}
}

func (ts *TokenService) IssueWorker(worker model.Worker) (string, error) {
	now := time.Now()
	claims := WorkerClaims{
		WorkerID: worker.ID,
		Username: worker.Username,
		Name:     worker.Name,
		Role:     worker.Role,
		Branch:   worker.Branch,
		Scope:    ScopeWorker,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    _tokenIssuer,
			Subject:   worker.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.workerTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

func (ts *TokenService) IssueAdmin(admin model.Admin) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		Scope:    ScopeAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    _tokenIssuer,
			Subject:   fmt.Sprintf("admin:%d", admin.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.adminTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

func (ts *TokenService) VerifyWorker(tokenStr string) (WorkerClaims, error) {
	var claims WorkerClaims
	if err := ts.parse(tokenStr, &claims); err != nil {
		return WorkerClaims{}, err
	}

	if claims.Scope != ScopeWorker {
		return WorkerClaims{}, ErrInvalidToken
	}

	return claims, nil
}

func (ts *TokenService) VerifyAdmin(tokenStr string) (AdminClaims, error) {
	var claims AdminClaims
	if err := ts.parse(tokenStr, &claims); err != nil {
		return AdminClaims{}, err
	}

	if claims.Scope != ScopeAdmin {
		return AdminClaims{}, ErrInvalidToken
	}

	return claims, nil
}

func (ts *TokenService) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return ts.secret, nil
	}, jwt.WithIssuer(_tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	return nil
}
