package utils

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ray-remotestate/menu/config"
	"github.com/ray-remotestate/menu/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	AdminID  int64  `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 admin tokens. Tokens are
// self-contained; nothing is stored server side.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret: cfg.SecretKey,
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

func (m *TokenManager) GenerateToken(identity models.Identity) (token string, expiresAt time.Time, err error) {
	now := m.now()
	expiresAt = now.Add(m.ttl)

	claims := &Claims{
		AdminID:  identity.AdminID,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.AdminID, 10),
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (m *TokenManager) ParseToken(tokenStr string) (*models.Identity, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.AdminID <= 0 {
		return nil, fmt.Errorf("%w: missing admin id", ErrInvalidToken)
	}

	return &models.Identity{AdminID: claims.AdminID, Username: claims.Username}, nil
}

func HashPassword(pw string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(bytes), err
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// CheckPassword compares pw with hashedPassword. An empty hash (unknown user)
// is compared against a throwaway hash so both failure paths cost the same.
func CheckPassword(hashedPassword, pw string) bool {
	if hashedPassword == "" {
		dummyHashOnce.Do(func() {
			dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
		})
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pw))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(pw)) == nil
}
