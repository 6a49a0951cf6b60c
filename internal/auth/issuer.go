package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Issuer struct {
	secret   []byte
	issuer   string
	userTTL  time.Duration
	adminTTL time.Duration
	now      func() time.Time
}

func NewIssuer(secret []byte, issuer string, userTTL, adminTTL time.Duration) *Issuer {
	return &Issuer{
		secret:   secret,
		issuer:   issuer,
		userTTL:  userTTL,
		adminTTL: adminTTL,
		now:      time.Now,
	}
}

func (i *Issuer) IssueUser(userID string) (string, error) {
	return i.sign(Claims{UserID: userID}, i.userTTL)
}

func (i *Issuer) IssueAdmin(adminID, username, role string) (string, error) {
	return i.sign(Claims{
		AdminID:  adminID,
		Username: username,
		Role:     role,
		Type:     adminTokenType,
	}, i.adminTTL)
}

func (i *Issuer) sign(c Claims, ttl time.Duration) (string, error) {
	now := i.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(i.secret)
}
