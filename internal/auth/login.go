package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AdminLogin checks a single configured admin account.
type AdminLogin struct {
	email        string
	passwordHash []byte
	issuer       *TokenIssuer
}

func NewAdminLogin(email, passwordHash string, issuer *TokenIssuer) *AdminLogin {
	return &AdminLogin{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(passwordHash),
		issuer:       issuer,
	}
}

// Login returns a signed admin token for valid credentials.
func (a *AdminLogin) Login(email, password string) (string, error) {
	if a.email == "" || len(a.passwordHash) == 0 {
		return "", ErrInvalidCredentials
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(a.email)) == 1
	pwErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !emailOK || pwErr != nil {
		return "", ErrInvalidCredentials
	}
	return a.issuer.Issue(Identity{Subject: a.email, Email: a.email, Role: RoleAdmin})
}
