package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	AudienceBallot = "ballot"
	AudienceAdmin  = "admin"
)

// BallotClaims carries a voter's progress through the code flow.
type BallotClaims struct {
	Stage string `json:"stage"`
	Email string `json:"email"`
	jwtlib.RegisteredClaims
}

type AdminClaims struct {
	Username string `json:"username"`
	jwtlib.RegisteredClaims
}

func registered(audience string, now time.Time, ttl time.Duration) jwtlib.RegisteredClaims {
	return jwtlib.RegisteredClaims{
		Audience:  jwtlib.ClaimStrings{audience},
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwtlib.NewNumericDate(now),
	}
}

func GenerateBallotToken(stage, email string, secret []byte, ttl time.Duration) (string, error) {
	claims := BallotClaims{
		Stage:            stage,
		Email:            email,
		RegisteredClaims: registered(AudienceBallot, time.Now(), ttl),
	}
	return sign(claims, secret)
}

func ParseBallotToken(tokenString string, secret []byte) (*BallotClaims, error) {
	claims := &BallotClaims{}
	if err := parse(tokenString, claims, AudienceBallot, secret); err != nil {
		return nil, err
	}
	return claims, nil
}

func GenerateAdminToken(username string, secret []byte, ttl time.Duration) (string, error) {
	claims := AdminClaims{
		Username:         username,
		RegisteredClaims: registered(AudienceAdmin, time.Now(), ttl),
	}
	return sign(claims, secret)
}

func ParseAdminToken(tokenString string, secret []byte) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := parse(tokenString, claims, AudienceAdmin, secret); err != nil {
		return nil, err
	}
	return claims, nil
}

func sign(claims jwtlib.Claims, secret []byte) (string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parse(tokenString string, claims jwtlib.Claims, audience string, secret []byte) error {
	token, err := jwtlib.ParseWithClaims(tokenString, claims, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwtlib.WithAudience(audience))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
