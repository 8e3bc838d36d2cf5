package auth

import (
	"context"
	"errors"
	"fmt"

	"broadcast-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUserInactive = errors.New("user not found or inactive")
)

// UserStore is the lookup the verifier needs; satisfied by UserRepository.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// Verifier validates bearer tokens issued by the auth service and resolves
// them to an active user. Token issuance lives elsewhere; this side only
// checks signature, expiry and the user's active flag.
type Verifier struct {
	store  UserStore
	secret string
}

func NewVerifier(store UserStore, secret string) *Verifier {
	return &Verifier{store: store, secret: secret}
}

func (v *Verifier) VerifyToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	user, err := v.store.FindByID(ctx, uint(userID))
	if err != nil || user == nil || !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}
