package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"broadcast-service/internal/models"
)

const testSecret = "test-secret"

type stubStore struct {
	users map[uint]*models.User
	err   error
}

func (s *stubStore) FindByID(_ context.Context, id uint) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func activeUser(id uint) *models.User {
	return &models.User{ID: id, Email: "user@example.com", IsActive: true}
}

func TestVerifyTokenResolvesActiveUser(t *testing.T) {
	store := &stubStore{users: map[uint]*models.User{7: activeUser(7)}}
	v := NewVerifier(store, testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 7,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	user, err := v.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 7 {
		t.Errorf("expected user 7, got %d", user.ID)
	}
}

func TestVerifyTokenRejectsBadSignature(t *testing.T) {
	store := &stubStore{users: map[uint]*models.User{7: activeUser(7)}}
	v := NewVerifier(store, testSecret)

	token := signToken(t, "other-secret", jwt.MapClaims{"user_id": 7})

	if _, err := v.VerifyToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsExpiredToken(t *testing.T) {
	store := &stubStore{users: map[uint]*models.User{7: activeUser(7)}}
	v := NewVerifier(store, testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 7,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := v.VerifyToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	v := NewVerifier(&stubStore{}, testSecret)

	if _, err := v.VerifyToken(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsMissingUserClaim(t *testing.T) {
	v := NewVerifier(&stubStore{}, testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{"sub": "7"})

	if _, err := v.VerifyToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsUnknownUser(t *testing.T) {
	v := NewVerifier(&stubStore{users: map[uint]*models.User{}}, testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{"user_id": 99})

	if _, err := v.VerifyToken(context.Background(), token); !errors.Is(err, ErrUserInactive) {
		t.Errorf("expected ErrUserInactive, got %v", err)
	}
}

func TestVerifyTokenRejectsInactiveUser(t *testing.T) {
	inactive := activeUser(7)
	inactive.IsActive = false
	v := NewVerifier(&stubStore{users: map[uint]*models.User{7: inactive}}, testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{"user_id": 7})

	if _, err := v.VerifyToken(context.Background(), token); !errors.Is(err, ErrUserInactive) {
		t.Errorf("expected ErrUserInactive, got %v", err)
	}
}

func TestVerifyTokenSurfacesStoreFailure(t *testing.T) {
	v := NewVerifier(&stubStore{err: errors.New("db down")}, testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{"user_id": 7})

	if _, err := v.VerifyToken(context.Background(), token); !errors.Is(err, ErrUserInactive) {
		t.Errorf("expected ErrUserInactive, got %v", err)
	}
}
