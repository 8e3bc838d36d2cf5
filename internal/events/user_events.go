package events

import (
	"fmt"
	"time"

	"broadcast-service/internal/models"
)

// UserCreated is broadcast on the public users channel when the account
// service provisions a user.
type UserCreated struct {
	User *models.User
}

func (e UserCreated) BroadcastOn() []string {
	return []string{"users"}
}

func (e UserCreated) BroadcastAs() string {
	return "UserCreated"
}

func (e UserCreated) BroadcastWith() map[string]any {
	return map[string]any{
		"id":         e.User.ID,
		"email":      e.User.Email,
		"name":       e.User.FullName,
		"created_at": e.User.CreatedAt.Format(time.RFC3339),
	}
}

// UserUpdated is broadcast on the user's own private channel.
type UserUpdated struct {
	User *models.User
}

func (e UserUpdated) BroadcastOn() []string {
	return []string{fmt.Sprintf("private-user.%d", e.User.ID)}
}

func (e UserUpdated) BroadcastAs() string {
	return "UserUpdated"
}

func (e UserUpdated) BroadcastWith() map[string]any {
	return map[string]any{
		"id":         e.User.ID,
		"email":      e.User.Email,
		"name":       e.User.FullName,
		"updated_at": e.User.UpdatedAt.Format(time.RFC3339),
	}
}

// UserDeleted is broadcast on the shared presence channel so members see
// the departure.
type UserDeleted struct {
	UserID uint
}

func (e UserDeleted) BroadcastOn() []string {
	return []string{"presence-users"}
}

func (e UserDeleted) BroadcastAs() string {
	return "UserDeleted"
}

func (e UserDeleted) BroadcastWith() map[string]any {
	return map[string]any{
		"user_id": e.UserID,
	}
}
