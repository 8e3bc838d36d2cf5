package server

import (
	"broadcast-service/internal/broadcast"
	"broadcast-service/internal/models"
)

// RegisterChannels declares every channel authorization rule the service
// knows. Rules are matched in registration order, first match wins, so the
// more specific patterns belong first.
func RegisterChannels(a *broadcast.Authorizer) error {
	// A user's own private channel
	if err := a.Channel("private-user.{id}", func(user *models.User, params broadcast.Params) bool {
		return user != nil && user.ID == uint(params["id"])
	}); err != nil {
		return err
	}

	// Any authenticated user may join the shared presence channel
	return a.Channel("presence-users", func(user *models.User, _ broadcast.Params) bool {
		return user != nil
	})
}
