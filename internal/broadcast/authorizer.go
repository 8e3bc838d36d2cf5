package broadcast

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"broadcast-service/internal/models"
)

// Params holds the integer parameters extracted from a channel name.
type Params map[string]int

// RuleFunc decides channel access for a user. user is nil for anonymous
// connections.
type RuleFunc func(user *models.User, params Params) bool

type rule struct {
	pattern string
	re      *regexp.Regexp
	names   []string
	fn      RuleFunc
}

// Authorizer decides channel access and mints signed grants for the HTTP
// authorization endpoint. Rules are registered once at startup and
// evaluated in registration order; the first matching rule wins.
type Authorizer struct {
	appKey string
	rules  []rule
}

func NewAuthorizer(appKey string) *Authorizer {
	return &Authorizer{appKey: appKey}
}

var paramSegment = regexp.MustCompile(`^\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// Channel registers an authorization rule. Pattern segments are separated
// by "."; a "{name}" segment matches one or more digits and binds name to
// the integer value. Matching is anchored and case-sensitive.
func (a *Authorizer) Channel(pattern string, fn RuleFunc) error {
	var names []string
	var sb strings.Builder
	sb.WriteString(`^`)
	for i, seg := range strings.Split(pattern, ".") {
		if i > 0 {
			sb.WriteString(`\.`)
		}
		if m := paramSegment.FindStringSubmatch(seg); m != nil {
			names = append(names, m[1])
			sb.WriteString(`(\d+)`)
			continue
		}
		if seg == "" {
			return fmt.Errorf("invalid channel pattern %q", pattern)
		}
		sb.WriteString(regexp.QuoteMeta(seg))
	}
	sb.WriteString(`$`)

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return fmt.Errorf("invalid channel pattern %q: %w", pattern, err)
	}
	a.rules = append(a.rules, rule{pattern: pattern, re: re, names: names, fn: fn})
	return nil
}

// IsGuarded reports whether a channel requires authorization.
func IsGuarded(channel string) bool {
	return strings.HasPrefix(channel, "private-") || strings.HasPrefix(channel, "presence-")
}

// Authorize reports whether the user may subscribe to the channel. Public
// channels are open to everyone, including anonymous users. Private and
// presence channels require a matching rule whose callback approves; with
// no matching rule access is denied.
func (a *Authorizer) Authorize(user *models.User, channel string) bool {
	if !IsGuarded(channel) {
		return true
	}
	for _, ru := range a.rules {
		m := ru.re.FindStringSubmatch(channel)
		if m == nil {
			continue
		}
		params := make(Params, len(ru.names))
		for i, name := range ru.names {
			n, err := strconv.Atoi(m[i+1])
			if err != nil {
				return false
			}
			params[name] = n
		}
		return ru.fn(user, params)
	}
	return false
}

// Grant is the signed payload returned by the authorization endpoint.
// ChannelData is only set for presence channels.
type Grant struct {
	Auth        string  `json:"auth"`
	ChannelData *string `json:"channel_data"`
}

type presenceUserInfo struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type presenceData struct {
	UserID   uint             `json:"user_id"`
	UserInfo presenceUserInfo `json:"user_info"`
}

// Grant mints a fresh signature over "<socket_id>:<channel>" with the app
// key. Presence channels additionally carry the requesting user's identity
// so members can enumerate who is present; that payload is informational
// and not covered by the signature.
func (a *Authorizer) Grant(socketID, channel string, user *models.User) Grant {
	mac := hmac.New(sha256.New, []byte(a.appKey))
	mac.Write([]byte(socketID + ":" + channel))
	signature := hex.EncodeToString(mac.Sum(nil))

	g := Grant{Auth: a.appKey + ":" + signature}
	if strings.HasPrefix(channel, "presence-") && user != nil {
		payload, err := json.Marshal(presenceData{
			UserID: user.ID,
			UserInfo: presenceUserInfo{
				ID:    user.ID,
				Email: user.Email,
				Name:  user.DisplayName(),
			},
		})
		if err == nil {
			data := string(payload)
			g.ChannelData = &data
		}
	}
	return g
}
