package presence

import (
	"sort"
	"strings"
	"time"

	"communitychat/internal/domain"
)

// Payload is what a connection announces about itself when it starts
// tracking on the online-users channel.
type Payload struct {
	UserID    string         `json:"user_id"`
	Email     string         `json:"email"`
	Name      string         `json:"name,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	OnlineAt  time.Time      `json:"online_at"`
}

// State is the raw sync state of the online-users channel: one entry per
// connection key, each holding the payloads announced under that key.
type State map[string][]Payload

// Record is one merged presence entry. There is one record per connection
// key, so a user with two tabs open appears twice with the same user id.
type Record struct {
	ConnKey   string         `json:"-"`
	UserID    string         `json:"user_id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	AvatarURL *string        `json:"avatar_url"`
	Status    *string        `json:"status,omitempty"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	OnlineAt  time.Time      `json:"online_at"`
}

// UserIDs returns the distinct user ids announced in the state, taking the
// first payload per connection key, sorted for deterministic fetches.
func (s State) UserIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, payloads := range s {
		if len(payloads) == 0 {
			continue
		}
		id := payloads[0].UserID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge joins the sync state with persisted profiles into presence records.
// It is pure: the same state and profiles always produce the same records,
// ordered by connection key. A nil profiles map yields payload-only records,
// which is the degraded mode used when the profile fetch fails.
func Merge(state State, profiles map[string]*domain.Profile) []Record {
	keys := make([]string, 0, len(state))
	for key, payloads := range state {
		if len(payloads) == 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		// Multiple payloads under one key happen when a client re-tracks
		// before the previous payload expires; the first one represents
		// the connection.
		p := state[key][0]
		profile := profiles[p.UserID]

		records = append(records, Record{
			ConnKey:   key,
			UserID:    p.UserID,
			Email:     p.Email,
			Name:      resolveName(p, profile),
			AvatarURL: resolveAvatar(p, profile),
			Status:    resolveStatus(profile),
			Metadata:  p.Metadata,
			OnlineAt:  p.OnlineAt,
		})
	}
	return records
}

// resolveName picks the display name: persisted profile name, then the
// announced name, then the email local-part.
func resolveName(p Payload, profile *domain.Profile) string {
	if profile != nil && profile.Name != "" {
		return profile.Name
	}
	if p.Name != "" {
		return p.Name
	}
	return EmailLocalPart(p.Email)
}

// resolveAvatar picks the avatar: OAuth provider picture, then the
// avatar_url announced in metadata, then the persisted profile avatar.
func resolveAvatar(p Payload, profile *domain.Profile) *string {
	if pic, ok := p.Metadata["picture"].(string); ok && pic != "" {
		return &pic
	}
	if av, ok := p.Metadata["avatar_url"].(string); ok && av != "" {
		return &av
	}
	if profile != nil && profile.AvatarURL != "" {
		av := profile.AvatarURL
		return &av
	}
	return nil
}

func resolveStatus(profile *domain.Profile) *string {
	if profile == nil {
		return nil
	}
	return profile.Status
}

// EmailLocalPart returns the part of an email address before the '@'.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
