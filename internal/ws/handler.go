package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"communitychat/internal/domain"
	"communitychat/internal/presence"
	"communitychat/internal/security"
	"communitychat/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or Sec-WebSocket-Protocol), then dispatches events:
//   - track    -> announce presence on the online-users channel
//   - untrack  -> withdraw presence
//   - message  -> post a message & broadcast it plus a channel_update
//   - visit    -> record a channel visit & notify the visiting user
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	profiles domain.ProfileRepository,
	chanSvc *service.ChannelService,
	msgSvc *service.MessageService,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := users.GetByID(ctx, sub)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// The router cancels r.Context() when its timeout middleware fires,
		// long before a chat connection is done. Events must keep reaching
		// the store for the lifetime of the connection.
		ctx = context.WithoutCancel(ctx)

		hub.Register(user.ID, conn)
		defer hub.Unregister(user.ID, conn)

		// One presence membership per connection, released on disconnect.
		connKey := uuid.NewString()
		sess := presence.NewSession(hub)
		defer sess.Leave()

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			msgType, _ := payload["type"].(string)
			switch msgType {

			case "track":
				p, err := buildTrackPayload(ctx, user, profiles)
				if err != nil {
					log.Printf("ws: track for %s: %v", user.ID, err)
					sendError(hub, conn, "failed to track presence")
					continue
				}
				if err := sess.Join(connKey, p); err != nil {
					log.Printf("ws: join presence for %s: %v", user.ID, err)
					sendError(hub, conn, "failed to track presence")
				}

			case "untrack":
				sess.Leave()

			case "message":
				channelID, _ := payload["channel_id"].(string)
				content, _ := payload["content"].(string)
				msg, err := msgSvc.Post(ctx, channelID, content, user)
				if err != nil {
					log.Printf("ws: post message: %v", err)
					sendError(hub, conn, "failed to send message")
					continue
				}
				hub.BroadcastAll(map[string]any{
					"type":    "message",
					"message": msg,
				})
				hub.BroadcastAll(map[string]any{
					"type":       "channel_update",
					"table":      "messages",
					"channel_id": msg.ChannelID,
				})

			case "visit":
				channelID, _ := payload["channel_id"].(string)
				if channelID == "" {
					continue
				}
				if err := chanSvc.RecordVisit(ctx, user.ID, channelID); err != nil {
					log.Printf("ws: record visit: %v", err)
					sendError(hub, conn, "failed to record visit")
					continue
				}
				hub.BroadcastToUsers([]string{user.ID}, map[string]any{
					"type":       "channel_update",
					"table":      "channel_visits",
					"channel_id": channelID,
				})

			default:
				log.Printf("ws: unknown event type %q from user %s", msgType, user.ID)
			}
		}
	}
}

// buildTrackPayload assembles the presence payload for the connection: the
// account's identity plus name/avatar resolved from the stored profile and
// metadata, the same way the merge resolves them for remote entries.
func buildTrackPayload(ctx context.Context, user *domain.User, profiles domain.ProfileRepository) (presence.Payload, error) {
	profile, err := profiles.GetByID(ctx, user.ID)
	if err != nil {
		return presence.Payload{}, err
	}

	name := ""
	if profile != nil {
		name = profile.Name
	}
	if name == "" {
		if full, ok := user.Metadata["full_name"].(string); ok {
			name = full
		}
	}

	avatar := ""
	if pic, ok := user.Metadata["picture"].(string); ok && pic != "" {
		avatar = pic
	} else if av, ok := user.Metadata["avatar_url"].(string); ok && av != "" {
		avatar = av
	} else if profile != nil {
		avatar = profile.AvatarURL
	}

	return presence.Payload{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      name,
		AvatarURL: avatar,
		Metadata:  user.Metadata,
		OnlineAt:  time.Now().UTC(),
	}, nil
}

func sendError(hub *Hub, conn *websocket.Conn, msg string) {
	hub.Send(conn, map[string]any{
		"type":    "error",
		"message": msg,
	})
}
