package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"communitychat/internal/apperr"
	"communitychat/internal/service"
)

type createMessageRequest struct {
	Content string `json:"content"`
}

// Broadcaster fans a payload out to every live connection.
type Broadcaster interface {
	BroadcastAll(payload any)
}

// @Summary      List channel messages
// @Description  Most recent page of messages in chronological order, each
// @Description  joined with its author's profile
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        channelID path string true "Channel ID"
// @Success      200  {array}   domain.MessageWithAuthor
// @Failure      404  {object}  errorBody
// @Router       /channels/{channelID}/messages [get]
func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := msgSvc.ListForChannel(r.Context(), chi.URLParam(r, "channelID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// @Summary      Post a message
// @Description  Creates an immutable message in the channel and broadcasts it
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        channelID path string true "Channel ID"
// @Param        input body createMessageRequest true "Message input"
// @Success      201  {object}  domain.MessageWithAuthor
// @Failure      400  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /channels/{channelID}/messages [post]
func handleCreateMessage(msgSvc *service.MessageService, notify Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeError(w, apperr.Unauthenticated("Je moet ingelogd zijn om deze actie uit te voeren"))
			return
		}

		var req createMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.InvalidArg("invalid JSON body"))
			return
		}

		msg, err := msgSvc.Post(r.Context(), chi.URLParam(r, "channelID"), req.Content, user)
		if err != nil {
			writeError(w, err)
			return
		}

		if notify != nil {
			notify.BroadcastAll(map[string]any{
				"type":    "message",
				"message": msg,
			})
			notify.BroadcastAll(map[string]any{
				"type":       "channel_update",
				"table":      "messages",
				"channel_id": msg.ChannelID,
			})
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}
