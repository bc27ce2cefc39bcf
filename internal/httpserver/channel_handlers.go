package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"communitychat/internal/apperr"
	"communitychat/internal/service"
)

type channelRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// @Summary      List channels with unread state
// @Description  All channels in creation order, each with the caller's unread
// @Description  count and up to three recent unread messages
// @Tags         channels
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.ChannelOverview
// @Failure      401  {object}  errorBody
// @Router       /channels [get]
func handleListChannels(chanSvc *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeError(w, apperr.Unauthenticated("Je moet ingelogd zijn om deze actie uit te voeren"))
			return
		}
		views, err := chanSvc.Overview(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// @Summary      Search channels
// @Description  Case-insensitive substring search over name and description
// @Tags         channels
// @Security     BearerAuth
// @Produce      json
// @Param        q query string false "Search term"
// @Success      200  {array}   domain.Channel
// @Router       /channels/search [get]
func handleSearchChannels(chanSvc *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channels, err := chanSvc.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, channels)
	}
}

// @Summary      Get a channel
// @Tags         channels
// @Security     BearerAuth
// @Produce      json
// @Param        channelID path string true "Channel ID"
// @Success      200  {object}  domain.Channel
// @Failure      404  {object}  errorBody
// @Router       /channels/{channelID} [get]
func handleGetChannel(chanSvc *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := chanSvc.Get(r.Context(), chi.URLParam(r, "channelID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ch)
	}
}

// @Summary      Create a channel
// @Description  Admin only
// @Tags         channels
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body channelRequest true "Channel input"
// @Success      201  {object}  domain.Channel
// @Failure      400  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Router       /channels [post]
func handleCreateChannel(chanSvc *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req channelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.InvalidArg("invalid JSON body"))
			return
		}
		ch, err := chanSvc.Create(r.Context(), req.Name, req.Description)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ch)
	}
}

// @Summary      Update a channel
// @Description  Admin only
// @Tags         channels
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        channelID path string true "Channel ID"
// @Param        input body channelRequest true "Channel input"
// @Success      200  {object}  domain.Channel
// @Failure      400  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /channels/{channelID} [put]
func handleUpdateChannel(chanSvc *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req channelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.InvalidArg("invalid JSON body"))
			return
		}
		ch, err := chanSvc.Update(r.Context(), chi.URLParam(r, "channelID"), req.Name, req.Description)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ch)
	}
}

// @Summary      Delete a channel
// @Description  Admin only. Deletes the channel with its messages and visit
// @Description  markers; repeating the delete succeeds.
// @Tags         channels
// @Security     BearerAuth
// @Produce      json
// @Param        channelID path string true "Channel ID"
// @Success      200  {object}  map[string]bool
// @Failure      403  {object}  errorBody
// @Router       /channels/{channelID} [delete]
func handleDeleteChannel(chanSvc *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := chanSvc.Delete(r.Context(), chi.URLParam(r, "channelID")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// @Summary      Record a channel visit
// @Description  Marks the channel as read for the caller up to now and
// @Description  notifies the caller's other connections
// @Tags         channels
// @Security     BearerAuth
// @Produce      json
// @Param        channelID path string true "Channel ID"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  errorBody
// @Router       /channels/{channelID}/visit [post]
func handleRecordVisit(chanSvc *service.ChannelService, notify VisitNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeError(w, apperr.Unauthenticated("Je moet ingelogd zijn om deze actie uit te voeren"))
			return
		}
		channelID := chi.URLParam(r, "channelID")
		if err := chanSvc.RecordVisit(r.Context(), user.ID, channelID); err != nil {
			writeError(w, err)
			return
		}
		if notify != nil {
			notify.BroadcastToUsers([]string{user.ID}, map[string]any{
				"type":       "channel_update",
				"table":      "channel_visits",
				"channel_id": channelID,
			})
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// VisitNotifier pushes channel_update events to a user's live connections.
type VisitNotifier interface {
	BroadcastToUsers(userIDs []string, payload any)
}
