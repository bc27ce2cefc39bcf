package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"communitychat/internal/apperr"
	"communitychat/internal/service"
)

type updateUserRequest struct {
	Metadata map[string]any `json:"metadata"`
}

type setRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// @Summary      List users
// @Description  Admin only. All profiles joined with their account fields.
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.ProfileWithAccount
// @Failure      403  {object}  errorBody
// @Router       /users [get]
func handleListUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.ListWithAccounts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// @Summary      Update user metadata
// @Description  Merges the given keys into the user's metadata. Users may
// @Description  update themselves; admins may update anyone.
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        userID path string true "User ID"
// @Param        input body updateUserRequest true "Metadata patch"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /users/{userID} [put]
func handleUpdateUser(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CurrentUser(r)
		if caller == nil {
			writeError(w, apperr.Unauthenticated("Je moet ingelogd zijn om deze actie uit te voeren"))
			return
		}
		targetID := chi.URLParam(r, "userID")
		if targetID != caller.ID && !caller.IsAdmin() {
			writeError(w, apperr.Forbidden("Je hebt geen toegang tot deze functie"))
			return
		}

		var req updateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.InvalidArg("invalid JSON body"))
			return
		}

		user, err := userSvc.UpdateMetadata(r.Context(), targetID, req.Metadata)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	}
}

// @Summary      Set a user's role
// @Description  Admin only. Role must be 'admin' or 'user'.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body setRoleRequest true "Role input"
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /admin/set-role [post]
func handleSetRole(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.InvalidArg("invalid JSON body"))
			return
		}
		if err := userSvc.SetRole(r.Context(), req.UserID, req.Role); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
