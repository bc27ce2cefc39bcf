package httpserver

import (
	"encoding/json"
	"net/http"

	"communitychat/internal/apperr"
	"communitychat/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        interface{} `json:"user"`
}

// @Summary      Register a new user
// @Description  Register a new account and return an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body registerRequest true "Register input"
// @Success      201  {object}  tokenResponse
// @Failure      400  {object}  errorBody
// @Router       /auth/register [post]
func handleRegister(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.InvalidArg("invalid JSON body"))
			return
		}

		user, err := authSvc.Register(r.Context(), service.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		// Auto-login after registration
		resp, err := authSvc.Login(r.Context(), service.LoginInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tokenResponse{
			AccessToken: resp.AccessToken,
			TokenType:   "bearer",
			User:        user,
		})
	}
}

// @Summary      Login
// @Description  Login with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body loginRequest true "Login input"
// @Success      200  {object}  tokenResponse
// @Failure      400  {object}  errorBody
// @Failure      401  {object}  errorBody
// @Router       /auth/login [post]
func handleLogin(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.InvalidArg("invalid JSON body"))
			return
		}

		resp, err := authSvc.Login(r.Context(), service.LoginInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: resp.AccessToken,
			TokenType:   "bearer",
			User:        resp.User,
		})
	}
}

// @Summary      Logout
// @Description  Logout the current user. Tokens are stateless, so this only
// @Description  confirms the session can be discarded client-side.
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorBody
// @Router       /auth/logout [post]
func handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			writeError(w, apperr.Unauthenticated("unauthorized"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary      Get Current User
// @Description  Get currently logged in user details
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorBody
// @Router       /auth/me [get]
func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeError(w, apperr.Unauthenticated("unauthorized"))
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
