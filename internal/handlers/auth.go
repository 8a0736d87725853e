package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/minishop/apiserver/internal/services"
	"github.com/minishop/apiserver/internal/store"
	"github.com/minishop/apiserver/internal/token"
)

// AuthHandler provides registration, login and token-authenticated
// identity endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *token.Service
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *token.Service) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
	}
}

// AuthRouter registers the user auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Get("/", handler.Me)
}

// RequireAuth verifies the Bearer token and injects the user id into the
// request context. A missing token is a 400; an expired or otherwise
// invalid token is a 401.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.tokens.Verify(bearerToken(r))
		if err != nil {
			switch {
			case errors.Is(err, token.ErrMissing):
				writeError(w, http.StatusBadRequest, "Token is missing.")
			case errors.Is(err, token.ErrExpired):
				writeError(w, http.StatusUnauthorized, "Token has expired.")
			default:
				writeError(w, http.StatusUnauthorized, "Invalid token.")
			}
			return
		}

		ctx := contextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	if _, err := h.userService.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			writeError(w, http.StatusBadRequest, "User already exists.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register user.")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: "User registered successfully.",
	})
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to authenticate.")
		return
	}

	signed, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create token.")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Status:  "success",
		Message: "Login successful.",
		Token:   signed,
	})
}

// Me returns the identity of the token's subject.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load user.")
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		Status: "success",
		User: UserInfo{
			ID:       user.ID,
			Username: user.Username,
		},
	})
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type LoginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

type UserInfo struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type MeResponse struct {
	Status string   `json:"status"`
	User   UserInfo `json:"user"`
}

func contextWithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, contextUserIDKey, userID)
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		// Present but malformed: let verification reject it as invalid
		// rather than reporting it missing.
		return auth
	}
	return strings.TrimSpace(parts[1])
}
