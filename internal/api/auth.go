package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/akazakov/sklad/internal/auth"
	"github.com/akazakov/sklad/internal/store"
	"github.com/akazakov/sklad/internal/sync"
)

// AuthHandler handles account endpoints. Login doubles as session sign-in:
// guest products are discarded and the account's remote data is pulled.
type AuthHandler struct {
	DB         *sql.DB
	JWTSecret  string
	Reconciler *sync.Reconciler
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string `json:"token"`
	OwnerID string `json:"owner_id"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || len(req.Password) < 8 {
		jsonError(w, http.StatusBadRequest, "username and a password of at least 8 characters required")
		return
	}

	existing, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil && existing.DeletedAt == nil {
		jsonError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, string(hash), uuid.NewString())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	slog.Info("user registered", "user", user.Username)
	jsonResponse(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login. A successful login signs the owner in:
// guest products are purged and the account's remote entities are pulled
// before the token is issued.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.Reconciler.SignIn(r.Context(), user.OwnerID); err != nil {
		slog.Error("sign-in sync failed", "owner", user.OwnerID, "error", err)
		jsonError(w, http.StatusBadGateway, "failed to sync account data")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Username, user.OwnerID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user logged in", "user", user.Username)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, OwnerID: user.OwnerID})
}

// Logout handles POST /api/auth/logout. The token is revoked and every local
// entity in the owner's namespace is purged; the remote copy stays intact.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to revoke token")
		return
	}

	// Revocations for tokens that expired on their own are no longer needed.
	if _, err := store.PurgeExpiredTokens(r.Context(), h.DB); err != nil {
		slog.Warn("failed to purge expired token revocations", "error", err)
	}

	if err := h.Reconciler.SignOut(r.Context(), claims.OwnerID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to purge local data")
		return
	}

	slog.Info("user logged out", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
