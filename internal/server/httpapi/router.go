// Package httpapi exposes the record operations over HTTP/JSON. Routes,
// status codes and payload field names follow the legacy service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/botkeeper/botkeeper/internal/logging"
	"github.com/botkeeper/botkeeper/internal/server/auth"
	"github.com/botkeeper/botkeeper/internal/server/records"
)

// RegisterRequest models the registration payload. State is optional.
type RegisterRequest struct {
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	Password        string         `json:"password"`
	ConfirmPassword string         `json:"confirmPassword"`
	State           *records.State `json:"state"`
}

// LoginRequest models the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRequest carries the full-update payload. Absent fields keep the
// stored values.
type UpdateRequest struct {
	Username *string        `json:"username"`
	Password *string        `json:"password"`
	State    *records.State `json:"state"`
}

// userPayload is the response view of a record. The credential hash never
// leaves the server.
type userPayload struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
	State    records.State `json:"state"`
}

func viewOf(u *records.User) userPayload {
	return userPayload{ID: u.ID, Username: u.Username, Email: u.Email, State: u.State}
}

// RecordService abstracts the record operations required by the HTTP layer.
type RecordService interface {
	Register(ctx context.Context, input records.RegisterInput) (*records.User, error)
	Login(ctx context.Context, email, password string) (*records.User, string, error)
	List(ctx context.Context) ([]records.User, error)
	GetByEmail(ctx context.Context, email string) (*records.User, error)
	Update(ctx context.Context, email string, input records.UpdateInput) (*records.User, error)
	ReplaceState(ctx context.Context, email string, state records.State) (*records.State, error)
	AddActiveBot(ctx context.Context, email string, bot records.Bot) (records.Bot, error)
	MoveBot(ctx context.Context, email, botID string) (records.Bot, error)
	Delete(ctx context.Context, email string) error
}

// NewRouter wires the record HTTP handlers. secret verifies access tokens
// presented on the Authorization header.
func NewRouter(logger logging.Logger, svc RecordService, secret []byte) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		var payload RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		_, err := svc.Register(r.Context(), records.RegisterInput{
			Username:        payload.Username,
			Email:           payload.Email,
			Password:        payload.Password,
			ConfirmPassword: payload.ConfirmPassword,
			State:           payload.State,
		})
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		JSON(w, http.StatusCreated, map[string]string{"message": "Registration successful!"})
	})

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var payload LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, token, err := svc.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		JSON(w, http.StatusOK, map[string]any{
			"message":     "Login successful!",
			"user":        viewOf(user),
			"accessToken": token,
		})
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.List(r.Context())
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		views := make([]userPayload, len(users))
		for i := range users {
			views[i] = viewOf(&users[i])
		}
		JSON(w, http.StatusOK, map[string]any{"message": "OK", "users": views})
	})

	mux.HandleFunc("GET /users/{email}", func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.GetByEmail(r.Context(), r.PathValue("email"))
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		JSON(w, http.StatusOK, map[string]any{"message": "OK", "user": viewOf(user)})
	})

	mux.HandleFunc("PUT /users/{email}", func(w http.ResponseWriter, r *http.Request) {
		var payload UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := svc.Update(r.Context(), r.PathValue("email"), records.UpdateInput{
			Username: payload.Username,
			Password: payload.Password,
			State:    payload.State,
		})
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		JSON(w, http.StatusOK, map[string]any{
			"message":     "User updated successfully!",
			"updatedUser": viewOf(user),
		})
	})

	mux.HandleFunc("PUT /users/{email}/updateState", func(w http.ResponseWriter, r *http.Request) {
		var state records.State
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := svc.ReplaceState(r.Context(), r.PathValue("email"), state)
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		JSON(w, http.StatusOK, map[string]any{
			"message": "State updated successfully!",
			"state":   updated,
		})
	})

	mux.HandleFunc("POST /users/{email}/addActiveBot", func(w http.ResponseWriter, r *http.Request) {
		var bot records.Bot
		if err := json.NewDecoder(r.Body).Decode(&bot); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		added, err := svc.AddActiveBot(r.Context(), r.PathValue("email"), bot)
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		JSON(w, http.StatusOK, map[string]any{
			"message": "Bot added successfully!",
			"bot":     added,
		})
	})

	mux.HandleFunc("PUT /users/{email}/moveBot/{botId}", func(w http.ResponseWriter, r *http.Request) {
		moved, err := svc.MoveBot(r.Context(), r.PathValue("email"), r.PathValue("botId"))
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		JSON(w, http.StatusOK, map[string]any{
			"message":  "Bot moved successfully!",
			"movedBot": moved,
		})
	})

	mux.HandleFunc("DELETE /users/{email}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), r.PathValue("email")); err != nil {
			respondError(w, r, logger, err)
			return
		}
		JSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully!"})
	})

	return checkToken(logger, secret, mux)
}

// checkToken rejects requests carrying an unverifiable bearer token.
// Requests without an Authorization header pass through: the routes predate
// token auth and anonymous clients remain supported.
func checkToken(logger logging.Logger, secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			Error(w, http.StatusUnauthorized, "invalid token")
			return
		}
		userID, err := auth.GetUserIDFromToken(token, secret)
		if err != nil {
			Error(w, http.StatusUnauthorized, "invalid token")
			return
		}
		logger.Info(r.Context(), "authenticated request",
			"userId", userID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// respondError maps service errors onto the HTTP error taxonomy: validation
// and duplicate-key errors are 400, credential mismatches 401, missing keys
// 404 and store faults 500.
func respondError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, records.ErrUserNotFound),
		errors.Is(err, records.ErrActiveBotNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, records.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, records.ErrUsernameTooShort),
		errors.Is(err, records.ErrInvalidEmail),
		errors.Is(err, records.ErrPasswordTooShort),
		errors.Is(err, records.ErrPasswordMismatch),
		errors.Is(err, records.ErrUserExists):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}
