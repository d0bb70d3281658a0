// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"strings"

	"github.com/dalemusser/chathub/internal/app/chat"
	userstore "github.com/dalemusser/chathub/internal/app/store/users"
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/dalemusser/chathub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chathub/internal/app/system/normalize"
	"github.com/dalemusser/chathub/internal/app/system/webapi"
	"github.com/dalemusser/chathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler owns account creation and credential login. Both write a session
// cookie so a fresh signup is immediately signed in.
type Handler struct {
	Users    *userstore.Store
	Sessions *auth.SessionManager
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, sessions *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Sessions: sessions,
		Log:      logger,
	}
}

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input cap
	maxFullNameLen = 100
)

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User chat.UserSummary `json:"user"`
}

// HandleSignup handles POST /signup: create the account, sign the user in.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := webapi.Decode(w, r, &req); err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := htmlsanitize.PlainText(normalize.Name(req.FullName))
	if name == "" {
		webapi.Message(w, http.StatusBadRequest, "full name is required")
		return
	}
	if len(name) > maxFullNameLen {
		webapi.Message(w, http.StatusBadRequest, "full name is too long")
		return
	}
	email := normalize.Email(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		webapi.Message(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		webapi.Message(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if len(req.Password) > maxPasswordLen {
		webapi.Message(w, http.StatusBadRequest, "password is too long")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Log.Error("signup: hash password", zap.Error(err))
		webapi.Message(w, http.StatusInternalServerError, "could not create account")
		return
	}

	u, err := h.Users.Create(r.Context(), models.User{
		FullName: name,
		Email:    email,
		Password: string(hash),
	})
	if err == userstore.ErrDuplicateEmail {
		webapi.Message(w, http.StatusConflict, userstore.ErrDuplicateEmail.Error())
		return
	}
	if err != nil {
		h.Log.Error("signup: create user", zap.Error(err))
		webapi.Message(w, http.StatusInternalServerError, "could not create account")
		return
	}

	if err := h.signIn(w, r, u); err != nil {
		h.Log.Error("signup: write session", zap.Error(err))
		webapi.Message(w, http.StatusInternalServerError, "could not create account")
		return
	}

	h.Log.Info("user signed up", zap.String("user_id", u.ID.Hex()))
	webapi.Respond(w, http.StatusCreated, authResponse{User: chat.NewUserSummary(u)})
}

// HandleLogin handles POST /login with email + password.
//
// Unknown email and wrong password produce the same response so the endpoint
// cannot be used to probe which addresses have accounts.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := webapi.Decode(w, r, &req); err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if normalize.Email(req.Email) == "" || req.Password == "" {
		webapi.Message(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err == mongo.ErrNoDocuments {
		webapi.Message(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.Log.Error("login: look up user", zap.Error(err))
		webapi.Message(w, http.StatusInternalServerError, "could not sign in")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)) != nil {
		webapi.Message(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := h.signIn(w, r, *u); err != nil {
		h.Log.Error("login: write session", zap.Error(err))
		webapi.Message(w, http.StatusInternalServerError, "could not sign in")
		return
	}

	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))
	webapi.Respond(w, http.StatusOK, authResponse{User: chat.NewUserSummary(*u)})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u models.User) error {
	return h.Sessions.SignIn(w, r, auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
	})
}
