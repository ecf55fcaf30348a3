// Package authapi exposes account and session endpoints over HTTP: register,
// login, token refresh, logout, and the authenticated profile operations.
// Every response uses the unified envelope from json.go.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Myash21/vidtube/internal/auth/session"
	"github.com/Myash21/vidtube/internal/identity"
	"github.com/Myash21/vidtube/internal/media"
	"github.com/Myash21/vidtube/internal/security/password"
)

// Handler wires the /api/v1/users endpoints to the session service and the
// account/object stores.
type Handler struct {
	log  *slog.Logger
	cfg  Config
	gate *Gate

	sessions *session.Service
	accounts identity.Store
	objects  media.Store
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, accounts identity.Store, objects media.Store) (*Handler, error) {
	if sessions == nil || accounts == nil || objects == nil {
		return nil, errors.New("authapi: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		gate:     NewGate(sessions),
		sessions: sessions,
		accounts: accounts,
		objects:  objects,
	}, nil
}

// Gate returns the auth gate so other route groups can share it.
func (h *Handler) Gate() *Gate { return h.gate }

// Register wires the user routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/users/register", h.handleRegister)
	mux.HandleFunc("POST /api/v1/users/login", h.handleLogin)
	mux.HandleFunc("POST /api/v1/users/refresh-token", h.handleRefreshToken)
	mux.Handle("POST /api/v1/users/logout", h.gate.Require(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /api/v1/users/current-user", h.gate.Require(http.HandlerFunc(h.handleCurrentUser)))
	mux.Handle("POST /api/v1/users/change-password", h.gate.Require(http.HandlerFunc(h.handleChangePassword)))
	mux.Handle("PATCH /api/v1/users/update-account", h.gate.Require(http.HandlerFunc(h.handleUpdateAccount)))
	mux.Handle("PATCH /api/v1/users/update-avatar", h.gate.Require(http.HandlerFunc(h.handleUpdateAvatar)))
	mux.Handle("PATCH /api/v1/users/update-cover-image", h.gate.Require(http.HandlerFunc(h.handleUpdateCoverImage)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fullname := strings.TrimSpace(r.FormValue("fullname"))
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	plaintext := r.FormValue("password")
	if fullname == "" || username == "" || email == "" || strings.TrimSpace(plaintext) == "" {
		writeError(w, http.StatusBadRequest, "fullname, username, email and password are required")
		return
	}

	hash, err := h.sessions.HashPassword(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrWeakPassword) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("auth.register.hash.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ctx := r.Context()

	avatar, ok := h.uploadFormFile(ctx, w, r, "avatar", true)
	if !ok {
		return
	}
	cover, ok := h.uploadFormFile(ctx, w, r, "coverImage", false)
	if !ok {
		h.deleteObject(ctx, avatar.ID)
		return
	}

	acct, err := h.accounts.Create(ctx, identity.CreateAccountInput{
		Fullname:       fullname,
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		AvatarURL:      avatar.URL,
		AvatarObjectID: avatar.ID,
		CoverURL:       cover.URL,
		CoverObjectID:  cover.ID,
		Now:            time.Now().UTC(),
	})
	if err != nil {
		// The uploads are orphaned if the row never lands.
		h.deleteObject(ctx, avatar.ID)
		h.deleteObject(ctx, cover.ID)
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "username or email already exists")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.log.Info("auth.register.ok", "account_id", acct.ID)
	writeData(w, http.StatusCreated, acct.Public(), "user registered successfully")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	issued, user, err := h.sessions.Login(r.Context(), time.Now().UTC(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.setSessionCookies(w, issued)
	writeData(w, http.StatusOK, loginData{
		User:         user,
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	}, "user logged in successfully")
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := refreshTokenFromCookie(r)
	if refreshToken == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		refreshToken = strings.TrimSpace(req.RefreshToken)
	}
	if refreshToken == "" {
		writeError(w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	issued, err := h.sessions.Rotate(r.Context(), time.Now().UTC(), refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		h.log.Error("auth.refresh.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.setSessionCookies(w, issued)
	writeData(w, http.StatusOK, refreshData{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	}, "access token refreshed")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	acct, _ := AccountFrom(r.Context())

	if err := h.sessions.Logout(r.Context(), acct.ID); err != nil && !errors.Is(err, session.ErrUnauthorized) {
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.clearSessionCookies(w)
	writeData(w, http.StatusOK, struct{}{}, "user logged out")
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	acct, _ := AccountFrom(r.Context())
	writeData(w, http.StatusOK, acct.Public(), "current user fetched successfully")
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	acct, _ := AccountFrom(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.OldPassword) == "" || strings.TrimSpace(req.NewPassword) == "" {
		writeError(w, http.StatusBadRequest, "old and new passwords are required")
		return
	}

	err := h.sessions.ChangePassword(r.Context(), acct.ID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrUnauthorized):
		writeError(w, http.StatusBadRequest, "invalid old password")
		return
	case errors.Is(err, password.ErrPasswordTooShort), errors.Is(err, password.ErrPasswordTooLong), errors.Is(err, password.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.log.Error("auth.change_password.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeData(w, http.StatusOK, struct{}{}, "password changed successfully")
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	acct, _ := AccountFrom(r.Context())

	var req updateAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fullname := trimPtr(req.Fullname)
	email := trimPtr(req.Email)
	if fullname == nil && email == nil {
		writeError(w, http.StatusBadRequest, "fullname or email is required")
		return
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), acct.ID, identity.UpdateProfileInput{
		Fullname: fullname,
		Email:    email,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "email already exists")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid input")
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			h.log.Error("auth.update_account.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeData(w, http.StatusOK, updated.Public(), "account details updated")
}

func (h *Handler) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", func(ctx context.Context, id string, obj media.Object) (identity.Account, string, error) {
		acct, err := h.accounts.UpdateAvatar(ctx, id, obj.URL, obj.ID)
		return acct, "avatar updated", err
	}, func(a identity.Account) string { return a.AvatarObjectID })
}

func (h *Handler) handleUpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", func(ctx context.Context, id string, obj media.Object) (identity.Account, string, error) {
		acct, err := h.accounts.UpdateCoverImage(ctx, id, obj.URL, obj.ID)
		return acct, "cover image updated", err
	}, func(a identity.Account) string { return a.CoverObjectID })
}

// updateImage is the shared avatar/cover flow: upload the new object, persist
// the new URL, then drop the previous object. The old object is deleted only
// after the row points at the new one.
func (h *Handler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	persist func(ctx context.Context, id string, obj media.Object) (identity.Account, string, error),
	oldObjectID func(identity.Account) string,
) {
	acct, _ := AccountFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	ctx := r.Context()
	obj, ok := h.uploadFormFile(ctx, w, r, field, true)
	if !ok {
		return
	}

	updated, msg, err := persist(ctx, acct.ID, obj)
	if err != nil {
		h.deleteObject(ctx, obj.ID)
		if identity.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.log.Error("auth.update_image.fail", "field", field, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if old := oldObjectID(acct); old != "" && old != obj.ID {
		h.deleteObject(ctx, old)
	}

	writeData(w, http.StatusOK, updated.Public(), msg)
}

// ---- helpers ----

// uploadFormFile reads one multipart file field and stores it. A missing
// optional field returns a zero Object with ok=true; any other failure writes
// the error response and returns ok=false.
func (h *Handler) uploadFormFile(ctx context.Context, w http.ResponseWriter, r *http.Request, field string, required bool) (media.Object, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return media.Object{}, true
		}
		writeError(w, http.StatusBadRequest, field+" file is required")
		return media.Object{}, false
	}
	defer func() { _ = file.Close() }()

	obj, err := h.objects.Upload(ctx, header.Filename, contentType(header), file)
	if err != nil {
		h.log.Error("auth.upload.fail", "field", field, "err", err)
		writeError(w, http.StatusInternalServerError, "file upload failed")
		return media.Object{}, false
	}
	return obj, true
}

func (h *Handler) deleteObject(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := h.objects.Delete(ctx, id); err != nil && !errors.Is(err, media.ErrNotFound) {
		h.log.Error("auth.object_delete.fail", "object_id", id, "err", err)
	}
}

func contentType(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Header.Get("Content-Type")
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
