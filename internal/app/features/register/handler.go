// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/authutil"
	"github.com/dalemusser/stratagrc/internal/app/system/inputval"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/app/system/viewdata"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves self-service account creation. New accounts have no
// memberships; they land on onboarding until invited or added.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type registerInput struct {
	FullName string `validate:"required,max=120" label:"Name"`
	Email    string `validate:"required,email,max=254" label:"Email"`
}

type formData struct {
	viewdata.BaseVM
	Error         string
	FullName      string
	Email         string
	PasswordRules string
}

func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, registerInput{}, "")
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/register")
		return
	}
	in := registerInput{
		FullName: strings.TrimSpace(r.FormValue("full_name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
	}
	password := r.FormValue("password")

	if v := inputval.Validate(in); v.HasErrors() {
		h.render(w, r, in, v.First())
		return
	}
	if err := authutil.ValidatePassword(password); err != nil {
		h.render(w, r, in, "Password: "+err.Error()+".")
		return
	}
	if password != r.FormValue("confirm") {
		h.render(w, r, in, "Passwords do not match.")
		return
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Could not create your account.", "/register")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, in.Email); err == nil {
		h.render(w, r, in, "An account with that email already exists. Try signing in.")
		return
	} else if !errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "find user failed", err, "Could not create your account.", "/register")
		return
	}

	// The unique email index still arbitrates concurrent sign-ups.
	u, err := h.Users.Create(ctx, models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		AuthMethod:   models.AuthMethodPassword,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		h.render(w, r, in, "An account with that email already exists. Try signing in.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user failed", err, "Could not create your account.", "/register")
		return
	}

	h.AuditLog.Registered(ctx, r, u.ID, u.AuthMethod)
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, in registerInput, msg string) {
	templates.Render(w, r, "register", formData{
		BaseVM:        viewdata.NewBaseVM(r, "Create an account", "/"),
		Error:         msg,
		FullName:      in.FullName,
		Email:         in.Email,
		PasswordRules: authutil.PasswordRules(),
	})
}
