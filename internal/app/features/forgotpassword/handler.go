// Package forgotpassword acknowledges reset requests. Reset emails are not
// sent by this application; the page says what happens next either way so
// it never reveals whether an address has an account.
package forgotpassword

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/stratagrc/internal/app/features/errors"
	"github.com/dalemusser/stratagrc/internal/app/system/inputval"
	"github.com/dalemusser/stratagrc/internal/app/system/ratelimit"
	"github.com/dalemusser/stratagrc/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

type Handler struct {
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{ErrLog: errLog, Log: logger}
}

type pageData struct {
	viewdata.BaseVM
	Error string
	Email string
	Sent  bool
}

func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "forgot_password", pageData{
		BaseVM: viewdata.NewBaseVM(r, "Reset password", "/login"),
	})
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/forgot-password")
		return
	}
	data := pageData{
		BaseVM: viewdata.NewBaseVM(r, "Reset password", "/login"),
		Email:  strings.TrimSpace(r.FormValue("email")),
	}
	if !inputval.IsValidEmail(data.Email) {
		data.Error = "Please enter a valid email address."
		templates.Render(w, r, "forgot_password", data)
		return
	}

	h.Log.Info("password reset requested", zap.String("ip", ratelimit.ClientIP(r)))
	data.Sent = true
	templates.Render(w, r, "forgot_password", data)
}
