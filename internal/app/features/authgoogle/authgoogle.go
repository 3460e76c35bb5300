// internal/app/features/authgoogle/authgoogle.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/oauthstate"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/signin"
	"github.com/dalemusser/gicesite/internal/app/system/status"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Handler signs existing admins in with their Google account. Google never
// creates accounts here; the email must already belong to an admin.
type Handler struct {
	users       *adminuserstore.Store
	states      *oauthstate.Store
	starter     *signin.Starter
	oauthConfig *oauth2.Config
	userInfoURL string
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a Google sign-in Handler.
func NewHandler(
	db *mongo.Database,
	starter *signin.Starter,
	clientID string,
	clientSecret string,
	baseURL string,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:   adminuserstore.New(db, logger),
		states:  oauthstate.New(db),
		starter: starter,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: userInfoURL,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes returns the Google routes, mounted at /auth/google.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Start)
	r.Get("/callback", h.Callback)
	return r
}

func fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+code, http.StatusSeeOther)
}

// Start stores a one-time state (with the page to return to) and sends the
// browser to Google.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue(r.Context(), signin.ReturnPath(query.Get(r, "return")))
	if err != nil {
		h.errLog.Log(r, "issue oauth state", err)
		fail(w, r, "oauth_error")
		return
	}
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback redeems the state, exchanges the code and signs the admin in.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	returnTo, err := h.states.Redeem(r.Context(), query.Get(r, "state"))
	if err != nil {
		h.logger.Warn("oauth state rejected", zap.Error(err))
		fail(w, r, "invalid_state")
		return
	}
	if e := query.Get(r, "error"); e != "" {
		h.logger.Info("google sign-in cancelled", zap.String("error", e))
		fail(w, r, "oauth_error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	token, err := h.oauthConfig.Exchange(ctx, query.Get(r, "code"))
	if err != nil {
		h.errLog.Log(r, "exchange oauth code", err)
		fail(w, r, "oauth_error")
		return
	}
	info, err := h.userInfo(ctx, token)
	if err != nil {
		h.errLog.Log(r, "fetch google userinfo", err)
		fail(w, r, "oauth_error")
		return
	}
	if !info.VerifiedEmail {
		fail(w, r, "unverified_email")
		return
	}

	u, err := h.users.GetByEmail(ctx, info.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.auditLogger.LoginFailedUserNotFound(ctx, r, info.Email)
		fail(w, r, "user_not_found")
		return
	}
	if err != nil {
		h.errLog.Log(r, "google sign-in lookup", err)
		fail(w, r, "session_error")
		return
	}
	if u.Status != status.Active {
		h.auditLogger.LoginFailedUserDisabled(ctx, r, u.ID, u.Email)
		fail(w, r, "account_disabled")
		return
	}

	if err := h.starter.Start(w, r, u, "google"); err != nil {
		h.errLog.Log(r, "start session", err)
		fail(w, r, "session_error")
		return
	}
	h.auditLogger.LoginSuccess(ctx, r, u.ID, "google", u.Email)

	http.Redirect(w, r, signin.ReturnPath(returnTo), http.StatusSeeOther)
}

// GoogleUserInfo is the userinfo response.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) userInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
