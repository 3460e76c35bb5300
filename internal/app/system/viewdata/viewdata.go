// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	settingsstore "github.com/dalemusser/gicesite/internal/app/store/settings"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/authz"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/app/system/flash"
	"github.com/dalemusser/gicesite/internal/app/system/htmlsanitize"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// BaseVM is embedded by every page view model. It carries the site
// identity from the settings singleton, the signed-in admin, the flash
// banner and the CSRF token.
type BaseVM struct {
	SiteName   string
	Tagline    string
	LogoURL    string
	Email      string
	Phone      string
	Address    string
	FooterHTML template.HTML // sanitized

	IsLoggedIn bool
	IsAdmin    bool
	UserID     string
	UserName   string
	UserEmail  string
	Role       string

	Title       string
	BackURL     string
	CurrentPath string

	AdminNav []NavLink // empty for visitors

	// Flash is the one-shot banner for this request, if any.
	Flash *flash.Message

	CSRFToken string
}

// NavLink is one entry of the dashboard sidebar.
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// settingsDB is installed once at startup. Without it pages use the
// default site identity.
var settingsDB *mongo.Database

func Init(db *mongo.Database) {
	settingsDB = db
}

// New builds the BaseVM for r.
func New(r *http.Request) BaseVM {
	return base(r, settingsDB)
}

func base(r *http.Request, db *mongo.Database) BaseVM {
	role, name, userID, signedIn := authz.UserCtx(r)

	vm := BaseVM{
		SiteName:    models.DefaultSiteName,
		FooterHTML:  template.HTML(models.DefaultFooterHTML),
		IsLoggedIn:  signedIn,
		IsAdmin:     authz.IsAdmin(r),
		Role:        role,
		UserName:    name,
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}
	if signedIn {
		vm.UserID = userID.Hex()
		if u, ok := auth.CurrentUser(r); ok {
			vm.UserEmail = u.Email
		}
		vm.AdminNav = adminNav(vm.CurrentPath, vm.IsAdmin)
	}
	if m, ok := flash.FromContext(r.Context()); ok {
		vm.Flash = &m
	}

	if db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		s, err := settingsstore.New(db).Get(ctx)
		if err != nil {
			zap.L().Warn("site settings unavailable, using defaults", zap.Error(err))
		}
		vm.SiteName = s.SiteName
		vm.Tagline = s.Tagline
		vm.LogoURL = s.LogoURL
		vm.Email = s.Email
		vm.Phone = s.Phone
		vm.Address = s.Address
		vm.FooterHTML = htmlsanitize.SanitizeToHTML(s.FooterHTML)
	}
	return vm
}

func adminNav(current string, isAdmin bool) []NavLink {
	reg := collections.Default()
	links := []NavLink{{Label: "Dashboard", Href: "/admin"}}
	for _, c := range reg.Collections {
		links = append(links, NavLink{Label: c.Label, Href: "/admin/c/" + c.Name})
	}
	for _, a := range reg.Assignments {
		links = append(links, NavLink{Label: a.Label, Href: "/admin/sections/" + a.Name})
	}
	for _, s := range reg.Singletons {
		links = append(links, NavLink{Label: s.Label, Href: "/admin/s/" + s.Slug})
	}
	links = append(links, NavLink{Label: "Testimonials", Href: "/admin/testimonials"})
	if isAdmin {
		links = append(links,
			NavLink{Label: "Donations", Href: "/admin/donations"},
			NavLink{Label: "Admin Users", Href: "/admin/users"},
			NavLink{Label: "Audit Log", Href: "/admin/audit"},
		)
	}
	for i := range links {
		h := links[i].Href
		links[i].Active = current == h || (h != "/admin" && strings.HasPrefix(current, h+"/"))
	}
	return links
}

// ShowError puts an error banner on the page being rendered now, for
// failures reported without a redirect (validation, load errors).
func (vm *BaseVM) ShowError(text string) {
	vm.Flash = &flash.Message{Severity: flash.Error, Text: text}
}

// ImageField feeds the shared image_field partial: the stored image plus
// whatever the visitor last chose, so a failed save keeps the choice.
type ImageField struct {
	Key      string
	Label    string
	Required bool
	Current  string
	Source   string
	Link     string
}
