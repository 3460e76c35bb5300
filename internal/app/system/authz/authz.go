// Package authz answers role questions about the signed-in admin user.
package authz

import (
	"net/http"

	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/normalize"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visitor is the role reported when nobody is signed in.
const Visitor = "visitor"

// UserCtx returns the normalized role, name and id of the signed-in user.
// A malformed id counts as signed out, so ok always implies a usable id.
func UserCtx(r *http.Request) (role, name string, id primitive.ObjectID, ok bool) {
	u, signedIn := auth.CurrentUser(r)
	if !signedIn {
		return Visitor, "", primitive.NilObjectID, false
	}
	id = u.UserID()
	if id.IsZero() {
		return Visitor, "", primitive.NilObjectID, false
	}
	return normalize.Role(u.Role), u.Name, id, true
}

func IsLoggedIn(r *http.Request) bool {
	_, _, _, ok := UserCtx(r)
	return ok
}

func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// ActorID is the hex id recorded as the actor on audit events, "" for
// visitors.
func ActorID(r *http.Request) string {
	if _, _, id, ok := UserCtx(r); ok {
		return id.Hex()
	}
	return ""
}
