// Package status names the states of an admin user account.
package status

const (
	Active   = "active"
	Disabled = "disabled" // cannot sign in; open sessions are closed on disable
)

// IsValid reports whether s is a stored status. Normalize input first; the
// comparison is exact.
func IsValid(s string) bool { return s == Active || s == Disabled }
