package intake

// Avatar names one of the default pictures offered instead of a real photo.
type Avatar string

const (
	AvatarMale   Avatar = "male"
	AvatarFemale Avatar = "female"
	AvatarOther  Avatar = "other"
)

var avatarURLs = map[Avatar]string{
	AvatarMale:   "/assets/img/avatar-male.svg",
	AvatarFemale: "/assets/img/avatar-female.svg",
	AvatarOther:  "/assets/img/avatar-other.svg",
}

// Avatars lists the choices in display order.
func Avatars() []Avatar {
	return []Avatar{AvatarFemale, AvatarMale, AvatarOther}
}

// AvatarURL returns the static image for a.
func AvatarURL(a Avatar) (string, bool) {
	u, ok := avatarURLs[a]
	return u, ok
}

// URL is AvatarURL for templates.
func (a Avatar) URL() string {
	u, _ := AvatarURL(a)
	return u
}
