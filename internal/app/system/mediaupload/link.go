package mediaupload

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCDNHost serves images by file id for shared-drive links.
const DefaultCDNHost = "lh3.googleusercontent.com"

var (
	pathIDPattern  = regexp.MustCompile(`/d/([A-Za-z0-9_-]+)`)
	queryIDPattern = regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]+)`)
)

// LinkConverter rewrites share links of the form .../d/<id>/... or
// ...?id=<id> into https://<CDNHost>/d/<id>.
type LinkConverter struct {
	CDNHost string
}

// Convert returns the direct image URL for link, or ErrInvalidLink.
func (c LinkConverter) Convert(link string) (string, error) {
	link = strings.TrimSpace(link)
	host := c.CDNHost
	if host == "" {
		host = DefaultCDNHost
	}

	if m := pathIDPattern.FindStringSubmatch(link); m != nil {
		return fmt.Sprintf("https://%s/d/%s", host, m[1]), nil
	}
	if m := queryIDPattern.FindStringSubmatch(link); m != nil {
		return fmt.Sprintf("https://%s/d/%s", host, m[1]), nil
	}
	return "", ErrInvalidLink
}
