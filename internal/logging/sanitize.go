package logging

import (
	"net/url"
	"strings"
)

// keptParams identify the video or the stream and are safe to log. Anything
// else in a query, such as sig, expire, token or si, is dropped.
var keptParams = map[string]bool{"v": true, "list": true, "t": true, "itag": true, "mime": true}

// SanitizeURL returns raw without userinfo, fragment or any query parameter
// outside keptParams. Signed media URLs stay recognizable in logs without
// their signatures.
func SanitizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" { return s }
	u, err := url.Parse(s)
	if err != nil { return s }
	u.User = nil
	u.Fragment = ""
	q := u.Query()
	for k := range q {
		if !keptParams[strings.ToLower(k)] { q.Del(k) }
	}
	u.RawQuery = q.Encode()
	return u.String()
}
