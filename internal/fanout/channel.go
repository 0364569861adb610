package fanout

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	channelSpaces  = regexp.MustCompile(`\s+`)
	channelInvalid = regexp.MustCompile(`[^a-z0-9-_.~%]`)
	channelDashes  = regexp.MustCompile(`-{2,}`)
)

// ChannelForType names the broadcast channel all ALL-mode subscribers of
// a sourceType listen on.
func ChannelForType(sourceType string) string {
	return "type-" + sanitizeChannel(sourceType)
}

// ChannelForUser names a user's private channel.
func ChannelForUser(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}

// sanitizeChannel makes a sourceType safe as a channel id segment.
// Non-ASCII types survive as lowercased percent escapes so distinct
// types never collapse onto one channel.
func sanitizeChannel(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return "unknown"
	}
	s := norm.NFKC.String(t)
	s = strings.ToLower(s)
	s = channelSpaces.ReplaceAllString(s, "-")
	s = strings.ToLower(url.PathEscape(s))
	s = channelInvalid.ReplaceAllString(s, "-")
	return channelDashes.ReplaceAllString(s, "-")
}
