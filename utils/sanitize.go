package utils

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizeOnce  sync.Once
	contentPolicy *bluemonday.Policy
	strictPolicy  *bluemonday.Policy
)

func initPolicies() {
	contentPolicy = bluemonday.UGCPolicy()
	contentPolicy.AllowAttrs("class").OnElements("code", "pre")
	strictPolicy = bluemonday.StrictPolicy()
}

// SanitizeBody cleans user-authored post and reply bodies, keeping the
// usual UGC markup while stripping scripts and event handlers.
func SanitizeBody(s string) string {
	sanitizeOnce.Do(initPolicies)
	return strings.TrimSpace(contentPolicy.Sanitize(s))
}

// SanitizePlain strips all markup; used for titles and usernames.
func SanitizePlain(s string) string {
	sanitizeOnce.Do(initPolicies)
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}
