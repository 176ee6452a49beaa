package middleware

import (
	"net/http"

	goAccess "github.com/MrEthical07/goAccess"
)

// RequireStrict forces the session lookup for the wrapped handler, so a
// logged-out or evicted session is rejected even while its access token has
// not expired. Use it on routes that change state.
func RequireStrict(engine *goAccess.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goAccess.ModeStrict)
}
