package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Recoverer converts panics into a well-formed 500 internal_error JSON
// response. Every path must emit JSON, even unexpected internal failures,
// so chi's plain-text recoverer is not enough.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rvr, debug.Stack())
				WriteError(w, http.StatusInternalServerError, "internal_error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
