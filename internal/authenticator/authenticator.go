package authenticator

import "net/http"

type Authenticator interface {
	Authenticate(h http.Handler) http.Handler
}
