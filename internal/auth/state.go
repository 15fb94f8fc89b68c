package auth

import (
	"net/url"
)

// State is the authentication state of the session.
type State int

const (
	Unauthenticated State = iota
	Validating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Validating:
		return "validating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Callback carries what the identity provider sent back on the redirect.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackFromQuery reads a redirect's query parameters.
func CallbackFromQuery(q url.Values) Callback {
	return Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Empty reports whether the redirect carried neither a code nor an error.
func (c Callback) Empty() bool {
	return c.Code == "" && c.Error == ""
}

// Scrub drops the single-use code so it cannot be replayed.
func (c *Callback) Scrub() {
	c.Code = ""
	c.State = ""
}
