package session

import "time"

// Session represents a browser session of the web frontend.
// A session is identified by the SHA-512 hash of the raw ID stored in the browser cookie; the raw ID itself is never
// persisted.
type Session struct {
	ID          string `json:"-"`
	AccessToken string `json:"access_token"`
	Subject     string `json:"subject"`
	Expires     int64  `json:"expires"`
}

// Expired reports whether the session has expired at the given time
func (session *Session) Expired(now time.Time) bool {
	return session.Expires <= now.Unix()
}

// Create holds the data required to create a new session
type Create struct {
	AccessToken string
	Subject     string
	Expires     int64
}
