package gateway

import "errors"

// ErrNoCredentials means there is no access token to open a channel
// with. Callers degrade to no real-time features; this is never fatal.
var ErrNoCredentials = errors.New("no credentials for channel open")
