// Package auth provides API-key middleware for the trialdash HTTP API.
//
// APIKey(mode, header, key) returns middleware that compares the named request
// header with the configured key. When mode != "apikey" or key == "", every
// request passes through (the default for local use). A missing or incorrect
// key is answered with 401 and a JSON error body.
package auth
