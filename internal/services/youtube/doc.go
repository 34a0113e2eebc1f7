// Package youtube uploads videos through the YouTube Data API v3
// resumable upload protocol: one metadata POST opens an upload
// session, one PUT streams the file bytes to the session URL.
//
// Credentials come from the configured access token, or from a token
// cache file holding a standard OAuth2 token JSON. Refreshing the
// token is the operator's concern; the daemon only reads it.
package youtube
