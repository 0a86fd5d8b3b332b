// Package google provides OAuth2 authentication and token management for the Gmail API.
//
// Client secrets are read from the JSON file downloaded from the Google Cloud console,
// and the user's token is cached in a JSON token file. FileTokenProvider hands out a
// token source that writes refreshed tokens back to that file, so an interactive
// authorization is only needed once (see Authorize).
//
// The TokenProvider interface lets callers swap the file-based source for a fixed
// token, which keeps the Gmail client independent of where credentials come from.
package google
