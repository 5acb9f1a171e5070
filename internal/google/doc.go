// Package google provides OAuth2 authentication and token management for the
// Google Calendar and Gmail APIs.
//
// Tokens are stored as JSON, one file per account, in the user cache
// directory. Refreshed tokens are written back so a long-running scheduler
// keeps working after the access token expires.
package google
