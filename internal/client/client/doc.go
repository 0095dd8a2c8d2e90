// Package client talks to the taskmate HTTP API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface): Login,
//     Refresh, Logout, Me, Upload, Download and SyncPreferences.
//  2. A concrete HTTP implementation (see HTTPClient) that sends the
//     session token as a Bearer header and maps response statuses to
//     sentinel errors.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrForbidden,
// ErrNotFound. Every non-2xx response is returned as *APIError, which
// carries the server message and any schema violations.
package client
