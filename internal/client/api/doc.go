// Package api is the HTTP client of the HashDrive server.
//
// # Overview
//
// Client covers the challenge/response login (Nonce, Verify, Logout), the
// content-addressed upload, the ledger-backed file list and authorized
// downloads. Uploads are streamed as multipart bodies.
//
// # Error Handling
//
// Non-2xx responses are decoded with netx.ReadError and wrapped into the
// common taxonomy (common.ErrAuthFailure, common.ErrUnauthorized,
// common.ErrNotFound, common.ErrStorageFailure, common.ErrChainFailure) so
// callers match with errors.Is. The underlying *netx.HTTPError stays in the
// chain. Transport failures wrap ErrUnavailable.
package api
