package common

const (
	// WalletHeaderName carries the caller's address on download requests.
	WalletHeaderName = "wallet"

	// AuthorizationHeaderName carries "Bearer <session token>".
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the session token in AuthorizationHeaderName.
	BearerPrefix = "Bearer "

	// FileHashHeaderName echoes the fingerprint of a downloaded blob.
	FileHashHeaderName = "X-File-Hash"
)
