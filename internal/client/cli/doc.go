// Package cli provides the hashdrive command-line client.
//
// One-shot commands (wallet, connect, upload, list, download, grant) run in
// a fresh session each time, so commands that need the server session
// connect on their own. The shell command keeps a single session across
// commands and leaves connecting to the user. Session tokens are never
// written to disk.
//
// Every signature request goes through a confirmation prompt unless --yes
// is given, and is bounded by --sign-timeout.
package cli
