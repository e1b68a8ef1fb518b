// Package auth implements the interactive TickTick authorization bootstrap.
//
// It runs the OAuth2 authorization-code flow against TickTick: a local
// callback listener, a browser authorization URL, the code exchange, and the
// credential file write. The resulting file is what the rest of the server
// reads through the ticktick package's token store.
//
// This flow runs once per account on the machine hosting the server. It is
// unrelated to the OAuth protection of the HTTP transport, which fronts the
// MCP endpoint for clients.
package auth
