// Package resources provides MCP resources for exposing user and session data.
// Resources are read-only data sources that MCP clients can fetch, such as
// the current account profile and the project list.
//
// Resources resolve the TickTick account from the OAuth context, so in
// multi-user HTTP deployments each authenticated user sees their own data.
package resources
