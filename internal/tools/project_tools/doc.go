// Package project_tools provides MCP (Model Context Protocol) tools for TickTick project operations.
//
// This package exposes TickTick project functionality through a standardized MCP interface,
// allowing AI assistants to list, inspect, create, and delete projects on behalf of users.
//
// Write operations (create, delete) respect the server's read-only mode and are
// only performed when the server was started with the --yolo flag. Deletions are
// verified against the remote state and the verification outcome is reported.
package project_tools
