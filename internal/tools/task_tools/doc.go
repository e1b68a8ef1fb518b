// Package task_tools provides MCP (Model Context Protocol) tools for TickTick task operations.
//
// This package exposes TickTick task functionality through a standardized MCP interface,
// allowing AI assistants to browse, create, update, complete, and delete tasks on
// behalf of users. Cross-project listings and a stale-task report are included for
// cleanup workflows.
//
// Write operations respect the server's read-only mode and are only performed when
// the server was started with the --yolo flag. Creations and updates report field
// mismatches found by post-write verification as warnings; deletions report the
// verification outcome.
package task_tools
