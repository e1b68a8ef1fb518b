// Package cmd implements the ticktick-mcp command line interface.
//
// The root command dispatches to the following subcommands:
//
//   - serve: start the MCP server on stdio or streamable HTTP transport.
//     Running ticktick-mcp without arguments defaults to serve.
//   - auth: run the interactive TickTick OAuth flow and store per-account
//     credentials for the server to use.
//   - version: print version information.
//   - generate-docs: render the registered MCP tools as markdown.
//
// Server behavior is configured through flags with environment variable
// fallbacks, so the same binary works for local stdio use and deployed
// HTTP instances.
package cmd
