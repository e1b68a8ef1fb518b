package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/ticktick-mcp/internal/auth"
)

func newAuthCmd() *cobra.Command {
	var (
		clientID        string
		clientSecret    string
		account         string
		credentialsFile string
		noBrowser       bool
		timeout         time.Duration
		debugMode       bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to a TickTick account",
		Long: `Run the interactive TickTick OAuth flow and store the resulting
credentials on disk for the MCP server to use.

The command opens the TickTick consent page in your browser, receives the
authorization code on a local callback port, exchanges it for tokens, and
saves them to the per-account credential file.

Client identity:
  Register an application at https://developer.ticktick.com and pass its
  client ID and secret via --client-id/--client-secret or the
  TICKTICK_CLIENT_ID/TICKTICK_CLIENT_SECRET env vars.

Multiple accounts:
  Use --account to authorize additional accounts. Each account gets its own
  credential file, and MCP clients select an account per call.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" {
				clientID = os.Getenv("TICKTICK_CLIENT_ID")
			}
			if clientSecret == "" {
				clientSecret = os.Getenv("TICKTICK_CLIENT_SECRET")
			}

			ctx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logLevel := slog.LevelInfo
			if debugMode {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

			flow := auth.NewFlow(auth.Config{
				ClientID:        clientID,
				ClientSecret:    clientSecret,
				Account:         account,
				CredentialsFile: credentialsFile,
				Timeout:         timeout,
				OpenBrowser:     !noBrowser,
			}, logger)

			path, err := flow.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Run 'ticktick-mcp serve' to start the MCP server using %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "TickTick application client ID. Can also use TICKTICK_CLIENT_ID env var.")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "TickTick application client secret. Can also use TICKTICK_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&account, "account", "", "Account name to store the credentials under (default: the default account)")
	cmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Write credentials to this file instead of the per-user config location")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the browser automatically, only print the authorization URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the authorization to complete")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}
