package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for editing and exporting invoices.

The API provides endpoints for:
  - GET    /api/v1/currencies          - Currency catalog
  - POST   /api/v1/calculate           - Recompute a posted draft
  - POST   /api/v1/validate            - Validate a posted draft
  - POST   /api/v1/preview             - Render the HTML preview
  - POST   /api/v1/export              - Export a posted draft as PDF
  - POST   /api/v1/drafts              - Start a server side draft
  - PATCH  /api/v1/drafts/:id          - Edit draft fields
  - POST   /api/v1/drafts/:id/items    - Add an item
  - POST   /api/v1/auth/signup         - Create an account
  - POST   /api/v1/auth/signin         - Sign in
  - GET    /api/v1/invoices            - List saved invoices
  - POST   /api/v1/invoices            - Save a draft
  - GET    /health                     - Health check

Examples:
  # Start server on default port
  invoicer serve

  # Start on a custom port with a config file
  invoicer serve --address :9000 --config invoicer.yaml

  # Start in debug mode
  invoicer serve --debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("address", ":8080", "Server listen address (env: INVOICER_SERVER_ADDRESS)")
	serveCmd.Flags().Bool("debug", false, "Enable debug mode")
	serveCmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().Duration("write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Starting server on %s\n", a.Config.Server.Address)
	if a.Auth == nil {
		fmt.Println("Accounts disabled (auth provider: none)")
	}
	if a.Invoices == nil {
		fmt.Println("Saved invoices disabled (store driver: none)")
	}

	return a.Server().Run(cmd.Context())
}
