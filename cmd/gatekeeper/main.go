package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/cmdutil"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/configcmd"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/members"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/migrate"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/server"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/sweep"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/token"
)

// @title Gatekeeper Admin API
// @version 1.0
// @description Admin API of the community access gatekeeper.
// @BasePath /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the admin JWT.
func main() {
	rootCmd := &cobra.Command{
		Use:          "gatekeeper",
		Short:        "Gatekeeper - community access bot",
		Long:         `Gatekeeper admits members to a private Telegram community: identity and age checks, consent confirmation by one-time code, staff approval and paid subscriptions.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP(cmdutil.ConfigFlag, "c", "", "Path to the config file (default: ./configs/config.yaml)")

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		sweep.NewCommand(),
		members.NewCommand(),
		token.NewCommand(),
		configcmd.NewCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
