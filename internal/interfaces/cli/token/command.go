package token

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/cmdutil"
)

var (
	adminID int64
	ttl     time.Duration
)

// NewCommand issues an admin API token for a rostered admin.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token",
		Long: `Issue a bearer token for the admin HTTP API. The Telegram user must
already be on the admin roster; the roster is checked again on every request.`,
		RunE: run,
	}

	cmd.Flags().Int64Var(&adminID, "admin-id", 0, "Telegram user id of the admin (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: auth.jwt.access_exp_minutes)")
	_ = cmd.MarkFlagRequired("admin-id")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	env, err := cmdutil.Open(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	c, err := env.Container(true)
	if err != nil {
		return err
	}

	ok, err := c.Roster.IsAdmin(cmd.Context(), adminID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d is not an admin", adminID)
	}

	lifetime := ttl
	if lifetime <= 0 {
		lifetime = time.Duration(c.JWT.AccessExpMinutes()) * time.Minute
	}

	tok, err := c.JWT.Generate(adminID, lifetime)
	if err != nil {
		return err
	}

	fmt.Println(tok.AccessToken)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", tok.ExpiresAt.Format(time.RFC3339))
	return nil
}
