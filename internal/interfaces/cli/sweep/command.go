package sweep

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/scheduler"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/cmdutil"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

var days int

// NewCommand runs the subscription sweeps once, outside the scheduler.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run subscription sweeps once",
	}

	expiring := &cobra.Command{
		Use:   "expiring",
		Short: "Remind members whose subscription ends soon",
		RunE:  runExpiring,
	}
	expiring.Flags().IntVar(&days, "days", 0, "Reminder window in days (default: scheduler.reminder_days)")

	expired := &cobra.Command{
		Use:   "expired",
		Short: "Notify members whose subscription has lapsed",
		RunE:  runExpired,
	}

	cmd.AddCommand(expiring, expired)
	return cmd
}

func runExpiring(cmd *cobra.Command, args []string) error {
	env, err := cmdutil.Open(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	c, err := env.Container(true)
	if err != nil {
		return err
	}

	window := days
	if window <= 0 {
		window = env.Config.Scheduler.ReminderDays
	}

	n, err := scheduler.RunExpiring(cmd.Context(), c.Ledger, window, logger.WithComponent("sweep"))
	if err != nil {
		return err
	}
	fmt.Printf("✅ Reminded %d member(s) expiring within %d day(s)\n", n, window)
	return nil
}

func runExpired(cmd *cobra.Command, args []string) error {
	env, err := cmdutil.Open(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	c, err := env.Container(true)
	if err != nil {
		return err
	}

	n, err := scheduler.RunExpired(cmd.Context(), c.Ledger, logger.WithComponent("sweep"))
	if err != nil {
		return err
	}
	fmt.Printf("✅ Notified %d expired member(s)\n", n)
	return nil
}
