package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/database"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/migration"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/cmdutil"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

var (
	name  string
	dir   string
	steps int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations including running migrations, checking status, and creating new migration files.`,
	}

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE:  runStatus,
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		Long:  `Create a timestamped SQL migration file in the scripts directory of the configured driver.`,
		RunE:  runCreate,
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	cmd.Flags().StringVar(&dir, "dir", "", "Target directory (default: the scripts directory of the driver)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func open(cmd *cobra.Command) (*cmdutil.Env, *migration.Manager, error) {
	env, err := cmdutil.Open(cmd)
	if err != nil {
		return nil, nil, err
	}
	m, err := migration.NewManager(env.Config.Database.Driver)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	return env, m, nil
}

func runUp(cmd *cobra.Command, args []string) error {
	env, m, err := open(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := m.Migrate(env.DB); err != nil {
		return err
	}
	fmt.Println("✅ Migrations applied")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	env, m, err := open(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	env.Logger.Infow("running down migrations", "steps", steps)
	if err := m.Down(env.DB, steps); err != nil {
		return fmt.Errorf("down migration failed: %w", err)
	}
	fmt.Printf("✅ Rolled back %d migration(s)\n", steps)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, m, err := open(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	version, err := m.Version(env.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Printf("\nMigration Status:\n")
	fmt.Printf("  Driver:          %s\n", env.Config.Database.Driver)
	fmt.Printf("  Current Version: %d\n", version)

	return m.Status(env.DB)
}

// runCreate needs no database connection.
func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := migration.NewManager(cfg.Database.Driver)
	if err != nil {
		return err
	}

	target := dir
	if target == "" {
		driver := cfg.Database.Driver
		if driver == database.DriverSQLite {
			return fmt.Errorf("sqlite uses automigrate, pass --dir to create a script anyway")
		}
		target = "internal/infrastructure/migration/scripts/" + driver
	}

	if err := m.Create(target, name); err != nil {
		logger.WithComponent("migrate").Errorw("failed to create migration", "error", err)
		return err
	}
	fmt.Printf("✅ Migration '%s' created in %s\n", name, target)
	return nil
}
