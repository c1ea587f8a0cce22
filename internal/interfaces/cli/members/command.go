package members

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/export"
	"github.com/orris-inc/gatekeeper/internal/interfaces/cli/cmdutil"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
)

var output string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Member maintenance tools",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the member list to an Excel workbook",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: members-<date>.xlsx)")

	cmd.AddCommand(exportCmd)
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	env, err := cmdutil.Open(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	c, err := env.Container(true)
	if err != nil {
		return err
	}

	rows, err := c.Stats.MemberRows(cmd.Context())
	if err != nil {
		return err
	}

	data, err := export.MembersWorkbook(rows)
	if err != nil {
		return err
	}

	path := output
	if path == "" {
		path = export.FileName(biztime.NowUTC())
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Printf("✅ Exported %d member(s) to %s\n", len(rows), path)
	return nil
}
