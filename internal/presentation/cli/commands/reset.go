package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewResetCmd creates the reset command.
func NewResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard all local sync state",
		Long: `Discard every pending action and cached snapshot.

Pending actions are writes that have NOT reached the server yet; resetting
throws them away permanently. Dead letters are kept. Use --force to skip
the confirmation prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return cmd
}

func runReset(cmd *cobra.Command, force bool) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	formatter := GetFormatter()
	ctx := cmd.Context()

	pending, err := container.Queue().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending actions: %w", err)
	}

	if !force {
		if pending > 0 {
			formatter.Warning("%d pending change(s) will be lost and never reach the server", pending)
		}
		formatter.Print("Discard all local sync state? [y/N]: ")

		answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			formatter.Info("Aborted")
			return nil
		}
	}

	if err := container.Queue().Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear pending actions: %w", err)
	}
	if err := container.Snapshots().ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear snapshot cache: %w", err)
	}

	formatter.Success("Local sync state cleared (%d pending action(s) discarded)", pending)
	return nil
}
