package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
	"github.com/jbctechsolutions/syncbridge/internal/presentation/cli/output"
)

// RedriveResult holds the redrive result for JSON output.
type RedriveResult struct {
	DeadLetterID string `json:"dead_letter_id"`
	ActionID     string `json:"action_id"`
}

// NewRedriveCmd creates the redrive command.
func NewRedriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redrive <id>",
		Short: "Re-queue a dead-lettered action",
		Long: `Move a dead letter back to the tail of the pending queue with its retry
count reset, so the next drain attempts it again.

List dead letters and their ids with 'sb pending --dead'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedrive(cmd, args[0])
		},
	}

	return cmd
}

func runRedrive(cmd *cobra.Command, id string) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	formatter := GetFormatter()

	actionID, err := container.Drainer().Redrive(cmd.Context(), id)
	if err != nil {
		if domainErrors.Is(err, domainErrors.ErrActionNotFound) {
			return fmt.Errorf("no dead letter with id %q", id)
		}
		return fmt.Errorf("failed to redrive: %w", err)
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(RedriveResult{DeadLetterID: id, ActionID: actionID})
	}

	formatter.Success("Re-queued as action %s", actionID)
	return nil
}
