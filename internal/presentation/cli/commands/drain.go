package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/syncbridge/internal/application/drain"
	domainErrors "github.com/jbctechsolutions/syncbridge/internal/domain/errors"
	"github.com/jbctechsolutions/syncbridge/internal/presentation/cli/output"
)

// DrainResult holds the drain summary for JSON output.
type DrainResult struct {
	DrainID      string             `json:"drain_id"`
	Replayed     int                `json:"replayed"`
	DeadLettered int                `json:"dead_lettered"`
	Remaining    int                `json:"remaining"`
	Outcomes     []DrainOutcomeInfo `json:"outcomes,omitempty"`
}

// DrainOutcomeInfo holds one action outcome for JSON output.
type DrainOutcomeInfo struct {
	ActionID     string `json:"action_id"`
	Type         string `json:"type"`
	Confirmed    bool   `json:"confirmed"`
	DeadLettered bool   `json:"dead_lettered"`
	Reason       string `json:"reason,omitempty"`
	Attempts     int    `json:"attempts"`
}

// NewDrainCmd creates the drain command.
func NewDrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Replay pending actions now",
		Long: `Replay all pending actions against the remote service, oldest first.

Draining normally happens automatically when connectivity returns; this
command forces a drain immediately. Only one drain can run at a time; if
another process holds the drain lease this command fails.`,
		RunE: runDrain,
	}

	return cmd
}

func runDrain(cmd *cobra.Command, args []string) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	formatter := GetFormatter()
	ctx := cmd.Context()

	online := container.Monitor().IsOnline()
	if !globalFlags.ForceOffline {
		online = container.Monitor().ProbeNow(ctx)
	}
	if !online {
		return fmt.Errorf("cannot drain while offline")
	}

	pending, err := container.Queue().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending actions: %w", err)
	}
	if pending == 0 {
		if formatter.Format() == output.FormatJSON {
			return formatter.JSON(DrainResult{})
		}
		formatter.Success("Nothing to drain")
		return nil
	}

	var bar *output.ProgressBar
	if formatter.Format() != output.FormatJSON {
		bar = output.NewProgressBar(pending, "Replaying")
		unsubscribe := container.Drainer().OnOutcome(func(drain.ActionOutcome) {
			bar.Increment()
		})
		defer unsubscribe()
	}

	summary, err := container.Drainer().Drain(ctx)
	if err != nil {
		if domainErrors.Is(err, domainErrors.ErrLeaseHeld) {
			return fmt.Errorf("another drain is already running: %w", err)
		}
		return fmt.Errorf("drain failed: %w", err)
	}
	if bar != nil {
		bar.Complete()
	}

	if formatter.Format() == output.FormatJSON {
		result := DrainResult{
			DrainID:      summary.DrainID,
			Replayed:     summary.Replayed,
			DeadLettered: summary.DeadLettered,
			Remaining:    summary.Remaining,
		}
		for _, o := range summary.Outcomes {
			result.Outcomes = append(result.Outcomes, DrainOutcomeInfo{
				ActionID:     o.ActionID,
				Type:         string(o.Type),
				Confirmed:    o.Confirmed,
				DeadLettered: o.DeadLettered,
				Reason:       o.Reason,
				Attempts:     o.Attempts,
			})
		}
		return formatter.JSON(result)
	}

	if summary.Replayed > 0 {
		formatter.Success("Replayed %d action(s)", summary.Replayed)
	}
	if summary.DeadLettered > 0 {
		formatter.Warning("Dead-lettered %d action(s), see 'sb pending --dead'", summary.DeadLettered)
	}
	if summary.Remaining > 0 {
		formatter.Warning("%d action(s) left in the queue for the next drain", summary.Remaining)
	}
	if summary.Replayed == 0 && summary.DeadLettered == 0 && summary.Remaining == 0 {
		formatter.Success("Queue empty")
	}

	return nil
}
