package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/syncbridge/internal/application/drain"
	"github.com/jbctechsolutions/syncbridge/internal/presentation/cli/output"
)

// StatusInfo holds the sync status for JSON output.
type StatusInfo struct {
	Online      bool   `json:"online"`
	Pending     int    `json:"pending"`
	DeadLetters int    `json:"dead_letters"`
	LastSync    string `json:"last_sync,omitempty"`
	LeaseHolder string `json:"lease_holder,omitempty"`
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and queue status",
		Long: `Display the current connectivity state, the number of pending actions
waiting for replay, the dead-letter count, and when the queue last drained
fully.`,
		RunE: runStatus,
	}

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	pending, err := container.Queue().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending actions: %w", err)
	}

	dead, err := container.DeadLetters().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count dead letters: %w", err)
	}

	lastSync, err := container.Queue().LastSync(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last sync time: %w", err)
	}

	holder, held, err := container.Lease().Holder(ctx, drain.LeaseName)
	if err != nil {
		return fmt.Errorf("failed to read drain lease: %w", err)
	}

	info := StatusInfo{
		Online:      online,
		Pending:     pending,
		DeadLetters: dead,
	}
	if !lastSync.IsZero() {
		info.LastSync = lastSync.Format(time.RFC3339)
	}
	if held {
		info.LeaseHolder = holder
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(info)
	}

	formatter.Header("Sync Status")

	if online {
		formatter.Success("Online")
	} else {
		formatter.Warning("Offline")
	}

	if pending == 0 {
		formatter.Item("Pending", "none")
	} else {
		formatter.Item("Pending", fmt.Sprintf("%d change(s) waiting for sync", pending))
	}

	if dead > 0 {
		formatter.Item("Dead letters", fmt.Sprintf("%d (see 'sb pending --dead')", dead))
	}

	if lastSync.IsZero() {
		formatter.Item("Last sync", "never")
	} else {
		formatter.Item("Last sync", fmt.Sprintf("%s (%s ago)", lastSync.Local().Format(time.RFC3339), formatAge(time.Since(lastSync))))
	}

	if held {
		formatter.Item("Drain lease", holder)
	}

	return nil
}

// formatAge renders a duration in a coarse human-readable form.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
