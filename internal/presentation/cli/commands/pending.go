package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
	"github.com/jbctechsolutions/syncbridge/internal/presentation/cli/output"
)

// PendingActionInfo holds one pending action for JSON output.
type PendingActionInfo struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	EnqueuedAt string `json:"enqueued_at"`
	Retries    int    `json:"retries"`
	Payload    string `json:"payload,omitempty"`
}

// DeadLetterInfo holds one dead letter for JSON output.
type DeadLetterInfo struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Retries  int    `json:"retries"`
	Reason   string `json:"reason"`
	FailedAt string `json:"failed_at"`
}

// NewPendingCmd creates the pending command.
func NewPendingCmd() *cobra.Command {
	var dead bool
	var showPayload bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List pending actions",
		Long: `List the actions captured while offline, in the order they will replay.

With --dead, list dead-lettered actions instead: actions abandoned during
drain after exhausting their retries or being rejected by the remote
service. Dead letters can be re-queued with 'sb redrive <id>'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dead {
				return runPendingDead(cmd)
			}
			return runPending(cmd, showPayload)
		},
	}

	cmd.Flags().BoolVarP(&dead, "dead", "d", false, "list dead letters instead of pending actions")
	cmd.Flags().BoolVarP(&showPayload, "payload", "p", false, "include action payloads")

	return cmd
}

func runPending(cmd *cobra.Command, showPayload bool) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	formatter := GetFormatter()

	actions, err := container.Queue().List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list pending actions: %w", err)
	}

	if formatter.Format() == output.FormatJSON {
		infos := make([]PendingActionInfo, 0, len(actions))
		for _, a := range actions {
			info := PendingActionInfo{
				ID:         a.ID,
				Type:       string(a.Type),
				EnqueuedAt: a.EnqueuedAt.Format(time.RFC3339),
				Retries:    a.Retries,
			}
			if showPayload {
				info.Payload = string(a.Payload)
			}
			infos = append(infos, info)
		}
		return formatter.JSON(infos)
	}

	if len(actions) == 0 {
		formatter.Success("No pending actions")
		return nil
	}

	formatter.Header(fmt.Sprintf("Pending Actions (%d)", len(actions)))

	table := output.TableData{
		Columns: []output.TableColumn{
			{Header: "#", Align: output.AlignRight},
			{Header: "ID"},
			{Header: "TYPE"},
			{Header: "AGE", Align: output.AlignRight},
			{Header: "RETRIES", Align: output.AlignRight},
		},
	}
	for i, a := range actions {
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", i+1),
			shortID(a.ID),
			string(a.Type),
			formatAge(a.Age()),
			fmt.Sprintf("%d", a.Retries),
		})
	}
	if err := formatter.Table(table); err != nil {
		return err
	}

	if showPayload {
		formatter.Println("")
		for _, a := range actions {
			formatter.SubHeader(shortID(a.ID))
			formatter.Println("%s", string(a.Payload))
		}
	}

	return nil
}

func runPendingDead(cmd *cobra.Command) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	formatter := GetFormatter()

	letters, err := container.DeadLetters().List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list dead letters: %w", err)
	}

	if formatter.Format() == output.FormatJSON {
		infos := make([]DeadLetterInfo, 0, len(letters))
		for _, dl := range letters {
			infos = append(infos, deadLetterInfo(dl))
		}
		return formatter.JSON(infos)
	}

	if len(letters) == 0 {
		formatter.Success("No dead letters")
		return nil
	}

	formatter.Header(fmt.Sprintf("Dead Letters (%d)", len(letters)))

	table := output.TableData{
		Columns: []output.TableColumn{
			{Header: "ID"},
			{Header: "TYPE"},
			{Header: "RETRIES", Align: output.AlignRight},
			{Header: "FAILED", Align: output.AlignRight},
			{Header: "REASON"},
		},
	}
	// Full ids here: redrive takes the id verbatim.
	for _, dl := range letters {
		table.Rows = append(table.Rows, []string{
			dl.ID,
			string(dl.Type),
			fmt.Sprintf("%d", dl.Retries),
			formatAge(time.Since(dl.FailedAt)) + " ago",
			truncate(dl.Reason, 48),
		})
	}
	if err := formatter.Table(table); err != nil {
		return err
	}

	formatter.Println("")
	formatter.Info("Re-queue a dead letter with 'sb redrive <id>'")

	return nil
}

func deadLetterInfo(dl *action.DeadLetter) DeadLetterInfo {
	return DeadLetterInfo{
		ID:       dl.ID,
		Type:     string(dl.Type),
		Retries:  dl.Retries,
		Reason:   dl.Reason,
		FailedAt: dl.FailedAt.Format(time.RFC3339),
	}
}

// shortID returns the first uuid segment, enough to disambiguate in a table.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
