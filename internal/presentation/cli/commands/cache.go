package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/syncbridge/internal/presentation/cli/output"
)

// SnapshotInfo holds one cached snapshot for JSON output.
type SnapshotInfo struct {
	Key      string `json:"key"`
	CachedAt string `json:"cached_at"`
	Data     string `json:"data,omitempty"`
}

// NewCacheCmd creates the cache management command.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the snapshot cache",
		Long: `Manage the last-known-good snapshot cache that serves reads while offline.

Each entry is the most recent server response for one resource key. Stale
entries are served as a fallback, never as authoritative data.`,
	}

	// Add subcommands
	cmd.AddCommand(NewCacheListCmd())
	cmd.AddCommand(NewCacheShowCmd())
	cmd.AddCommand(NewCacheClearCmd())

	return cmd
}

// NewCacheListCmd creates the cache list command.
func NewCacheListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached resource keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			formatter := GetFormatter()
			ctx := cmd.Context()

			keys, err := container.Snapshots().Keys(ctx)
			if err != nil {
				return fmt.Errorf("failed to list cache keys: %w", err)
			}

			if formatter.Format() == output.FormatJSON {
				infos := make([]SnapshotInfo, 0, len(keys))
				for _, key := range keys {
					info := SnapshotInfo{Key: key}
					if snap, err := container.Snapshots().Get(ctx, key); err == nil && snap != nil {
						info.CachedAt = snap.CachedAt.Format(time.RFC3339)
					}
					infos = append(infos, info)
				}
				return formatter.JSON(infos)
			}

			if len(keys) == 0 {
				formatter.Info("Cache is empty")
				return nil
			}

			table := output.TableData{
				Columns: []output.TableColumn{
					{Header: "KEY"},
					{Header: "AGE", Align: output.AlignRight},
				},
			}
			for _, key := range keys {
				age := "?"
				if snap, err := container.Snapshots().Get(ctx, key); err == nil && snap != nil {
					age = formatAge(snap.Age())
				}
				table.Rows = append(table.Rows, []string{key, age})
			}
			return formatter.Table(table)
		},
	}

	return cmd
}

// NewCacheShowCmd creates the cache show command.
func NewCacheShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Show a cached snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			formatter := GetFormatter()
			key := args[0]

			snap, err := container.Snapshots().Get(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("failed to read cache: %w", err)
			}
			if snap == nil {
				return fmt.Errorf("no cached snapshot for key %q", key)
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(SnapshotInfo{
					Key:      snap.Key,
					CachedAt: snap.CachedAt.Format(time.RFC3339),
					Data:     string(snap.Data),
				})
			}

			formatter.Item("Key", snap.Key)
			formatter.Item("Cached", fmt.Sprintf("%s ago", formatAge(snap.Age())))
			formatter.Println("%s", string(snap.Data))
			return nil
		},
	}

	return cmd
}

// NewCacheClearCmd creates the cache clear command.
func NewCacheClearCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [key]",
		Short: "Clear cached snapshots",
		Long:  `Clear the snapshot for one key, or the whole cache with --all.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			formatter := GetFormatter()
			ctx := cmd.Context()

			switch {
			case all:
				if err := container.Snapshots().ClearAll(ctx); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				formatter.Success("Cache cleared")
			case len(args) == 1:
				if err := container.Snapshots().Clear(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to clear cache entry: %w", err)
				}
				formatter.Success("Cleared %s", args[0])
			default:
				return fmt.Errorf("specify a key or --all")
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "clear every cached snapshot")

	return cmd
}
