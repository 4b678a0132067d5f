package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/syncbridge/internal/presentation/cli/output"
)

// NewConsoleCmd creates the console command for interactive use.
func NewConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive sync console",
		Long: `Start an interactive console for inspecting and driving the sync layer.

The console keeps the connectivity monitor running, so automatic drains
fire on reconnect while the session is open.

Commands:
  status          - Show connectivity and queue status
  pending         - List pending actions
  dead            - List dead letters
  drain           - Replay pending actions now
  redrive <id>    - Re-queue a dead letter
  cache [key]     - List cached keys, or show one snapshot
  online, offline - Force the connectivity state
  help            - Show this help
  exit, quit      - Leave the console`,
		Args: cobra.NoArgs,
		RunE: runConsole,
	}

	return cmd
}

func runConsole(cmd *cobra.Command, args []string) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	formatter := GetFormatter()
	app := GetAppContext()

	// Keep probing and auto-draining while the console is open.
	if err := container.Start(app.runCtx); err != nil {
		return fmt.Errorf("could not start monitoring: %w", err)
	}

	formatter.Header("Syncbridge Console")
	formatter.Info("Type a command and press Enter. Type 'help' for commands.")
	formatter.Println("")

	rl, err := readline.New("sb> ")
	if err != nil {
		return fmt.Errorf("could not create readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		command, rest := fields[0], fields[1:]

		if command == "exit" || command == "quit" {
			break
		}
		if err := dispatchConsole(cmd, formatter, command, rest); err != nil {
			formatter.Error("%s", err.Error())
		}
	}

	formatter.Println("Bye")
	return nil
}

// dispatchConsole routes one console line to the matching command logic.
func dispatchConsole(cmd *cobra.Command, formatter *output.Formatter, command string, args []string) error {
	container := GetContainer()

	switch command {
	case "status":
		return runStatus(cmd, nil)

	case "pending":
		return runPending(cmd, false)

	case "dead":
		return runPendingDead(cmd)

	case "drain":
		return runDrain(cmd, nil)

	case "redrive":
		if len(args) != 1 {
			return fmt.Errorf("usage: redrive <id>")
		}
		return runRedrive(cmd, args[0])

	case "cache":
		if len(args) == 0 {
			return runConsoleCacheList(cmd, formatter)
		}
		return runConsoleCacheShow(cmd, formatter, args[0])

	case "online":
		container.Monitor().SetOnline(true)
		if container.Monitor().IsOnline() {
			formatter.Success("Online")
		} else {
			formatter.Warning("Still offline: override file present")
		}
		return nil

	case "offline":
		container.Monitor().SetOnline(false)
		formatter.Warning("Offline")
		return nil

	case "help":
		formatter.Println("%s", consoleHelp)
		return nil

	default:
		return fmt.Errorf("unknown command %q, type 'help'", command)
	}
}

func runConsoleCacheList(cmd *cobra.Command, formatter *output.Formatter) error {
	container := GetContainer()

	keys, err := container.Snapshots().Keys(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		formatter.Info("Cache is empty")
		return nil
	}
	for _, key := range keys {
		formatter.BulletItem(key)
	}
	return nil
}

func runConsoleCacheShow(cmd *cobra.Command, formatter *output.Formatter, key string) error {
	container := GetContainer()

	snap, err := container.Snapshots().Get(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	if snap == nil {
		return fmt.Errorf("no cached snapshot for key %q", key)
	}
	formatter.Item("Cached", fmt.Sprintf("%s ago", formatAge(snap.Age())))
	formatter.Println("%s", string(snap.Data))
	return nil
}

const consoleHelp = `  status          show connectivity and queue status
  pending         list pending actions
  dead            list dead letters
  drain           replay pending actions now
  redrive <id>    re-queue a dead letter
  cache [key]     list cached keys, or show one snapshot
  online, offline force the connectivity state
  exit, quit      leave the console`
