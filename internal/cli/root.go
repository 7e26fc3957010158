package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/client"
	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/tui"
)

// HomeEnv overrides the client state directory (default ~/.taskflow)
const HomeEnv = "TASKFLOW_HOME"

var (
	logLevel   string
	logFile    string
	logConsole bool

	workspaceFlag string
	offlineFlag   bool

	api *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "TaskFlow - team task board in your terminal",
	Long: `TaskFlow is the command line client for a TaskFlow server: workspaces,
categories, tasks and the activity feed.

Run 'taskflow' without arguments to open the kanban board.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient()
		if err != nil {
			return fmt.Errorf("failed to load client config: %w", err)
		}

		// Log flags are remembered for later runs
		cfg := c.Config()
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}
		if configChanged {
			if err := c.Save(); err != nil {
				return fmt.Errorf("failed to save client config: %w", err)
			}
		}

		level := logger.WARN
		if cfg.LogLevel != "" {
			level = logger.ParseLevel(cfg.LogLevel)
		}
		logConfig := logger.Config{
			Level:      level,
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}
		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		c.SetOffline(offlineFlag)
		api = c
		logger.Info("TaskFlow started", logger.F("command", cmd.CommandPath()), logger.F("offline", offlineFlag))
		return nil
	},

	RunE: runBoard,

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("TaskFlow exiting", logger.F("command", cmd.CommandPath()))
		_ = logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func openClient() (*client.Client, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return client.New(dir)
	}
	return client.NewDefault()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace id or name (default: the saved workspace)")
	rootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false, "Read from the local cache and refuse changes")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(cacheCmd)
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the kanban board",
	RunE:  runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	if !api.IsLoggedIn() {
		return client.ErrNotLoggedIn
	}
	wsID, err := workspaceRef(cmd, false)
	if err != nil {
		return err
	}

	logger.Info("Launching board", logger.F("workspace", wsID))
	m := tui.NewModel(api, wsID)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		logger.Error("Board error", logger.Err(err))
		return fmt.Errorf("failed to run board: %w", err)
	}
	if fm, ok := final.(tui.Model); ok && fm.Err() != nil {
		logger.Warn("Board exited with an error shown", logger.Err(fm.Err()))
	}
	logger.Info("Board exited normally")
	return nil
}
