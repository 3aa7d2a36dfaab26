package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"analyzeit/internal/bootstrap"
	agentdto "analyzeit/internal/modules/agent/dto"
	"analyzeit/internal/platform/config"
	"analyzeit/internal/platform/logging"
	"analyzeit/internal/ui/dashboard"
)

const rpcTimeout = 30 * time.Second

type globalFlags struct {
	dataDir    string
	configPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "analyzeit",
		Short:         "Browser time tracker and category dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", defaultDataDir(), "directory holding the local database, identity and socket")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default <data-dir>/config.yaml)")

	root.AddCommand(newDaemonCmd(flags))
	root.AddCommand(newEventCmd(flags))
	root.AddCommand(newMapCmd(flags))
	root.AddCommand(newSignInCmd(flags))
	root.AddCommand(newSignOutCmd(flags))
	root.AddCommand(newFlushCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newTodayCmd(flags))
	root.AddCommand(newPendingCmd(flags))
	root.AddCommand(newDashboardCmd(flags))
	return root
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "analyzeit")
	}
	return ".analyzeit"
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	return config.New(flags.dataDir, flags.configPath)
}

// loadApp builds the in-process application. Commands other than the daemon
// log nowhere so their output stays clean.
func loadApp(ctx context.Context, flags *globalFlags) (*bootstrap.App, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, logging.Discard())
}

func withClient(flags *globalFlags, fn func(ctx context.Context, client *bootstrap.Client) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	client, err := bootstrap.Dial(cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	if err := fn(ctx, client); err != nil {
		return fmt.Errorf("%w (is the daemon running? socket %s)", err, cfg.SocketPath)
	}
	return nil
}

func newDaemonCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the tracking agent in the foreground",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := bootstrap.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("shutdown_failed", "error", err)
				}
			}()
			return app.Daemon.Run(ctx)
		},
	}
}

func newEventCmd(flags *globalFlags) *cobra.Command {
	var (
		url, title, idle         string
		focused, exists, audible bool
		lastInput                string
	)
	cmd := &cobra.Command{
		Use:   "event <tab_activated|tab_updated|window_focus|idle_state|alarm>",
		Short: "Report a browser event to the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := agentdto.EventInput{Kind: args[0]}
			changed := cmd.Flags().Changed
			if changed("url") {
				input.URL = &url
			}
			if changed("title") {
				input.Title = &title
			}
			if changed("idle") {
				input.Idle = &idle
			}
			if changed("focused") {
				input.WindowFocused = &focused
			}
			if changed("exists") {
				input.WindowExists = &exists
			}
			if changed("audible") {
				input.Audible = &audible
			}
			if changed("last-input") {
				at, err := time.Parse(time.RFC3339, lastInput)
				if err != nil {
					return fmt.Errorf("--last-input must be RFC3339: %w", err)
				}
				input.LastInputAt = &at
			}
			return withClient(flags, func(ctx context.Context, client *bootstrap.Client) error {
				state, err := client.AgentCLI.Event(ctx, input)
				if err != nil {
					return err
				}
				active := state.ActiveDomain
				if active == "" {
					active = "-"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "active=%s idle=%s audible=%t\n", active, state.Idle, state.Audible)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "active tab url")
	cmd.Flags().StringVar(&title, "title", "", "active tab title")
	cmd.Flags().StringVar(&idle, "idle", "", "system idle state: active|idle|locked")
	cmd.Flags().BoolVar(&focused, "focused", true, "browser window has focus")
	cmd.Flags().BoolVar(&exists, "exists", true, "a browser window exists")
	cmd.Flags().BoolVar(&audible, "audible", false, "active tab is playing audio")
	cmd.Flags().StringVar(&lastInput, "last-input", "", "time of the last user input (RFC3339)")
	return cmd
}

func newMapCmd(flags *globalFlags) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "map <domain> [category]",
		Short: "Override the category of a domain, or drop the override with --clear",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := args[0]
			if !remove && len(args) < 2 {
				return fmt.Errorf("category is required unless --clear is set")
			}
			return withClient(flags, func(ctx context.Context, client *bootstrap.Client) error {
				if remove {
					if err := client.AgentCLI.Unmap(ctx, domain); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s override removed\n", domain)
					return nil
				}
				if err := client.AgentCLI.Map(ctx, domain, args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", domain, args[1])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "clear", false, "remove the override")
	return cmd
}

func newSignInCmd(flags *globalFlags) *cobra.Command {
	var input agentdto.SignInInput
	var tokenFile string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with an identity token or an explicit user record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tokenFile != "" {
				raw, err := readTokenFile(tokenFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
				input.Token = raw
			}
			if strings.TrimSpace(input.Token) == "" && strings.TrimSpace(input.UID) == "" {
				return fmt.Errorf("--token, --token-file or --uid is required")
			}
			return withClient(flags, func(ctx context.Context, client *bootstrap.Client) error {
				user, err := client.AgentCLI.SignIn(ctx, input)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", user.Email, user.UID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.Token, "token", "", "signed identity token")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "read the identity token from a file, - for stdin")
	cmd.Flags().StringVar(&input.UID, "uid", "", "user id")
	cmd.Flags().StringVar(&input.Email, "email", "", "user email")
	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&input.Photo, "photo", "", "profile photo url")
	return cmd
}

func readTokenFile(path string, stdin io.Reader) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func newSignOutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Push pending time, then clear local identity and data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(flags, func(ctx context.Context, client *bootstrap.Client) error {
				if err := client.AgentCLI.SignOut(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newFlushCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Push pending buckets to the remote store now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(flags, func(ctx context.Context, client *bootstrap.Client) error {
				out, err := client.AgentCLI.Flush(ctx)
				if err != nil {
					return err
				}
				if out.NoIdentity {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "not signed in; nothing pushed")
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "run=%s buckets=%d flushed=%d skipped=%d failed=%d seconds=%d\n",
					out.RunID, out.Buckets, out.Flushed, out.Skipped, out.Failed, out.Seconds)
				return nil
			})
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show agent state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(flags, func(ctx context.Context, client *bootstrap.Client) error {
				out, err := client.AgentCLI.Status(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				w := cmd.OutOrStdout()
				if out.SignedIn {
					_, _ = fmt.Fprintf(w, "user:     %s (%s)\n", out.Email, out.UID)
				} else {
					_, _ = fmt.Fprintln(w, "user:     signed out")
				}
				active := out.ActiveDomain
				if active == "" {
					active = "-"
				}
				_, _ = fmt.Fprintf(w, "active:   %s since %s\n", active, out.SessionStart.Format(time.Kitchen))
				_, _ = fmt.Fprintf(w, "idle:     %s audible=%t\n", out.Idle, out.Audible)
				_, _ = fmt.Fprintf(w, "pending:  %d buckets, %s\n", out.PendingBuckets, dashboard.FormatDuration(out.PendingSeconds))
				_, _ = fmt.Fprintf(w, "mappings: %d overrides\n", out.Overrides)
				if !out.LastFlushAt.IsZero() {
					_, _ = fmt.Fprintf(w, "flushed:  %s flushed=%d failed=%d\n", out.LastFlushAt.Format(time.RFC3339), out.LastFlush.Flushed, out.LastFlush.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newTodayCmd(flags *globalFlags) *cobra.Command {
	var date string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Summarize the tracked time of a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			summary, err := app.StatsCLI.Today(ctx, date)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), dashboard.RenderSummary(summary, 0))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to summarize (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newPendingCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List hour buckets not yet pushed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := loadApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()
			buckets, err := app.StatsCLI.Pending(ctx)
			if err != nil {
				return err
			}
			if len(buckets) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no pending buckets")
				return nil
			}
			for _, bucket := range buckets {
				var total int64
				names := make([]string, 0, len(bucket.Categories))
				for _, cat := range bucket.Categories {
					total += cat.TotalSeconds
					names = append(names, cat.Name)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%ds\t%s\n", bucket.Key, total, strings.Join(names, ","))
			}
			return nil
		},
	}
}

func newDashboardCmd(flags *globalFlags) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(context.Background(), flags)
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunDashboard(app, date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to open (YYYY-MM-DD, default today)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
