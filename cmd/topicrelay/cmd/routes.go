package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rickgao/topicrelay/internal/config"
	"github.com/rickgao/topicrelay/internal/routes"
)

var (
	routesFormat string
	lookupUser   int64
	lookupTopic  int
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Inspect the user -> topic table",
	Long: `Read the configured route store without modifying it.

Examples:
  topicrelay routes list
  topicrelay routes list --format json
  topicrelay routes lookup --user 111111
  topicrelay routes lookup --topic 501`,
}

var routesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every entry in table order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, closeStore, err := loadTable(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		return printEntries(cmd.OutOrStdout(), table.Entries(), routesFormat)
	},
}

var routesLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve one user or one topic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		byUser := cmd.Flags().Changed("user")
		byTopic := cmd.Flags().Changed("topic")
		if byUser == byTopic {
			return errors.New("exactly one of --user or --topic is required")
		}

		table, closeStore, err := loadTable(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		var entry routes.Entry
		if byUser {
			topicID, ok := table.LookupByUser(lookupUser)
			if !ok {
				return fmt.Errorf("user %d has no topic", lookupUser)
			}
			entry = routes.Entry{UserID: lookupUser, TopicID: topicID}
		} else {
			userID, ok := table.LookupByTopic(lookupTopic)
			if !ok {
				return fmt.Errorf("topic %d maps to no user", lookupTopic)
			}
			entry = routes.Entry{UserID: userID, TopicID: lookupTopic}
		}

		return printEntries(cmd.OutOrStdout(), []routes.Entry{entry}, routesFormat)
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.AddCommand(routesListCmd, routesLookupCmd)

	routesCmd.PersistentFlags().StringVarP(&routesFormat, "format", "f", "table", "Output format (table, json)")
	routesLookupCmd.Flags().Int64Var(&lookupUser, "user", 0, "user id to resolve")
	routesLookupCmd.Flags().IntVar(&lookupTopic, "topic", 0, "topic id to resolve")
}

// loadTable opens the store read-only and loads it. Only the routes and
// database sections of the config are used, so no bot token is needed.
func loadTable(ctx context.Context) (*routes.Table, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadWithDefaults(configPath, envFiles...)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	// Keep stdout clean for the listing.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, closeStore, err := openStore(ctx, cfg, true, logger)
	if err != nil {
		return nil, nil, err
	}

	table := routes.NewTable(store, logger)
	if err := table.Load(ctx); err != nil {
		closeStore()
		return nil, nil, err
	}
	return table, closeStore, nil
}

func printEntries(w io.Writer, entries []routes.Entry, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []routes.Entry{}
		}
		return enc.Encode(entries)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "USER_ID\tTOPIC_ID")
		for _, e := range entries {
			fmt.Fprintf(tw, "%d\t%d\n", e.UserID, e.TopicID)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (table, json)", format)
	}
}
