package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/herobot/internal/adapters/reply"
	"github.com/okian/herobot/internal/domain/model"
)

// Defaults for the persistent flags.
const (
	DefaultURL     = "http://localhost:9080"
	DefaultTimeout = 10 * time.Second
)

type options struct {
	url     string
	timeout time.Duration
	asJSON  bool
}

func (o *options) client() *Client { return NewClient(o.url, o.timeout) }

// NewRootCommand builds the herobot-cli command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "herobot-cli",
		Short:         "Query a running herobot server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.url, "url", DefaultURL, "Base URL of the herobot server")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", DefaultTimeout, "Per-request timeout")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print raw JSON instead of chat text")

	root.AddCommand(
		searchCommand(opts),
		heroCommand(opts, "matchup", "Best teammates and opponents of a hero",
			func(ctx context.Context, c *Client, name string) (any, string, error) {
				r, err := c.Matchups(ctx, name)
				return r, reply.FormatMatchups(r), err
			}),
		heroCommand(opts, "winrate", "Recent weekly win rate of a hero",
			func(ctx context.Context, c *Client, name string) (any, string, error) {
				r, err := c.WinRate(ctx, name)
				return r, reply.FormatWinRate(r), err
			}),
		heroCommand(opts, "stats", "Static attributes of a hero",
			func(ctx context.Context, c *Client, name string) (any, string, error) {
				r, err := c.HeroStats(ctx, name)
				return r, reply.FormatHeroStats(r), err
			}),
		statsIDCommand(opts),
		submitCommand(opts),
	)
	return root
}

func render(w io.Writer, asJSON bool, v any, text string) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func searchCommand(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "List heroes matching a name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			found, err := opts.client().Search(cmd.Context(), q, limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.asJSON, found, reply.FormatSearch(q, found))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (server default when 0)")
	return cmd
}

type heroLookup func(ctx context.Context, c *Client, name string) (any, string, error)

func heroCommand(opts *options, use, short string, lookup heroLookup) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <hero>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, text, err := lookup(cmd.Context(), opts.client(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.asJSON, v, text)
		},
	}
}

func statsIDCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats-id <id>",
		Short: "Static attributes of a hero by raw id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid hero id %q: %w", args[0], err)
			}
			r, err := opts.client().HeroStatsByID(cmd.Context(), uint8(id))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.asJSON, r, reply.FormatHeroStats(r))
		},
	}
}

func submitCommand(opts *options) *cobra.Command {
	var (
		id      string
		heroID  int
		count   int
		workers int
		repeat  bool
	)
	cmd := &cobra.Command{
		Use:   "submit <command> [hero]",
		Short: "Submit a chat command for asynchronous processing",
		Long: `Submit a chat command; the reply is delivered by the server's replier.

With --count greater than one, a batch of commands cycling over the given
heroes is posted concurrently and a summary is printed.

Examples:
  herobot-cli submit matchup axe
  herobot-cli submit herostats_id --hero-id 2
  herobot-cli submit winrate axe "crystal maiden" --count 500 --workers 16 --repeat`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, heroes := args[0], args[1:]
			if !model.Known(name) {
				return fmt.Errorf("unknown command %q", name)
			}
			c := opts.client()
			out := cmd.OutOrStdout()

			if count > 1 {
				if len(heroes) == 0 {
					return fmt.Errorf("a batch needs at least one hero")
				}
				stats := SubmitLoad(cmd.Context(), c, Batch(name, heroes, count, repeat), workers)
				if opts.asJSON {
					return render(out, true, stats, "")
				}
				_, err := fmt.Fprintf(out, "submitted %d in %s: accepted %d, duplicate %d, rejected %d, failed %d\n",
					stats.Submitted, stats.Duration.Round(time.Millisecond),
					stats.Accepted, stats.Duplicate, stats.Rejected, stats.Failed)
				return err
			}

			req := CommandRequest{CommandID: id, Name: name, Hero: strings.Join(heroes, " ")}
			if cmd.Flags().Changed("hero-id") {
				req.HeroID = &heroID
			}
			ack, err := c.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(out, opts.asJSON, ack, fmt.Sprintf("%s %s", ack.CommandID, ack.Status))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Command id (generated by the server when empty)")
	cmd.Flags().IntVar(&heroID, "hero-id", 0, "Raw hero id for herostats_id")
	cmd.Flags().IntVar(&count, "count", 1, "Number of commands to submit")
	cmd.Flags().IntVar(&workers, "workers", 8, "Concurrent submitters for a batch")
	cmd.Flags().BoolVar(&repeat, "repeat", false, "Send every batch command twice with the same id")
	return cmd
}
