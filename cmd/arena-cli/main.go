package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	apppublic "limbopet-arena/internal/app/public"
	"limbopet-arena/internal/arena"
	"limbopet-arena/internal/config"
	"limbopet-arena/internal/logging"
	"limbopet-arena/internal/recap"
	"limbopet-arena/internal/store"

	"github.com/olekukonko/tablewriter"
)

const usage = `usage: arena-cli <command> [flags]

commands:
  migrate                    apply database migrations
  tick [-day D] [-matches N] [-resolve] [-stagger S]
                             run one scheduler pass
  leaderboard [-day D] [-limit N]
                             print the season leaderboard
  today [-day D]             print the day's matches
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadApp()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		return err
	}

	if cmd == "migrate" {
		return store.Migrate(cfg.Server.PostgresDSN, cfg.Server.MigrationsPath)
	}

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		return err
	}
	defer st.Close()
	arenaSvc := arena.NewService(st, cfg.Arena, arena.WithRecap(recap.NewService(nil)))
	public := apppublic.NewService(st, arenaSvc)

	switch cmd {
	case "tick":
		fs := flag.NewFlagSet("tick", flag.ContinueOnError)
		day := fs.String("day", "", "arena day (YYYY-MM-DD), defaults to today")
		matches := fs.Int("matches", -1, "matches per day, negative for the configured default")
		resolve := fs.Bool("resolve", false, "resolve new matches immediately")
		stagger := fs.Int("stagger", 0, "seconds between scheduled slot starts")
		if err := fs.Parse(args); err != nil {
			return err
		}
		res, err := arenaSvc.TickDay(ctx, arena.TickOptions{
			Day:                *day,
			MatchesPerDay:      *matches,
			ResolveImmediately: *resolve,
			StaggerSeconds:     *stagger,
		})
		if err != nil {
			return err
		}
		renderTick(out, res)
		return nil
	case "leaderboard":
		fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
		day := fs.String("day", "", "arena day used to pick the season")
		limit := fs.Int("limit", 20, "rows to print")
		if err := fs.Parse(args); err != nil {
			return err
		}
		resp, err := public.Leaderboard(ctx, *day, *limit, 0)
		if err != nil {
			return err
		}
		renderLeaderboard(out, resp)
		return nil
	case "today":
		fs := flag.NewFlagSet("today", flag.ContinueOnError)
		day := fs.String("day", "", "arena day (YYYY-MM-DD)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		resp, err := public.Today(ctx, *day, 50, "")
		if err != nil {
			return err
		}
		renderToday(out, resp)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func renderTick(out io.Writer, res arena.TickResult) {
	if res.Skipped {
		fmt.Fprintf(out, "tick for %s skipped: another tick holds the day lock\n", res.Day)
		return
	}
	fmt.Fprintf(out, "day %s (season %s): created %d, started %d, resolved %d, failed %d\n",
		res.Day, res.SeasonCode, res.Created, res.Started, res.Resolved, res.Failed)
}

func renderLeaderboard(out io.Writer, resp *apppublic.LeaderboardResponse) {
	if resp.Season != nil {
		fmt.Fprintf(out, "Season %s (%s to %s)\n", resp.Season.Code, resp.Season.StartsOn, resp.Season.EndsOn)
	}
	table := tablewriter.NewWriter(out)
	table.Header("#", "Agent", "Rating", "W", "L", "Streak")
	for _, it := range resp.Items {
		table.Append(
			fmt.Sprintf("%d", it.Rank),
			it.Name,
			fmt.Sprintf("%d", it.Rating),
			fmt.Sprintf("%d", it.Wins),
			fmt.Sprintf("%d", it.Losses),
			fmt.Sprintf("%+d", it.Streak),
		)
	}
	table.Render()
}

func renderToday(out io.Writer, resp *apppublic.TodayResponse) {
	fmt.Fprintf(out, "Arena day %s: %d matches\n", resp.Day, len(resp.Matches))
	table := tablewriter.NewWriter(out)
	table.Header("Slot", "Mode", "Status", "Match", "Headline")
	for _, m := range resp.Matches {
		names := "-"
		if c := m.Meta.Cast; c != nil {
			names = c.AName + " vs " + c.BName
		}
		table.Append(fmt.Sprintf("%d", m.Slot), m.ModeLabel, m.Status, names, m.Headline)
	}
	table.Render()
}
