package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/teamdraw/internal/api/response"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/teams"
	"github.com/mcoot/teamdraw/internal/teamview"
)

func newTeamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Team draw and assignment commands",
	}

	cmd.PersistentFlags().Float64Var(&relativeThreshold, "relative-threshold", teamview.DefaultRelativeThresholdPercent,
		"Percent below the best team average tolerated after manual edits")

	cmd.AddCommand(newTeamsShowCmd())
	cmd.AddCommand(newTeamsDrawCmd())
	cmd.AddCommand(newTeamsMoveCmd())
	cmd.AddCommand(newTeamsBoardCmd())
	cmd.AddCommand(newTeamsAuditCmd())

	return cmd
}

var relativeThreshold float64

// newSession opens a board for an event against the API client
func newSession(cmd *cobra.Command, eventID string) *teamview.Session {
	return teamview.NewSession(client, teamview.Config{
		EventID:                  model.EventID(eventID),
		RelativeThresholdPercent: relativeThreshold,
	}, cliLogger(cmd))
}

func cliLogger(cmd *cobra.Command) *slog.Logger {
	if !cfg.Verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTeamsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show the persisted teams of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := newSession(cmd, args[0])
			defer session.Close()

			if err := session.Fetch(cmd.Context()); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(session.Snapshot())
			return nil
		},
	}
}

type drawFlags struct {
	iterations int
	threshold  float64
	teamCount  int
}

func (f *drawFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.iterations, "iterations", 0, "Optimisation iterations (server default when unset)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Balance threshold in skill points (server default when unset)")
	cmd.Flags().IntVar(&f.teamCount, "team-count", 0, "Number of teams (derived from player count when unset)")
}

// params passes only the flags the user actually set
func (f *drawFlags) params(cmd *cobra.Command) teams.DrawParams {
	var p teams.DrawParams
	if cmd.Flags().Changed("iterations") {
		p.Iterations = &f.iterations
	}
	if cmd.Flags().Changed("threshold") {
		p.BalanceThreshold = &f.threshold
	}
	if cmd.Flags().Changed("team-count") {
		p.TeamCount = &f.teamCount
	}
	return p
}

func newTeamsDrawCmd() *cobra.Command {
	var flags drawFlags
	var confirm bool

	cmd := &cobra.Command{
		Use:   "draw <event-id>",
		Short: "Draw balanced teams from the confirmed players",
		Long: `Draw balanced teams from the confirmed players of an event.

The draw is not saved unless --confirm is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := newSession(cmd, args[0])
			defer session.Close()
			out := NewOutput(cfg.Output, cmd.OutOrStdout())

			result, err := session.RunDraw(cmd.Context(), flags.params(cmd))
			if errors.Is(err, teamview.ErrDrawFailed) {
				out.Print(response.DrawResultFromModel(result))
				return err
			}
			if err != nil {
				return err
			}

			if confirm {
				if _, err := session.Confirm(cmd.Context()); err != nil {
					return err
				}
			}

			out.Print(session.Snapshot())
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Persist the drawn teams")

	return cmd
}

func newTeamsMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <event-id> <signup-id> <team-number>",
		Short: "Move one signup to another team",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamNumber, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid team number %q", args[2])
			}

			session := newSession(cmd, args[0])
			defer session.Close()

			if err := session.Fetch(cmd.Context()); err != nil {
				return err
			}
			if err := session.MoveSignup(cmd.Context(), model.SignupID(args[1]), teamNumber); err != nil {
				return err
			}
			if err := session.WaitForSave(cmd.Context()); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(session.Snapshot())
			return nil
		},
	}
}

func newTeamsAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <event-id>",
		Short: "Show the team change audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.ListAudit(cmd.Context(), model.EventID(args[0]))
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newTeamsBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board <event-id>",
		Short: "Edit an event's teams interactively",
		Long: `Open an interactive board for an event. Commands are read one per line:

  show                   print the board
  refresh                reload the persisted teams
  draw [team-count]      draw new teams (not saved)
  confirm                save the whole board
  move <signup> <team>   move a signup and save that change
  quit                   leave the board`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := newSession(cmd, args[0])
			defer session.Close()

			b := &board{
				session: session,
				out:     NewOutput(cfg.Output, cmd.OutOrStdout()),
			}
			if err := session.Fetch(cmd.Context()); err != nil {
				b.out.PrintMessage("error: " + err.Error())
			} else {
				b.out.Print(session.Snapshot())
			}
			return b.run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

// board drives a teamview session from line commands
type board struct {
	session *teamview.Session
	out     *Output
}

func (b *board) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := b.exec(ctx, fields[0], fields[1:]); err != nil {
			b.out.PrintMessage("error: " + err.Error())
		}
	}
	return scanner.Err()
}

func (b *board) exec(ctx context.Context, command string, args []string) error {
	switch command {
	case "show":
		b.out.Print(b.session.Snapshot())

	case "refresh":
		if err := b.session.Fetch(ctx); err != nil {
			return err
		}
		b.out.Print(b.session.Snapshot())

	case "draw":
		var params teams.DrawParams
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid team count %q", args[0])
			}
			params.TeamCount = &n
		}
		if _, err := b.session.RunDraw(ctx, params); err != nil {
			return err
		}
		b.out.Print(b.session.Snapshot())

	case "confirm":
		rows, err := b.session.Confirm(ctx)
		if err != nil {
			return err
		}
		b.out.PrintMessage(fmt.Sprintf("saved %d assignments", len(rows)))

	case "move":
		if len(args) != 2 {
			return errors.New("usage: move <signup> <team>")
		}
		teamNumber, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid team number %q", args[1])
		}
		if err := b.session.MoveSignup(ctx, model.SignupID(args[0]), teamNumber); err != nil {
			return err
		}
		b.out.Print(b.session.Snapshot())
		if err := b.session.WaitForSave(ctx); err != nil {
			b.out.PrintMessage("save failed, board restored: " + err.Error())
			b.out.Print(b.session.Snapshot())
			return nil
		}
		b.out.PrintMessage("saved")

	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
