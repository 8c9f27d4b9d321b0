package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"connect4engine/internal/bot"
	"connect4engine/internal/models"

	"github.com/spf13/cobra"
)

type positionFlags struct {
	rows  int
	cols  int
	first string
}

func (pf *positionFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&pf.rows, "rows", 6, "board rows")
	cmd.Flags().IntVar(&pf.cols, "cols", 7, "board columns")
	cmd.Flags().StringVar(&pf.first, "first", string(models.ColorRed), "colour that moved first (red or yellow)")
}

// position replays a move signature and returns the board with the side to
// move. An empty signature is the empty board.
func (pf *positionFlags) position(args []string) (*models.Board, models.Cell, error) {
	first := models.PlayerColor(pf.first).Cell()
	if !first.IsPlayer() {
		return nil, models.Empty, fmt.Errorf("--first: %w", models.ErrInvalidPlayer)
	}
	sig := ""
	if len(args) > 0 {
		sig = args[0]
	}
	columns, err := models.ParseSignature(sig, pf.cols)
	if err != nil {
		return nil, models.Empty, fmt.Errorf("signature %q: %w", sig, err)
	}
	board, _, toMove, err := models.Replay(pf.rows, pf.cols, first, columns)
	if err != nil {
		return nil, models.Empty, fmt.Errorf("signature %q: %w", sig, err)
	}
	if _, won := board.WinningLine(); won {
		return nil, models.Empty, models.ErrGameOver
	}
	return board, toMove, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "c4ctl",
		Short: "Search connect-four positions from the command line",
		Long: `c4ctl replays a move signature (1-based columns such as "4453",
or comma separated when the board has more than nine columns) and runs the
engine on the resulting position for the side to move.`,
		SilenceUsage: true,
	}
	root.AddCommand(newBestMoveCmd(), newAnalyzeCmd(), newShowCmd())
	return root
}

func newBestMoveCmd() *cobra.Command {
	var (
		pf     positionFlags
		depth  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "bestmove [signature]",
		Short: "Run a fixed-depth search and print the chosen column",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, toMove, err := pf.position(args)
			if err != nil {
				return err
			}
			engine, err := bot.NewEngine(board.Rows(), board.Cols())
			if err != nil {
				return err
			}
			res, err := engine.Analyze(board, toMove, depth)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s plays column %d (score %d, depth %d)\n",
				toMove, res.Column+1, res.Score, res.Depth)
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&depth, "depth", 4, "search depth in plies")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		pf       positionFlags
		maxDepth int
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze [signature]",
		Short: "Deepen the search step by step, printing every scored column",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, toMove, err := pf.position(args)
			if err != nil {
				return err
			}
			engine, err := bot.NewEngine(board.Rows(), board.Cols())
			if err != nil {
				return err
			}
			sched, err := engine.NewScheduler(board, toMove, maxDepth)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			res, err := sched.Run(ctx, func(p bot.Progress) {
				fmt.Fprintf(out, "depth %d/%d  completed %d ", p.Depth, p.MaxDepth, p.CompletedDepth)
				for _, cs := range p.Scores {
					fmt.Fprintf(out, " %d:%d", cs.Column+1, cs.Score)
				}
				fmt.Fprintln(out)
			})
			if errors.Is(err, context.DeadlineExceeded) {
				// Fall back to the deepest depth that did finish.
				res, err = sched.Result()
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s plays column %d (score %d, completed depth %d)\n",
				toMove, res.Column+1, res.Score, res.Depth)
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&maxDepth, "max-depth", 6, "deepest iteration")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "stop after this long and report the deepest finished depth")
	return cmd
}

func newShowCmd() *cobra.Command {
	var pf positionFlags
	cmd := &cobra.Command{
		Use:   "show [signature]",
		Short: "Print the replayed board and its signatures",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			first := models.PlayerColor(pf.first).Cell()
			if !first.IsPlayer() {
				return fmt.Errorf("--first: %w", models.ErrInvalidPlayer)
			}
			sig := ""
			if len(args) > 0 {
				sig = args[0]
			}
			columns, err := models.ParseSignature(sig, pf.cols)
			if err != nil {
				return err
			}
			board, moves, toMove, err := models.Replay(pf.rows, pf.cols, first, columns)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, board)
			fmt.Fprintf(out, "signature: %s\n", models.Signature(moves, pf.cols))
			fmt.Fprintf(out, "canonical: %s\n", models.CanonicalSignature(moves, pf.cols))
			switch w := board.Winner(); {
			case w.IsPlayer():
				fmt.Fprintf(out, "winner: %s\n", w)
			case board.IsFull():
				fmt.Fprintln(out, "draw")
			default:
				fmt.Fprintf(out, "to move: %s\n", toMove)
			}
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
