package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/review"
)

// NewAnswerCmd creates the command that records one answer.
func NewAnswerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "answer <card-id> <grade>",
		Short: "Record an answer for a card",
		Long:  "Schedules the card for the given grade (again, hard, good, easy or 1-4) and applies the practice note state machine.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid card id %q", args[0])
			}
			grade, err := domain.ParseGrade(args[1])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.reviewer.Answer(cmd.Context(), cardID, grade)
			// Spread failures leave the answer and the primary note recorded.
			partial := err != nil && out.Action == review.ActionRearmAndSpread && !errors.Is(err, domain.ErrPersistence)
			if err != nil && !partial {
				return fmt.Errorf("answer card %d: %w", cardID, err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Action: %s\n", out.Action)
			if out.Action == review.ActionRearmAndSpread {
				fmt.Fprintf(w, "Spreads: %v\n", out.Spreads)
				fmt.Fprintf(w, "Next setting index: %d\n", out.NewIndex)
			}
			if partial {
				fmt.Fprintf(cmd.ErrOrStderr(), "Some spreads failed: %v\n", err)
			}
			return nil
		},
	}
}

// NewFindCmd creates the search command.
func NewFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <search>",
		Short: "List card ids matching a search",
		Long:  `Searches the collection, e.g. "tag:requires prop:due<=1 note:GPT".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := a.db.Search(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
