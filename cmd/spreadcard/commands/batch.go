package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/spreadcard/internal/batch"
	"github.com/conorfennell/spreadcard/internal/domain"
)

// NewGenerateCmd creates the batch command: generation pass, then mobile reviews.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate practice content for due cards",
		Long:  "Fills due cards that await content through the generation API, then processes cards reviewed on mobile.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.runner.Run(cmd.Context())
			if errors.Is(err, domain.ErrMissingCredential) {
				return errors.New("no OpenAI API key configured: set openai.api_key, SPREADCARD_OPENAI__API_KEY or OPENAI_API_KEY")
			}
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			printReport(cmd, rep)
			fmt.Fprintln(cmd.OutOrStdout(), "Done Generating!")
			return nil
		},
	}
	cmd.Flags().String("model", "", "chat model (overrides openai.model)")
	return cmd
}

// NewMobileCmd creates the command that processes mobile reviews alone.
func NewMobileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mobile",
		Short: "Process cards reviewed outside the review screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.runner.RunMobile(cmd.Context())
			if err != nil {
				return fmt.Errorf("mobile pass: %w", err)
			}
			printReport(cmd, rep)
			return nil
		},
	}
}

func printReport(cmd *cobra.Command, rep batch.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated: %d (%d failed)\n", rep.Generated, rep.GenFailed)
	fmt.Fprintf(out, "Mobile reviews: %d (%d failed)\n", rep.Mobile, rep.MobFailed)
}
