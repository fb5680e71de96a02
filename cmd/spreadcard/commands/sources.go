package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSourceCmd creates the deck source command with add and list subcommands.
func NewSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage deck sources",
		Long:  "Register local directories or git repositories of markdown decks.",
	}
	cmd.AddCommand(newSourceAddCmd())
	cmd.AddCommand(newSourceListCmd())
	return cmd
}

func newSourceAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path-or-git-url>",
		Short: "Register a deck source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.syncer.AddSource(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("add source: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Source %d: %s (%s)\n", src.ID, src.Path, src.Type)
			return nil
		},
	}
}

func newSourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List deck sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sources, err := a.db.GetAllSources(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sources: %w", err)
			}
			if len(sources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sources. Use 'source add' to register one.")
				return nil
			}
			for _, src := range sources {
				scanned := "never"
				if src.LastScanned.Valid {
					scanned = src.LastScanned.Time.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", src.ID, src.Type, src.Path, scanned)
			}
			return nil
		},
	}
}

// NewSyncCmd creates the command that reconciles sources with the collection.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Import notes from all deck sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.syncer.RunSync(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d notes in %d sources, added %d, removed %d, %d errors.\n",
				rep.Parsed, rep.Sources, rep.Added, rep.Removed, len(rep.Errors))
			if len(rep.Errors) > 0 {
				fmt.Fprintln(out, "\nErrors:")
				for _, e := range rep.Errors {
					fmt.Fprintf(out, "- %s\n", e)
				}
			}
			return nil
		},
	}
}
