package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drydock-sh/drydock/internal/history"
)

var (
	searchPathFilter string
	searchLimit      int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search past agent sessions",
	Long: `Builds an index over the agent CLI's session history under claude_home
and prints sessions matching the query. Matching is case-insensitive and
checks slug, project path, git branch, summaries, and the first message,
in that order.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchPathFilter, "path", "", "Only sessions whose project path contains this")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ix := history.NewIndex(cfg.ClaudeHome)
	if err := ix.RebuildIfStale(); err != nil {
		return fmt.Errorf("error building session index: %w", err)
	}

	results := ix.Search(args[0], searchPathFilter)
	if searchLimit > 0 && len(results) > searchLimit {
		results = results[:searchLimit]
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching sessions.")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s  %s  %s\n", r.Slug, r.LastActivityAt.Format("2006-01-02 15:04"), r.ProjectPath)
		fmt.Fprintf(out, "    session %s, matched %s: %s\n", r.SessionID, r.MatchedField, firstLine(r.MatchedText))
	}
	return nil
}
