package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drydock-sh/drydock/internal/plan"
)

var planMaterialize bool

var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Extract an orchestration plan from saved assistant text",
	Long: `Scans a text file (typically saved assistant output) for an
orchestration plan and prints it. With --materialize, each plan session is
turned into a concrete session spec with a generated id and a prefixed,
validated branch name.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planMaterialize, "materialize", false, "Print concrete session specs")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("error reading %s: %w", args[0], err)
	}

	p := plan.Extract(string(data))
	if p == nil {
		return fmt.Errorf("no orchestration plan found in %s", args[0])
	}

	out := cmd.OutOrStdout()
	printPlan(out, p)

	if !planMaterialize {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	specs, err := p.Materialize(cfg.BranchPrefix)
	if err != nil {
		return fmt.Errorf("error materializing plan: %w", err)
	}
	for _, spec := range specs {
		fmt.Fprintf(out, "session %s\n", spec.ID)
		fmt.Fprintf(out, "  branch: %s\n", spec.Branch)
		fmt.Fprintf(out, "  type:   %s\n", spec.Type)
		fmt.Fprintf(out, "  task:   %s\n", spec.Description)
	}
	return nil
}
