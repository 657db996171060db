package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/variantlab/variant/internal/domain"
	"github.com/variantlab/variant/internal/engine"
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Manage experiments",
	Long:  `Create, list, and drive experiments through their lifecycle.`,
}

var experimentCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new experiment",
	Long: `Create a new draft experiment with weighted variants.

Variants are given as name=weight, with an optional ,control marker. Weights
must sum to 100.

Examples:
  variant experiment create "checkout-copy" --feature checkout \
    --variant "control=50,control" --variant "short-copy=50" \
    --metric completion_rate --metric time_on_page
  variant experiment create "slow-rollout" --feature search \
    --variant "control=90,control" --variant "new-ranker=10" \
    --percentage 20 --tenant acme --role admin`,
	Args: cobra.ExactArgs(1),
	RunE: runExperimentCreate,
}

var experimentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all experiments",
	RunE:  runExperimentList,
}

var experimentStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Start an experiment",
	Long:  `Start a draft experiment. Once started, variants and targeting are frozen.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentStart,
}

var experimentPauseCmd = &cobra.Command{
	Use:   "pause <name>",
	Short: "Pause a running experiment",
	Long:  `Pause a running experiment. Existing assignments keep serving; no new ones are created.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentPause,
}

var experimentResumeCmd = &cobra.Command{
	Use:   "resume <name>",
	Short: "Resume a paused experiment",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentResume,
}

var experimentCompleteCmd = &cobra.Command{
	Use:   "complete <name>",
	Short: "Complete an experiment",
	Long: `Complete an experiment, optionally declaring a winning variant.

Examples:
  variant experiment complete "checkout-copy"
  variant experiment complete "checkout-copy" --winner short-copy`,
	Args: cobra.ExactArgs(1),
	RunE: runExperimentComplete,
}

var experimentResultsCmd = &cobra.Command{
	Use:   "results <name>",
	Short: "Show aggregated results for an experiment",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentResults,
}

// Flags
var (
	expFeature    string
	expVariants   []string
	expPercentage int
	expTenants    []string
	expRoles      []string
	expMetrics    []string
	expWinner     string
)

func init() {
	rootCmd.AddCommand(experimentCmd)

	experimentCmd.AddCommand(experimentCreateCmd)
	experimentCmd.AddCommand(experimentListCmd)
	experimentCmd.AddCommand(experimentStartCmd)
	experimentCmd.AddCommand(experimentPauseCmd)
	experimentCmd.AddCommand(experimentResumeCmd)
	experimentCmd.AddCommand(experimentCompleteCmd)
	experimentCmd.AddCommand(experimentResultsCmd)

	experimentCreateCmd.Flags().StringVarP(&expFeature, "feature", "f", "", "Feature under test")
	experimentCreateCmd.Flags().StringArrayVarP(&expVariants, "variant", "v", nil, "Variant as name=weight[,control] (repeatable)")
	experimentCreateCmd.Flags().IntVar(&expPercentage, "percentage", 100, "Percentage of the eligible population to enroll")
	experimentCreateCmd.Flags().StringArrayVar(&expTenants, "tenant", nil, "Tenant allow-list entry (repeatable)")
	experimentCreateCmd.Flags().StringArrayVar(&expRoles, "role", nil, "Role allow-list entry (repeatable)")
	experimentCreateCmd.Flags().StringArrayVarP(&expMetrics, "metric", "m", nil, "Tracked metric name (repeatable)")
	_ = experimentCreateCmd.MarkFlagRequired("variant")

	experimentCompleteCmd.Flags().StringVarP(&expWinner, "winner", "w", "", "Name or id of the winning variant")
}

// parseVariants turns repeated name=weight[,control] flags into variant specs.
func parseVariants(flags []string) ([]engine.VariantSpec, error) {
	specs := make([]engine.VariantSpec, 0, len(flags))
	for _, flag := range flags {
		parts := strings.Split(flag, ",")
		nameWeight := strings.SplitN(parts[0], "=", 2)
		if len(nameWeight) != 2 || nameWeight[0] == "" {
			return nil, fmt.Errorf("invalid variant %q, expected name=weight[,control]", flag)
		}
		weight, err := strconv.Atoi(nameWeight[1])
		if err != nil {
			return nil, fmt.Errorf("invalid weight in variant %q: %w", flag, err)
		}

		spec := engine.VariantSpec{Name: nameWeight[0], Weight: weight}
		for _, mod := range parts[1:] {
			switch strings.TrimSpace(mod) {
			case "control":
				spec.IsControl = true
			case "":
			default:
				return nil, fmt.Errorf("unknown variant modifier %q in %q", mod, flag)
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// resolveExperiment looks an experiment up by name, falling back to id.
func resolveExperiment(ctx context.Context, app *AppContext, ref string) (*domain.Experiment, error) {
	exp, err := app.Service.GetExperimentByName(ctx, ref)
	if err == nil {
		return exp, nil
	}
	exp, idErr := app.Service.GetExperiment(ctx, ref)
	if idErr != nil {
		return nil, fmt.Errorf("experiment %q not found", ref)
	}
	return exp, nil
}

func runExperimentCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	variants, err := parseVariants(expVariants)
	if err != nil {
		return err
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	spec := engine.CreateSpec{
		Name:           args[0],
		Feature:        expFeature,
		Variants:       variants,
		TrackedMetrics: expMetrics,
		Targeting: domain.Targeting{
			TenantAllowList: expTenants,
			RoleAllowList:   expRoles,
		},
	}
	if expPercentage != 100 {
		pct := expPercentage
		spec.Targeting.Percentage = &pct
	}

	exp, err := app.Service.CreateExperiment(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}

	fmt.Printf("Created draft experiment %q (%s)\n", exp.Name, exp.ID)
	return nil
}

func runExperimentList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	experiments, err := app.Service.ListExperiments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list experiments: %w", err)
	}

	if len(experiments) == 0 {
		fmt.Println("No experiments found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFEATURE\tSTATUS\tVARIANTS\tSTARTED\tENDED")
	fmt.Fprintln(w, "----\t-------\t------\t--------\t-------\t-----")

	for _, exp := range experiments {
		names := make([]string, len(exp.Variants))
		for i, v := range exp.Variants {
			names[i] = fmt.Sprintf("%s:%d", v.Name, v.Weight)
		}

		started, ended := "-", "-"
		if exp.StartedAt != nil {
			started = exp.StartedAt.Format("2006-01-02")
		}
		if exp.EndedAt != nil {
			ended = exp.EndedAt.Format("2006-01-02")
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			exp.Name, exp.Feature, exp.Status, strings.Join(names, " "), started, ended)
	}

	w.Flush()
	return nil
}

func runExperimentStart(cmd *cobra.Command, args []string) error {
	return runTransition(args[0], "Started", func(ctx context.Context, app *AppContext, id string) (*domain.Experiment, error) {
		return app.Service.StartExperiment(ctx, id)
	})
}

func runExperimentPause(cmd *cobra.Command, args []string) error {
	return runTransition(args[0], "Paused", func(ctx context.Context, app *AppContext, id string) (*domain.Experiment, error) {
		return app.Service.PauseExperiment(ctx, id)
	})
}

func runExperimentResume(cmd *cobra.Command, args []string) error {
	return runTransition(args[0], "Resumed", func(ctx context.Context, app *AppContext, id string) (*domain.Experiment, error) {
		return app.Service.ResumeExperiment(ctx, id)
	})
}

func runTransition(ref, verb string, fn func(context.Context, *AppContext, string) (*domain.Experiment, error)) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	exp, err := resolveExperiment(ctx, app, ref)
	if err != nil {
		return err
	}

	exp, err = fn(ctx, app, exp.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s experiment: %s\n", verb, exp.Name)
	return nil
}

func runExperimentComplete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	exp, err := resolveExperiment(ctx, app, args[0])
	if err != nil {
		return err
	}

	var winnerID *string
	if expWinner != "" {
		for _, v := range exp.Variants {
			if v.Name == expWinner || v.ID == expWinner {
				id := v.ID
				winnerID = &id
				break
			}
		}
		if winnerID == nil {
			return fmt.Errorf("variant %q not found in experiment %q", expWinner, exp.Name)
		}
	}

	exp, err = app.Service.CompleteExperiment(ctx, exp.ID, winnerID)
	if err != nil {
		return err
	}

	if exp.WinnerVariantID != nil {
		fmt.Printf("Completed experiment %s with winner %s\n", exp.Name, *exp.WinnerVariantID)
	} else {
		fmt.Printf("Completed experiment %s\n", exp.Name)
	}
	return nil
}

func runExperimentResults(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	exp, err := resolveExperiment(ctx, app, args[0])
	if err != nil {
		return err
	}

	results, err := app.Service.ComputeResults(ctx, exp.ID)
	if err != nil {
		return fmt.Errorf("failed to compute results: %w", err)
	}

	fmt.Printf("Experiment: %s (%s)\n\n", exp.Name, exp.Status)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tPARTICIPANTS\tCONVERSION\tCONFIDENCE")
	fmt.Fprintln(w, "-------\t------------\t----------\t----------")
	for _, v := range results.Variants {
		name := v.VariantName
		if v.IsControl {
			name += " (control)"
		}
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.2f\n",
			name, v.Participants, v.ConversionRate, v.Significance)
	}
	w.Flush()

	for _, p := range results.Performance {
		if len(p.Averages) == 0 {
			continue
		}
		fmt.Printf("\n%s averages:\n", p.VariantName)
		for metric, avg := range p.Averages {
			fmt.Printf("  %s: %.3f\n", metric, avg)
		}
	}

	fmt.Println()
	if results.WinnerVariantID != nil {
		fmt.Printf("Winner: %s\n", *results.WinnerVariantID)
	}
	fmt.Println(results.Recommendation)
	return nil
}
