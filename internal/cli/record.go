package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record <experiment>",
	Short: "Record an outcome metric sample",
	Long: `Record one metric observation for a variant.

Examples:
  variant record "checkout-copy" --variant short-copy --metric completion_rate --value 1 --caller user-123`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

var (
	recordVariant string
	recordMetric  string
	recordValue   float64
	recordCaller  string
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVarP(&recordVariant, "variant", "v", "", "Name or id of the variant")
	recordCmd.Flags().StringVarP(&recordMetric, "metric", "m", "", "Metric name")
	recordCmd.Flags().Float64Var(&recordValue, "value", 0, "Observed value")
	recordCmd.Flags().StringVarP(&recordCaller, "caller", "c", "", "Caller key the observation belongs to")
	_ = recordCmd.MarkFlagRequired("variant")
	_ = recordCmd.MarkFlagRequired("metric")
	_ = recordCmd.MarkFlagRequired("value")
}

func runRecord(cmd *cobra.Command, args []string) error {
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

	variantID := ""
	for _, v := range exp.Variants {
		if v.Name == recordVariant || v.ID == recordVariant {
			variantID = v.ID
			break
		}
	}
	if variantID == "" {
		return fmt.Errorf("variant %q not found in experiment %q", recordVariant, exp.Name)
	}

	if err := app.Service.RecordMetric(ctx, exp.ID, variantID, recordMetric, recordValue, recordCaller); err != nil {
		return err
	}

	fmt.Printf("Recorded %s=%g for %s/%s\n", recordMetric, recordValue, exp.Name, recordVariant)
	return nil
}
