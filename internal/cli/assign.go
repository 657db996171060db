package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/variantlab/variant/internal/domain"
)

var assignCmd = &cobra.Command{
	Use:   "assign <experiment>",
	Short: "Resolve the variant for a caller",
	Long: `Resolve and persist the variant a caller is assigned to.

The first request creates the assignment; every later request for the same
caller returns the same variant.

Examples:
  variant assign "checkout-copy" --user user-123
  variant assign "checkout-copy" --tenant acme --role admin`,
	Args: cobra.ExactArgs(1),
	RunE: runAssign,
}

var (
	callerUser   string
	callerTenant string
	callerRole   string
)

func init() {
	rootCmd.AddCommand(assignCmd)

	assignCmd.Flags().StringVarP(&callerUser, "user", "u", "", "Caller user id")
	assignCmd.Flags().StringVarP(&callerTenant, "tenant", "t", "", "Caller tenant id")
	assignCmd.Flags().StringVarP(&callerRole, "role", "r", "", "Caller role")
}

func runAssign(cmd *cobra.Command, args []string) error {
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

	caller := domain.CallerContext{
		UserID:   callerUser,
		TenantID: callerTenant,
		Role:     callerRole,
	}

	v, err := app.Service.GetVariant(ctx, exp.ID, caller)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", v.Name)
	if len(v.Config) > 0 {
		fmt.Printf("%s\n", v.Config)
	}
	return nil
}
