package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"buckets/internal/core"
)

func newAllocateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "allocate <amount>",
		Short:   "Print how a weekly income is split across buckets",
		Example: "  buckets allocate 1234.56",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			income, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}
			allocs, err := core.Allocate(income)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "Bucket\tShare\tAmount\t")
			// Share is the effective one; the last bucket takes the remainder.
			for _, a := range allocs {
				share := a.Amount.Decimal().Div(income.Decimal()).Shift(2)
				fmt.Fprintf(tw, "%s\t%s%%\t%s\t\n", a.Bucket.Label(), share.StringFixed(1), a.Amount)
			}
			fmt.Fprintf(tw, "Total\t\t%s\t\n", income)
			return tw.Flush()
		},
	}
}
