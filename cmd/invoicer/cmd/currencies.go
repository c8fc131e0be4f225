package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/currency"
)

var currenciesCmd = &cobra.Command{
	Use:   "currencies",
	Short: "List supported currencies",
	Long: `List the currency codes a draft may use, with their display symbol.

Examples:
  invoicer currencies -f table
  invoicer currencies -f csv -o currencies.csv`,
	Args: cobra.NoArgs,
	RunE: runCurrencies,
}

func init() {
	rootCmd.AddCommand(currenciesCmd)
}

func runCurrencies(cmd *cobra.Command, args []string) error {
	all := currency.All()
	return withOutput(outputFile, func(w io.Writer) error {
		switch outputFormat {
		case "table":
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tSYMBOL\tNAME")
			fmt.Fprintln(tw, "----\t------\t----")
			for _, c := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Code, c.Symbol, c.Name)
			}
			return tw.Flush()
		case "csv":
			cw := csv.NewWriter(w)
			_ = cw.Write([]string{"code", "symbol", "name"})
			for _, c := range all {
				_ = cw.Write([]string{c.Code, c.Symbol, c.Name})
			}
			cw.Flush()
			return cw.Error()
		default:
			return outputJSON(w, all)
		}
	})
}
