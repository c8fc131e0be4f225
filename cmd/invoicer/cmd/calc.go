package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	calcEdits   editFlags
	calcInPlace bool
)

var calcCmd = &cobra.Command{
	Use:   "calc <draft.json>",
	Short: "Apply edits to a draft and recompute its totals",
	Long: `Apply field and item edits to a draft and recompute item amounts,
subtotal, discount, tax and total. Malformed numbers fall back to their
defaults (quantity 1, everything else 0) instead of failing.

Invoice keys: invoice_number, date, due_date, currency, from_name, from_email,
from_address, from_city, from_postal_code, from_country, from_logo, to_name,
to_email, to_address, to_city, to_postal_code, to_country, discount_type,
discount_value, tax_rate, notes, terms, signature_name, signature_image.

Item keys: description, quantity, rate.

Examples:
  invoicer calc draft.json --set tax_rate=8.5 --set discount_value=10
  invoicer calc draft.json --in-place --add-item 1 --item 1:rate=85 --item 1:quantity=20
  cat draft.json | invoicer calc - --remove-item 0`,
	Args: cobra.ExactArgs(1),
	RunE: runCalc,
}

func init() {
	rootCmd.AddCommand(calcCmd)
	calcEdits.register(calcCmd)
	calcCmd.Flags().BoolVarP(&calcInPlace, "in-place", "i", false, "Write the result back to the draft file")
}

func runCalc(cmd *cobra.Command, args []string) error {
	inv, err := readInvoice(args[0])
	if err != nil {
		return err
	}
	inv, err = calcEdits.apply(inv)
	if err != nil {
		return err
	}

	target := outputFile
	if calcInPlace {
		if args[0] == "-" {
			return fmt.Errorf("--in-place needs a draft file")
		}
		target = args[0]
	}
	printVerbose("Subtotal %s, discount %s, tax %s, total %s\n", inv.Subtotal, inv.DiscountAmount, inv.TaxAmount, inv.Total)
	return writeInvoice(target, inv)
}
