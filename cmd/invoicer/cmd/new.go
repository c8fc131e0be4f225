package cmd

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/model"
)

var newEdits editFlags

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new draft",
	Long: `Create a draft dated today, due in 30 days, in USD with one blank item.

Examples:
  invoicer new -o draft.json
  invoicer new --set invoice_number=INV-002 --set currency=EUR --add-item 2`,
	Args: cobra.NoArgs,
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)
	newEdits.register(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	inv := model.NewDraft(time.Now(), uuid.NewString())
	inv, err := newEdits.apply(inv)
	if err != nil {
		return err
	}
	printVerbose("Created draft with %d item(s)\n", len(inv.Items))
	return writeInvoice(outputFile, inv)
}
