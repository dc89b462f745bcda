package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) financeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Transactions, categories and receipts",
	}
	cmd.AddCommand(a.transactionsCmd(), a.categoriesCmd(), a.receiptCmd())
	return cmd
}

func (a *app) finance(cmd *cobra.Command) (*service.FinanceService, error) {
	if err := a.connect(cmd.Context()); err != nil {
		return nil, err
	}
	return service.NewFinanceService(a.api, a.cfg.Display.Currency), nil
}

func (a *app) transactionsCmd() *cobra.Command {
	var (
		filter service.TransactionFilter
		txType string
	)

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.finance(cmd)
			if err != nil {
				return err
			}
			filter.Type = model.TransactionType(txType)

			page, err := svc.ListTransactions(cmd.Context(), filter)
			if err != nil {
				return present(err, "Could not load transactions.")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTYPE\tAMOUNT\tDESCRIPTION")
			for _, tx := range page.Data {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					tx.Date.Format("2006-01-02"), tx.Type, svc.Format(tx.Signed()), tx.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			sum := svc.Summarize(page.Data)
			p := page.Pagination
			fmt.Fprintf(cmd.OutOrStdout(), "\npage %d/%d (%d total)  income %s  expense %s  net %s\n",
				p.Page, max(p.TotalPages, 1), p.Total, sum.Income, sum.Expense, sum.Net)
			return nil
		},
	}

	cmd.Flags().IntVar(&filter.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "Page size")
	cmd.Flags().StringVar(&txType, "type", "", "Filter by income or expense")
	cmd.Flags().StringVar(&filter.CategoryID, "category", "", "Filter by category ID")
	return cmd
}

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.finance(cmd)
			if err != nil {
				return err
			}
			cats, err := svc.ListCategories(cmd.Context())
			if err != nil {
				return present(err, "Could not load categories.")
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE")
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Type)
			}
			return w.Flush()
		},
	}
}

func (a *app) receiptCmd() *cobra.Command {
	var transactionID string

	cmd := &cobra.Command{
		Use:   "receipt <file>",
		Short: "Upload a receipt image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.finance(cmd)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open receipt: %w", err)
			}
			defer f.Close()

			rc, err := svc.UploadReceipt(cmd.Context(), filepath.Base(args[0]), f, transactionID)
			if err != nil {
				return present(err, "Upload failed.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded receipt %s (%s)\n", rc.ID, rc.FileURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&transactionID, "transaction", "", "Attach to an existing transaction")
	return cmd
}
