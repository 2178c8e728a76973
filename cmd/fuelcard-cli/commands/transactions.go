package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"fuelcard-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fromFlag *string
var toFlag *string
var limitFlag *int

func init() {
	fromFlag = transactionsCmd.Flags().String("from", "", "Start of the date range (YYYY-MM-DD).")
	toFlag = transactionsCmd.Flags().String("to", "", "End of the date range (YYYY-MM-DD).")
	limitFlag = transactionsCmd.Flags().Int("limit", 10, "How many transactions to print, -1 for all.")
	transactionsCmd.MarkFlagRequired("from")
	transactionsCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(transactionsCmd)
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions --from <date> --to <date> [--limit <n>]",
	Short: "Extracts fuel purchases in a date range and prints them.",
	Run: func(cmd *cobra.Command, args []string) {
		from, err := time.Parse("2006-01-02", *fromFlag)
		if err != nil {
			serviceutil.Fatal("failed to parse --from", err)
		}
		to, err := time.Parse("2006-01-02", *toFlag)
		if err != nil {
			serviceutil.Fatal("failed to parse --to", err)
		}

		client := createClient(cmd.Context())

		t1 := time.Now()
		transactions, err := client.Transactions(cmd.Context(), from, to)
		if err != nil {
			serviceutil.Fatal("failed to extract transactions", err)
		}
		slog.Info(
			"extraction finished",
			"transactions", len(transactions),
			"seconds", time.Since(t1).Seconds(),
		)

		limit := *limitFlag
		if limit < 0 || limit > len(transactions) {
			limit = len(transactions)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Code", "Date", "Card", "Station", "Service", "Volume", "Sum"})
		for _, transaction := range transactions[:limit] {
			t.AppendRow(table.Row{
				transaction.Code,
				transaction.Date.Format("2006-01-02 15:04:05"),
				transaction.Card,
				transaction.Station.Name,
				transaction.Service,
				transaction.Volume,
				transaction.Sum,
			})
		}
		t.Render()

		fmt.Printf("%d transactions total\n", len(transactions))
	},
}
