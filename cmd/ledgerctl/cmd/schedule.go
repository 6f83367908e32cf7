package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

var (
	scheduleAsOf   string
	schedulePolicy string
)

// scheduleCmd represents the schedule command.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the forward payment schedule",
	Long: `Print the payment schedule merged across every schedule partition.

Due dates follow each counterparty's payment rule. Partitions that cannot
be read are skipped and listed at the end.

Example:
  ledgerctl schedule
  ledgerctl schedule --as-of 2026-01-31 --policy flag`,
	Run: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleAsOf, "as-of", "", "reference date (YYYY-MM-DD, default today)")
	scheduleCmd.Flags().StringVar(&schedulePolicy, "policy", "", "past-due policy: drop or flag (default from PAST_DUE_POLICY)")
}

func runSchedule(cmd *cobra.Command, args []string) {
	asOf := schedule.Day(time.Now())
	if scheduleAsOf != "" {
		d, err := schedule.ParseDay(scheduleAsOf)
		exitOnError(err, "invalid --as-of")
		asOf = d
	}

	a, err := newApp()
	exitOnError(err, "failed to load configuration")
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := a.scheduleService(ctx, schedulePolicy)
	exitOnError(err, "failed to build schedule service")

	result, err := svc.Schedule(ctx, asOf)
	exitOnError(err, "failed to build schedule")

	fmt.Printf("\n=== Payment schedule as of %s (%s) ===\n", result.AsOf.Format(schedule.DateLayout), result.Policy)
	fmt.Printf("%-10s  %-12s  %-12s  %-14s  %-20s  %s\n", "DUE", "BASE", "PARTITION", "COUNTERPARTY", "REFERENCE", "AMOUNT")
	for _, p := range result.Payments {
		due := p.DueDate.Format(schedule.DateLayout)
		if p.Overdue {
			due += "*"
		}
		fmt.Printf("%-10s  %-12s  %-12s  %-14s  %-20s  %s\n",
			due,
			p.BaseDate.Format(schedule.DateLayout),
			p.PartitionLabel,
			orDash(p.CounterpartyCode),
			orDash(p.Reference),
			p.Amount.StringFixed(2),
		)
	}

	if result.Unresolved > 0 {
		fmt.Printf("\nEvents without counterparty code: %d\n", result.Unresolved)
	}
	if len(result.Omitted) > 0 {
		fmt.Printf("Omitted (unavailable): %s\n", strings.Join(result.Omitted, ", "))
	}
	fmt.Println()

	slog.Info("Schedule built", "payments", len(result.Payments), "omitted", len(result.Omitted))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
