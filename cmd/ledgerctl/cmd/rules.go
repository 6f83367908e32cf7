package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/config"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/pathutil"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/rulestore"
)

// rulesCmd groups the rule store commands.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage counterparty payment rules",
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <rules.yaml>",
	Short: "Import payment rules from a YAML file",
	Long: `Import payment rules into the rule store. Existing rules with the
same counterparty code are replaced. Invalid rules are reported and skipped.

Example:
  ledgerctl rules import config/rules.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runRulesImport,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored payment rules",
	Run:   runRulesList,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <code>...",
	Short: "Delete payment rules by counterparty code",
	Long: `Delete payment rules. Counterparties without a rule are paid on
their invoice date.

Example:
  ledgerctl rules delete ACME GLOBEX`,
	Args: cobra.MinimumNArgs(1),
	Run:  runRulesDelete,
}

func init() {
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesDeleteCmd)
}

// openRuleStore opens the configured rule store. Read-only stores share
// the file lock with a running server; writable ones wait for its reads.
func openRuleStore(readOnly bool) *rulestore.Store {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	paths := pathutil.New(pathutil.Config{
		DataRoot:  cfg.DataRoot,
		RulesPath: cfg.RulesPath,
	})

	path := paths.GetRulesPath()
	exitOnError(paths.EnsureParentDir(path), "failed to create rule store directory")

	slog.Debug("Opening rule store", "path", path, "read_only", readOnly)

	open := rulestore.Open
	if readOnly {
		open = rulestore.OpenReadOnly
	}
	st, err := open(path, slog.Default())
	exitOnError(err, "failed to open rule store")
	return st
}

func runRulesImport(cmd *cobra.Command, args []string) {
	st := openRuleStore(false)
	defer st.Close()

	res, err := st.Import(args[0])
	exitOnError(err, "failed to import rules")

	codes := make([]string, 0, len(res.Rejected))
	for code := range res.Rejected {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Printf("rejected %s: %v\n", code, res.Rejected[code])
	}

	fmt.Printf("Imported %d rules, rejected %d\n", res.Imported, len(res.Rejected))
	slog.Info("Rules imported", "file", args[0], "imported", res.Imported, "rejected", len(res.Rejected))
}

func runRulesList(cmd *cobra.Command, args []string) {
	st := openRuleStore(true)
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rules, err := st.All(ctx)
	exitOnError(err, "failed to list rules")

	codes := make([]string, 0, len(rules))
	for code := range rules {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Printf("%-14s  %-6s  %s\n", "COUNTERPARTY", "OFFSET", "WEEKDAY")
	for _, code := range codes {
		r := rules[code]
		weekday := "-"
		if r.TargetWeekday != nil {
			weekday = strconv.Itoa(*r.TargetWeekday)
		}
		fmt.Printf("%-14s  %-6d  %s\n", code, r.FixedOffsetDays, weekday)
	}
}

func runRulesDelete(cmd *cobra.Command, args []string) {
	st := openRuleStore(false)
	defer st.Close()

	deleted, err := deleteRules(st, args)
	fmt.Printf("Deleted %d rules\n", deleted)
	exitOnError(err, "failed to delete rules")

	slog.Info("Rules deleted", "count", deleted)
}

// deleteRules removes the rule of every code. Codes without a rule are
// reported together after the others are deleted.
func deleteRules(st *rulestore.Store, codes []string) (int, error) {
	var (
		deleted int
		errs    []error
	)
	for _, code := range codes {
		if err := st.Delete(code); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", code, err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
