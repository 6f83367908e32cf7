package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/cache"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/config"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/db"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/erp"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/ledger"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/pathutil"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/pgstore"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/rulestore"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// app owns the stores opened for one command run.
type app struct {
	cfg    *config.Config
	ledger *config.LedgerFile
	paths  *pathutil.PathResolver
	logger *slog.Logger

	pools   map[string]*pgxpool.Pool
	erp     *erp.Client
	closers []func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(getConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate([]string{"ledgerConfig"}, []string{"dataRoot"}); err != nil {
		return nil, err
	}

	file, err := config.LoadLedgerFile(cfg.LedgerConfig)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		ledger: file,
		paths: pathutil.New(pathutil.Config{
			DataRoot:  cfg.DataRoot,
			RulesPath: cfg.RulesPath,
		}),
		logger: slog.Default(),
		pools:  make(map[string]*pgxpool.Pool),
	}, nil
}

// Close releases every store in reverse opening order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close store", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) pool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if p, ok := a.pools[dsn]; ok {
		return p, nil
	}
	p, err := pgstore.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	a.pools[dsn] = p
	a.closers = append(a.closers, func() error { p.Close(); return nil })
	return p, nil
}

func (a *app) sqliteConn(p config.PartitionConfig) (*db.Connection, error) {
	path := a.paths.ResolvePath(p.Path)
	if path == "" {
		var err error
		path, err = a.paths.GetLedgerPath(p.Label)
		if err != nil {
			return nil, err
		}
	}

	a.logger.Debug("opening partition ledger", "partition", p.Label, "path", path)

	conn, err := db.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)
	return conn, nil
}

func (a *app) erpClient() *erp.Client {
	if a.erp == nil {
		a.erp = erp.NewClient(erp.ClientConfig{
			APIURL:       a.cfg.ERP.APIURL,
			AccessToken:  a.cfg.ERP.AccessToken,
			ClientID:     a.cfg.ERP.ClientID,
			ClientSecret: a.cfg.ERP.ClientSecret,
		})
	}
	return a.erp
}

// lineReader opens the ledger of the active partition.
func (a *app) lineReader(ctx context.Context) (ledger.LineReader, error) {
	p, err := a.ledger.ActivePartition()
	if err != nil {
		return nil, err
	}

	switch p.Driver {
	case config.DriverSQLite:
		conn, err := a.sqliteConn(*p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ledger.ErrSourceUnavailable, p.Label, err)
		}
		return db.NewLedgerStore(conn), nil
	case config.DriverPostgres:
		pool, err := a.pool(ctx, p.DSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ledger.ErrSourceUnavailable, p.Label, err)
		}
		return pgstore.New(pool, p.Schema), nil
	}
	return nil, fmt.Errorf("partition %q: driver %q has no ledger lines", p.Label, p.Driver)
}

// balanceService builds the three balance views over the active
// partition, behind the Redis cache when one is configured.
func (a *app) balanceService(ctx context.Context) (*ledger.Service, error) {
	reader, err := a.lineReader(ctx)
	if err != nil {
		return nil, err
	}

	signs, err := a.ledger.Classifications()
	if err != nil {
		return nil, err
	}

	views := map[ledger.Kind]ledger.Balancer{
		ledger.KindCounterparty: ledger.NewCounterpartyView(reader, signs[ledger.KindCounterparty]),
		ledger.KindBankAccount:  ledger.NewBankAccountView(reader, signs[ledger.KindBankAccount]),
		ledger.KindStock:        ledger.NewStockView(reader, signs[ledger.KindStock]),
	}

	if a.cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cache.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			a.logger.Warn("balance cache disabled", "addr", a.cfg.Redis.Addr, "error", err)
		} else {
			a.closers = append(a.closers, client.Close)
			bc := cache.NewBalanceCache(client, a.cfg.Redis.TTL, a.logger)
			for kind, view := range views {
				views[kind] = bc.Wrap(kind, view)
			}
		}
	}

	return ledger.NewService(views), nil
}

// scheduleSources opens every schedule partition. A partition that cannot
// be opened still takes part and reports itself unavailable when read.
func (a *app) scheduleSources(ctx context.Context) []schedule.Partition {
	var partitions []schedule.Partition
	for _, p := range a.ledger.SchedulePartitions() {
		src, err := a.openSource(ctx, p)
		if err != nil {
			a.logger.Warn("partition unavailable", "partition", p.Label, "error", err)
			src = unavailableSource{err: err}
		}
		partitions = append(partitions, schedule.Partition{Label: p.Label, Source: src})
	}
	return partitions
}

func (a *app) openSource(ctx context.Context, p config.PartitionConfig) (schedule.Source, error) {
	switch p.Driver {
	case config.DriverSQLite:
		conn, err := a.sqliteConn(p)
		if err != nil {
			return nil, err
		}
		return db.NewInvoiceStore(conn), nil
	case config.DriverPostgres:
		pool, err := a.pool(ctx, p.DSN)
		if err != nil {
			return nil, err
		}
		return pgstore.New(pool, p.Schema), nil
	case config.DriverERP:
		return erp.NewSource(a.erpClient(), p.CompanyID), nil
	}
	return nil, fmt.Errorf("unknown driver %q", p.Driver)
}

// openRules returns a rule source that opens the store read-only for each
// schedule, so a running server never blocks "rules import". A read that
// fails leaves that schedule's due dates unadjusted.
func (a *app) openRules() schedule.RuleSource {
	return rulestore.NewReader(a.paths.GetRulesPath(), a.logger)
}

func (a *app) scheduleService(ctx context.Context, policyOverride string) (*schedule.Service, error) {
	policyName := a.cfg.PastDuePolicy
	if policyOverride != "" {
		policyName = policyOverride
	}
	policy, err := schedule.ParsePastDuePolicy(policyName)
	if err != nil {
		return nil, err
	}

	return schedule.NewService(
		a.scheduleSources(ctx),
		a.openRules(),
		schedule.NewMerger(policy, a.logger),
		a.logger,
	), nil
}

type unavailableSource struct{ err error }

func (u unavailableSource) ReadEvents(context.Context) ([]schedule.PartitionEvent, error) {
	return nil, u.err
}

func (u unavailableSource) Counterparties(context.Context) (map[int64]string, error) {
	return nil, u.err
}
