package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/ledger"
)

// Partition drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverERP      = "erp"
)

// PartitionConfig describes one bookkeeping partition.
type PartitionConfig struct {
	Label  string `yaml:"label"`
	Driver string `yaml:"driver"`
	// Path overrides the sqlite file location; relative paths resolve
	// against the data root.
	Path      string `yaml:"path,omitempty"`
	DSN       string `yaml:"dsn,omitempty"`
	Schema    string `yaml:"schema,omitempty"`
	CompanyID int64  `yaml:"company_id,omitempty"`
	// Active marks the partition the balance views read.
	Active bool `yaml:"active"`
	// Schedule marks partitions that feed the payment schedule.
	Schedule bool `yaml:"schedule"`
}

// LedgerFile is the YAML ledger configuration.
type LedgerFile struct {
	Partitions []PartitionConfig `yaml:"partitions"`
	// SignExceptions maps a ledger kind to classification codes and their
	// sign rule names ("as_recorded" or "inverted").
	SignExceptions map[string]map[string]string `yaml:"sign_exceptions"`
}

// LoadLedgerFile reads and validates the ledger configuration at path.
func LoadLedgerFile(path string) (*LedgerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger config: %w", err)
	}

	var file LedgerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger config %s: %w", path, err)
	}

	return &file, nil
}

// Validate checks partition labels, drivers and the active partition.
func (f *LedgerFile) Validate() error {
	seen := make(map[string]bool)
	active := 0

	for i, p := range f.Partitions {
		if p.Label == "" {
			return fmt.Errorf("partition #%d has no label", i+1)
		}
		if seen[p.Label] {
			return fmt.Errorf("duplicate partition label %q", p.Label)
		}
		seen[p.Label] = true

		switch p.Driver {
		case DriverSQLite:
		case DriverPostgres:
			if p.DSN == "" {
				return fmt.Errorf("partition %q: postgres driver needs a dsn", p.Label)
			}
		case DriverERP:
			if p.CompanyID == 0 {
				return fmt.Errorf("partition %q: erp driver needs a company_id", p.Label)
			}
			if p.Active {
				return fmt.Errorf("partition %q: erp partitions carry no ledger lines and cannot be active", p.Label)
			}
		default:
			return fmt.Errorf("partition %q: unknown driver %q", p.Label, p.Driver)
		}

		if p.Active {
			active++
		}
	}

	if active > 1 {
		return fmt.Errorf("%d partitions marked active, want at most one", active)
	}

	if _, err := f.Classifications(); err != nil {
		return err
	}

	return nil
}

// ActivePartition returns the partition the balance views read.
func (f *LedgerFile) ActivePartition() (*PartitionConfig, error) {
	for i := range f.Partitions {
		if f.Partitions[i].Active {
			return &f.Partitions[i], nil
		}
	}
	return nil, fmt.Errorf("no active partition configured")
}

// SchedulePartitions returns the partitions that feed the payment
// schedule, in file order.
func (f *LedgerFile) SchedulePartitions() []PartitionConfig {
	var out []PartitionConfig
	for _, p := range f.Partitions {
		if p.Schedule {
			out = append(out, p)
		}
	}
	return out
}

// Classifications returns the sign exception table of every view: the
// built-in defaults with the file's entries applied on top.
func (f *LedgerFile) Classifications() (map[ledger.Kind]ledger.Classifications, error) {
	tables := ledger.DefaultClassifications()

	for kindName, codes := range f.SignExceptions {
		kind := ledger.Kind(kindName)
		if !kind.Valid() {
			return nil, fmt.Errorf("sign_exceptions: unknown ledger kind %q", kindName)
		}
		for code, name := range codes {
			rule, err := ledger.ParseSignRule(name)
			if err != nil {
				return nil, fmt.Errorf("sign_exceptions.%s.%s: %w", kindName, code, err)
			}
			tables[kind][code] = rule
		}
	}

	return tables, nil
}
