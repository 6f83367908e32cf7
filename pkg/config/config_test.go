package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/ledger"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LEDGER_CONFIG", "LEDGER_DATA_ROOT", "RULES_DB_PATH", "REDIS_ADDR", "REDIS_DB", "BALANCE_CACHE_TTL", "PAST_DUE_POLICY", "ERP_API_URL", "HTTP_ADDR", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./config/ledger.yaml", cfg.LedgerConfig)
	assert.Equal(t, "./data", cfg.DataRoot)
	assert.Empty(t, cfg.RulesPath)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "drop", cfg.PastDuePolicy)
	assert.Equal(t, "http://localhost:8080", cfg.ERP.APIURL)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.False(t, cfg.Debug)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("BALANCE_CACHE_TTL", "30s")
	t.Setenv("PAST_DUE_POLICY", "flag")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "flag", cfg.PastDuePolicy)
	assert.True(t, cfg.Debug)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"REDIS_DB", "two"},
		{"BALANCE_CACHE_TTL", "soon"},
		{"BALANCE_CACHE_TTL", "-1m"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ERP_CLIENT_ID=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ERP_CLIENT_ID") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ERP.ClientID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		LedgerConfig: "ledger.yaml",
		ERP:          ERPConfig{APIURL: "http://erp"},
	}

	tests := []struct {
		name     string
		required [][]string
		wantErr  bool
	}{
		{"nothing required", nil, false},
		{"set value", [][]string{{"ledgerConfig"}, {"erp", "apiUrl"}}, false},
		{"missing token", [][]string{{"erp", "accessToken"}}, true},
		{"missing redis", [][]string{{"redis", "addr"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cfg.Validate(tt.required...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	cfg.ERP.ClientID = "id"
	assert.NoError(t, cfg.Validate([]string{"erp", "accessToken"}))
}

func writeLedgerFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLedgerFile(t *testing.T) {
	path := writeLedgerFile(t, `
partitions:
  - label: fy2026
    driver: sqlite
    active: true
    schedule: true
  - label: fy2025
    driver: postgres
    dsn: postgres://localhost/erp
    schema: fy2025
    schedule: true
  - label: hq
    driver: erp
    company_id: 1
sign_exceptions:
  stock:
    ADJ: inverted
  bank_account:
    TRF: as_recorded
`)

	file, err := LoadLedgerFile(path)
	require.NoError(t, err)

	active, err := file.ActivePartition()
	require.NoError(t, err)
	assert.Equal(t, "fy2026", active.Label)

	sched := file.SchedulePartitions()
	require.Len(t, sched, 2)
	assert.Equal(t, "fy2025", sched[1].Label)

	tables, err := file.Classifications()
	require.NoError(t, err)
	assert.Equal(t, ledger.SignInverted, tables[ledger.KindStock].Rule("ADJ"))
	assert.Equal(t, ledger.SignInverted, tables[ledger.KindStock].Rule(ledger.DefaultTransferCode))
	assert.Equal(t, ledger.SignAsRecorded, tables[ledger.KindBankAccount].Rule(ledger.DefaultTransferCode))
	assert.Equal(t, ledger.SignAsRecorded, tables[ledger.KindCounterparty].Rule(ledger.DefaultTransferCode))
}

func TestLoadLedgerFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"duplicate label", `
partitions:
  - {label: a, driver: sqlite}
  - {label: a, driver: sqlite}
`},
		{"unknown driver", `
partitions:
  - {label: a, driver: mysql}
`},
		{"two active", `
partitions:
  - {label: a, driver: sqlite, active: true}
  - {label: b, driver: sqlite, active: true}
`},
		{"postgres without dsn", `
partitions:
  - {label: a, driver: postgres}
`},
		{"active erp", `
partitions:
  - {label: a, driver: erp, company_id: 1, active: true}
`},
		{"unknown kind", `
sign_exceptions:
  payroll:
    X: inverted
`},
		{"unknown rule", `
sign_exceptions:
  stock:
    X: sideways
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLedgerFile(writeLedgerFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestActivePartition_None(t *testing.T) {
	file := &LedgerFile{Partitions: []PartitionConfig{{Label: "a", Driver: DriverSQLite, Schedule: true}}}
	_, err := file.ActivePartition()
	assert.Error(t, err)
}
