// Package pathutil provides centralized path management for partition
// ledgers and the rule store.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LedgerFile is the file name of a partition's SQLite ledger.
const LedgerFile = "ledger.db"

// PathResolver manages paths under the data root.
type PathResolver struct {
	dataRoot  string
	rulesPath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// DataRoot holds one directory per partition (e.g., ./data/tokyo/ledger.db)
	DataRoot string
	// RulesPath is the bbolt file holding counterparty rules
	RulesPath string
}

// New creates a new PathResolver with the given configuration.
// If RulesPath is empty, it defaults to {DataRoot}/rules.db
func New(config Config) *PathResolver {
	rulesPath := config.RulesPath
	if rulesPath == "" {
		rulesPath = filepath.Join(config.DataRoot, "rules.db")
	}

	return &PathResolver{
		dataRoot:  config.DataRoot,
		rulesPath: rulesPath,
	}
}

// GetDataRoot returns the data root directory.
func (p *PathResolver) GetDataRoot() string {
	return p.dataRoot
}

// GetRulesPath returns the rule store file path.
func (p *PathResolver) GetRulesPath() string {
	return p.rulesPath
}

// GetLedgerPath returns the ledger path of a partition.
// Example: ./data/tokyo/ledger.db
func (p *PathResolver) GetLedgerPath(label string) (string, error) {
	if label == "" || label == "." || label == ".." || strings.ContainsAny(label, `/\`) {
		return "", fmt.Errorf("invalid partition label: %q", label)
	}
	return filepath.Join(p.dataRoot, label, LedgerFile), nil
}

// ResolvePath returns path unchanged when absolute, otherwise relative to
// the data root. An empty path stays empty.
func (p *PathResolver) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.dataRoot, path)
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
