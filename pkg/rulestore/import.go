package rulestore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// RulesFile is the YAML layout accepted by Import.
//
//	rules:
//	  - counterparty_code: ACME
//	    fixed_offset_days: 30
//	    target_weekday: 4   # Friday
type RulesFile struct {
	Rules []schedule.Rule `yaml:"rules"`
}

// LoadRulesFile parses a rules YAML file.
func LoadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &file, nil
}

// ImportResult reports what Import did.
type ImportResult struct {
	Imported int
	Rejected map[string]error
}

// Import stores every valid rule of the YAML file at path. Invalid rules
// are reported in the result and do not stop the import.
func (s *Store) Import(path string) (*ImportResult, error) {
	file, err := LoadRulesFile(path)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Rejected: make(map[string]error)}
	for i, rule := range file.Rules {
		if err := s.Put(rule); err != nil {
			key := rule.CounterpartyCode
			if key == "" {
				key = fmt.Sprintf("#%d", i+1)
			}
			result.Rejected[key] = err
			continue
		}
		result.Imported++
	}

	return result, nil
}
