// Package rulestore keeps counterparty payment rules in a bbolt file,
// keyed by the counterparty's stable external code.
//
// bbolt locks the file: a writable Store holds an exclusive lock until it
// is closed, read-only stores share a lock. Long-running readers use Reader,
// which opens the file read-only for each read and closes it right after,
// so imports only wait for reads in flight.
package rulestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// ErrNotFound is returned when no rule exists for a code.
var ErrNotFound = errors.New("rule not found")

// BucketRules holds one JSON-encoded rule per counterparty code.
const BucketRules = "counterparty_rules"

// LockTimeout bounds how long Open and OpenReadOnly wait for the file lock.
const LockTimeout = time.Second

// Store is the bbolt-backed rule store.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens the rule store at path and creates its bucket.
// A nil logger uses slog.Default().
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: LockTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketRules)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketRules, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// OpenReadOnly opens an existing rule store for reading. Any number of
// read-only stores may be open at once. Put and Delete fail on them.
func OpenReadOnly(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: LockTimeout, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores rule under its counterparty code.
func (s *Store) Put(rule schedule.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketRules)).Put([]byte(rule.CounterpartyCode), data)
	})
}

// Delete removes the rule for code. It returns ErrNotFound when no rule
// is stored under code.
func (s *Store) Delete(code string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketRules))
		if b.Get([]byte(code)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(code))
	})
}

// Get returns the rule for code. A stored entry that cannot be decoded or
// fails validation returns schedule.ErrInvalidRule.
func (s *Store) Get(ctx context.Context, code string) (*schedule.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rule *schedule.Rule
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketRules))
		if b == nil {
			return ErrNotFound
		}
		data := b.Get([]byte(code))
		if data == nil {
			return ErrNotFound
		}

		r, err := decodeRule(code, data)
		if err != nil {
			return err
		}
		rule = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rule, nil
}

// All returns every valid rule. Malformed entries are logged and left out,
// so their counterparties fall back to unadjusted due dates.
func (s *Store) All(ctx context.Context) (schedule.Rules, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rules := make(schedule.Rules)
	err := s.db.View(func(tx *bolt.Tx) error {
		// A read-only store cannot create the bucket; missing means empty.
		b := tx.Bucket([]byte(BucketRules))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			code := string(k)
			rule, err := decodeRule(code, v)
			if err != nil {
				s.logger.Warn("skipping counterparty rule", "counterparty_code", code, "error", err)
				return nil
			}
			rules[code] = *rule
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return rules, nil
}

func decodeRule(code string, data []byte) (*schedule.Rule, error) {
	var rule schedule.Rule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", schedule.ErrInvalidRule, code, err)
	}
	if rule.CounterpartyCode == "" {
		rule.CounterpartyCode = code
	}
	if rule.CounterpartyCode != code {
		return nil, fmt.Errorf("%w: stored under %q but names %q", schedule.ErrInvalidRule, code, rule.CounterpartyCode)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Reader serves schedule reads from the rule store without holding its
// lock between reads.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the store at path. A nil logger uses
// slog.Default().
func NewReader(path string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{path: path, logger: logger}
}

// All opens the store read-only, returns every valid rule and closes it.
func (r *Reader) All(ctx context.Context) (schedule.Rules, error) {
	st, err := OpenReadOnly(r.path, r.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := st.Close(); err != nil {
			r.logger.Warn("failed to close rule store", "path", r.path, "error", err)
		}
	}()

	return st.All(ctx)
}
