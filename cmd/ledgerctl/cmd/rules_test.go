package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/rulestore"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

func TestDeleteRules(t *testing.T) {
	st, err := rulestore.Open(filepath.Join(t.TempDir(), "rules.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Put(schedule.Rule{CounterpartyCode: "ACME", FixedOffsetDays: 30}))
	require.NoError(t, st.Put(schedule.Rule{CounterpartyCode: "GLOBEX", FixedOffsetDays: 45}))
	require.NoError(t, st.Put(schedule.Rule{CounterpartyCode: "INITECH", FixedOffsetDays: 10}))

	deleted, err := deleteRules(st, []string{"ACME", "UNKNOWN", "GLOBEX"})
	assert.Equal(t, 2, deleted)
	assert.ErrorIs(t, err, rulestore.ErrNotFound)
	assert.Contains(t, err.Error(), "UNKNOWN")

	rules, err := st.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Contains(t, rules, "INITECH")
}
