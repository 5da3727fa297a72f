package state

import (
	"path/filepath"
	"testing"
	"time"

	"execution/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	p1, err := NewPosition("P-2", filled("O-1", "E-1", schema.OrderSideBuy, "100000", "1.00000", 0))
	require.NoError(t, err)
	p2, err := NewPosition("P-1", filled("O-2", "E-2", schema.OrderSideSell, "5000", "1.00000", 0))
	require.NoError(t, err)
	a, err := NewAccount(accountState("FXCM-1", "100000"))
	require.NoError(t, err)

	snap := BuildSnapshot(time.Now(), []*Position{p1, p2}, []*Account{a})
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, schema.PositionID("P-1"), snap.Positions[0].PositionID)
	assert.Equal(t, schema.MarketPositionShort, snap.Positions[0].MarketPosition)

	path := filepath.Join(t.TempDir(), "snap", "state.json")
	require.NoError(t, WriteSnapshot(path, snap))
	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.NoError(t, CompareSnapshots(snap, loaded))

	require.NoError(t, p2.Apply(filled("O-3", "E-3", schema.OrderSideBuy, "5000", "1.00000", time.Second)))
	changed := BuildSnapshot(time.Now(), []*Position{p1, p2}, []*Account{a})
	assert.Error(t, CompareSnapshots(snap, changed))
}
