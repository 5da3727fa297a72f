package state

import (
	"testing"

	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountState(id schema.AccountID, cash string) schema.AccountStateEvent {
	return schema.AccountStateEvent{
		Header:                schema.NewHeader(testTime),
		AccountID:             id,
		Currency:              "USD",
		CashBalance:           dec(cash),
		CashStartDay:          dec(cash),
		CashActivityDay:       dec("0"),
		MarginUsedLiquidation: dec("0"),
		MarginUsedMaintenance: dec("2500"),
		MarginRatio:           dec("0"),
		MarginCallStatus:      "N",
	}
}

func TestAccountReplacedWholesale(t *testing.T) {
	a, err := NewAccount(accountState("FXCM-1", "100000"))
	require.NoError(t, err)
	assert.True(t, dec("100000").Equal(a.CashBalance()))
	assert.True(t, dec("97500").Equal(a.FreeEquity()))

	next := accountState("FXCM-1", "90000")
	next.MarginCallStatus = "Y"
	require.NoError(t, a.Apply(next))
	assert.True(t, dec("90000").Equal(a.CashBalance()))
	assert.Equal(t, "Y", a.MarginCallStatus())
	assert.Equal(t, 2, a.EventCount())
}

func TestAccountRejectsForeignEvent(t *testing.T) {
	a, err := NewAccount(accountState("FXCM-1", "100000"))
	require.NoError(t, err)
	require.ErrorIs(t, a.Apply(accountState("FXCM-2", "1")), exception.ErrAccountIDMismatch)

	_, err = NewAccount(accountState("", "1"))
	require.ErrorIs(t, err, exception.ErrInvalidArgument)

	_, err = RestoreAccount(nil)
	require.ErrorIs(t, err, exception.ErrAccountEmptyHistory)
}
