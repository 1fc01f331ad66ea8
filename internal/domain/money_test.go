package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noirlabs/noir/internal/domain"
)

func Test_Money_AddSub(t *testing.T) {
	a := domain.MustMoney("10.50", "USD")
	b := domain.MustMoney("4.25", "usd")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount.Equal(dec("14.75")))
	assert.Equal(t, "USD", sum.Currency)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount.Equal(dec("6.25")))
}

func Test_Money_CurrencyMismatch(t *testing.T) {
	usd := domain.MustMoney("10.00", "USD")
	eur := domain.MustMoney("10.00", "EUR")

	_, err := usd.Add(eur)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = usd.Sub(eur)
	require.Error(t, err)
}

func Test_Money_UntaggedZeroAdoptsCurrency(t *testing.T) {
	var zero domain.Money
	usd := domain.MustMoney("3.00", "USD")

	sum, err := zero.Add(usd)
	require.NoError(t, err)
	assert.Equal(t, "USD", sum.Currency)
	assert.True(t, sum.Amount.Equal(dec("3.00")))
}

func Test_Money_MulQuantity(t *testing.T) {
	price := domain.MustMoney("18.50", "USD")
	total := price.MulQuantity(3)
	assert.True(t, total.Amount.Equal(dec("55.50")), "got %s", total)
}

func Test_NewMoney_RequiresCurrency(t *testing.T) {
	_, err := domain.NewMoney(dec("1.00"), "   ")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func Test_NewQuantity_RejectsNonPositive(t *testing.T) {
	for _, n := range []int32{0, -1, -100} {
		_, err := domain.NewQuantity(n)
		require.Error(t, err, "quantity %d", n)
	}

	q, err := domain.NewQuantity(5)
	require.NoError(t, err)
	assert.Equal(t, int32(5), q.Int32())
}
