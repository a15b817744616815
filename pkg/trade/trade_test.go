package trade_test

import (
	"regexp"
	"testing"

	"github.com/adiom-data/wanverify/pkg/trade"
	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCUSIP(t *testing.T) {
	// well known issues
	for _, c := range []string{"037833100", "594918104", "38259P508", "68389X105"} {
		assert.True(t, trade.ValidCUSIP(c), c)
	}
	assert.False(t, trade.ValidCUSIP("037833101"))
	assert.False(t, trade.ValidCUSIP("03783310"))
	assert.False(t, trade.ValidCUSIP("03783310a"))
}

func TestGenerator(t *testing.T) {
	g := trade.NewGenerator(42)
	price := regexp.MustCompile(`^\d{1,3}\.\d{2}$`)
	for i := 0; i < 100; i++ {
		tr := g.Trade("7")
		assert.Equal(t, "7", tr.ID)
		assert.True(t, trade.ValidCUSIP(tr.CUSIP), tr.CUSIP)
		assert.GreaterOrEqual(t, tr.Shares, 0)
		assert.Less(t, tr.Shares, 100)
		assert.Regexp(t, price, tr.Price)
	}

	// same seed, same sequence
	a := trade.NewGenerator(7)
	b := trade.NewGenerator(7)
	assert.Equal(t, a.Trade("1"), b.Trade("1"))
	assert.Equal(t, a.CUSIP(), b.CUSIP())
}

func TestDocument(t *testing.T) {
	tr := trade.Trade{ID: "3", CUSIP: "037833100", Shares: 15, Price: "101.50"}
	d, err := tr.Document()
	require.NoError(t, err)
	assert.Equal(t, iface.Document{"id": "3", "cusip": "037833100", "shares": 15.0, "price": "101.50"}, d)
	assert.Equal(t, "Trade(id=3, cusip=037833100, shares=15, price=101.50)", tr.String())
}
