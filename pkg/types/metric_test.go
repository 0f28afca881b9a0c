package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetric(t *testing.T) {
	t.Run("defined", func(t *testing.T) {
		m := Defined(0.1234)
		v, ok := m.Value()
		assert.True(t, ok)
		assert.Equal(t, 0.1234, v)

		b, err := json.Marshal(m)
		require.NoError(t, err)
		assert.Equal(t, "0.1234", string(b))
	})

	t.Run("undefined marshals as a string", func(t *testing.T) {
		b, err := json.Marshal(Undefined())
		require.NoError(t, err)
		assert.Equal(t, `"undefined"`, string(b))
		assert.Equal(t, "undefined", Undefined().String())
	})

	t.Run("non finite values are undefined", func(t *testing.T) {
		assert.False(t, Defined(math.NaN()).IsDefined())
		assert.False(t, Defined(math.Inf(1)).IsDefined())
	})

	t.Run("zero is defined", func(t *testing.T) {
		assert.True(t, Defined(0).IsDefined())
	})

	t.Run("unmarshal", func(t *testing.T) {
		var res struct {
			IRR     Metric `json:"irr"`
			Payback Metric `json:"payback"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"irr":"undefined","payback":5.5}`), &res))
		assert.False(t, res.IRR.IsDefined())
		v, ok := res.Payback.Value()
		assert.True(t, ok)
		assert.Equal(t, 5.5, v)

		assert.Error(t, json.Unmarshal([]byte(`{"irr":"never"}`), &res))
	})
}

func TestDefaultFinancialResult(t *testing.T) {
	res := DefaultFinancialResult()
	assert.False(t, res.Evaluated)
	assert.False(t, res.InternalRateOfReturn.IsDefined())
	assert.False(t, res.PaybackYears.IsDefined())
	assert.False(t, res.DiscountedPaybackYears.IsDefined())

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"irr":"undefined"`)
	assert.Contains(t, string(b), `"cashFlow":[]`)
}
