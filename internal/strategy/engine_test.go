package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoBoard/internal/model"
)

func factor(t *testing.T, sig model.Signal, name string) model.FactorScore {
	t.Helper()
	for _, f := range sig.Factors {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("factor %q not found", name)
	return model.FactorScore{}
}

func TestEvaluate_Ranging(t *testing.T) {
	sig := Evaluate(model.ChartIndicators{
		LastPrice: 100, ChangePct: 0.5, High: 110, Low: 90,
		RSI: 50, RSIValid: true, MA20: 101, MA50: 99,
	})
	require.Len(t, sig.Factors, 4)
	assert.Equal(t, model.SignalHold, sig.Label)
	assert.Equal(t, 0.0, sig.Score)
}

func TestEvaluate_Bullish(t *testing.T) {
	sig := Evaluate(model.ChartIndicators{
		LastPrice: 120, ChangePct: 8, High: 125, Low: 100,
		RSI: 60, RSIValid: true, MA20: 115, MA50: 110,
	})
	assert.Equal(t, 1.0, factor(t, sig, "trend").Score)
	assert.Equal(t, 0.5, factor(t, sig, "momentum").Score)
	assert.Equal(t, model.SignalBuy, sig.Label)
}

func TestEvaluate_OverboughtAtHigh(t *testing.T) {
	sig := Evaluate(model.ChartIndicators{
		LastPrice: 125, ChangePct: 1, High: 125, Low: 100,
		RSI: 85, RSIValid: true, MA20: 120, MA50: 110,
	})
	assert.Equal(t, 1.5, factor(t, sig, "trend").Score)
	assert.Equal(t, -1.5, factor(t, sig, "rsi").Score)
	assert.Equal(t, -0.5, factor(t, sig, "position").Score)
	assert.Equal(t, model.SignalHold, sig.Label)
}

func TestEvaluate_BearishSell(t *testing.T) {
	sig := Evaluate(model.ChartIndicators{
		LastPrice: 90, ChangePct: -4, High: 110, Low: 89.5,
		RSI: 45, RSIValid: true, MA20: 95, MA50: 100,
	})
	assert.Equal(t, -1.0, factor(t, sig, "trend").Score)
	assert.Equal(t, model.SignalSell, sig.Label)
}

func TestEvaluate_CapitulationForcesSell(t *testing.T) {
	sig := Evaluate(model.ChartIndicators{
		LastPrice: 80, ChangePct: -7, High: 100, Low: 70,
		RSI: 25, RSIValid: true,
	})
	assert.Equal(t, model.SignalSell, sig.Label)
	assert.Equal(t, "not enough history for MA20/MA50", factor(t, sig, "trend").Commentary)
}

func TestEvaluate_RSIUnavailable(t *testing.T) {
	sig := Evaluate(model.ChartIndicators{LastPrice: 10, High: 10, Low: 10})
	assert.Equal(t, 0.0, factor(t, sig, "rsi").Score)
	assert.Equal(t, 0.0, factor(t, sig, "position").Score)
}
