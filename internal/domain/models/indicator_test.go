package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicatorSetMarshalsNaNAsNull(t *testing.T) {
	set := IndicatorSet{
		Instrument: "WTI",
		Timestamps: []time.Time{
			time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC),
		},
		Series: map[string][]float64{
			"SMA_2": {math.NaN(), 60.5, 61.5},
		},
	}

	raw, err := json.Marshal(&set)
	require.NoError(t, err)

	var decoded struct {
		Instrument string               `json:"instrument"`
		Series     map[string][]*float64 `json:"series"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "WTI", decoded.Instrument)

	vals := decoded.Series["SMA_2"]
	require.Len(t, vals, 3)
	assert.Nil(t, vals[0])
	require.NotNil(t, vals[1])
	assert.Equal(t, 60.5, *vals[1])
}

func TestIndicatorSetLastSkipsNaN(t *testing.T) {
	set := IndicatorSet{
		Series: map[string][]float64{
			"RSI_14": {math.NaN(), 55.0, math.NaN()},
		},
	}

	v, ok := set.Last("RSI_14")
	require.True(t, ok)
	assert.Equal(t, 55.0, v)

	_, ok = set.Last("missing")
	assert.False(t, ok)
}
