package analytics

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparePeriodsWithoutPredecessor(t *testing.T) {
	cmp := ComparePeriods(d(1000), nil, d(0))
	assert.False(t, cmp.Exists)
	assert.Nil(t, cmp.DifferencePct)
	assert.Nil(t, cmp.Previous)
	assert.True(t, d(1000).Equal(cmp.Current))
}

func TestComparePeriodsDifference(t *testing.T) {
	prev := &Period{ID: uuid.New(), Name: "Septiembre"}
	cmp := ComparePeriods(d(1200), prev, d(1000))
	require.True(t, cmp.Exists)
	require.NotNil(t, cmp.DifferencePct)
	assert.InDelta(t, 20, *cmp.DifferencePct, 1e-9)
	assert.Equal(t, prev.ID, *cmp.PeriodID)
	assert.Equal(t, "Septiembre", cmp.PeriodName)

	cmp = ComparePeriods(d(800), prev, d(1000))
	assert.InDelta(t, -20, *cmp.DifferencePct, 1e-9)

	cmp = ComparePeriods(d(800), prev, d(0))
	assert.InDelta(t, 100, *cmp.DifferencePct, 1e-9)
}
