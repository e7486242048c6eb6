package photos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uniedit/photos/internal/model"
)

func TestEstimator_Estimate(t *testing.T) {
	const day = 24 * time.Hour

	tests := []struct {
		name      string
		age       time.Duration
		used      int64
		limit     int64
		wantYears float64
		wantRate  int64
	}{
		{
			name:      "no usage yields sentinel",
			age:       day,
			used:      0,
			limit:     1000,
			wantYears: YearsSentinel,
			wantRate:  0,
		},
		{
			name:      "young account counts as one month",
			age:       day,
			used:      100,
			limit:     1300,
			wantYears: 1,
			wantRate:  100,
		},
		{
			name:      "rate over account age",
			age:       60 * day,
			used:      600,
			limit:     3600,
			wantYears: 0.8,
			wantRate:  300,
		},
		{
			name:      "full account",
			age:       90 * day,
			used:      1000,
			limit:     1000,
			wantYears: 0,
			wantRate:  333,
		},
		{
			name:      "over limit clamps at zero",
			age:       30 * day,
			used:      2000,
			limit:     1000,
			wantYears: 0,
			wantRate:  2000,
		},
		{
			name:      "slow growth is capped",
			age:       30 * day,
			used:      1,
			limit:     5 * gib,
			wantYears: YearsSentinel,
			wantRate:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newStubClock(testEpoch.Add(tt.age))
			est := NewEstimator(clock)

			p := est.Estimate(&model.Account{
				AccountID:  "acc",
				UsedBytes:  tt.used,
				LimitBytes: tt.limit,
				CreatedAt:  testEpoch,
			})

			assert.Equal(t, tt.wantYears, p.YearsUntilFull)
			assert.Equal(t, tt.wantRate, p.MonthlyRateBytes)
			assert.GreaterOrEqual(t, p.YearsUntilFull, 0.0)
			assert.LessOrEqual(t, p.YearsUntilFull, YearsSentinel)
		})
	}
}

func TestEstimator_UsedPercent(t *testing.T) {
	est := NewEstimator(newStubClock(testEpoch))
	p := est.Estimate(&model.Account{UsedBytes: 250, LimitBytes: 1000, CreatedAt: testEpoch})
	assert.Equal(t, 25.0, p.UsedPercent)
}

func TestEstimator_MonotonicInUsage(t *testing.T) {
	const day = 24 * time.Hour

	for _, age := range []time.Duration{day, 45 * day, 400 * day} {
		est := NewEstimator(newStubClock(testEpoch.Add(age)))
		limit := int64(5 * gib)

		prev := YearsSentinel
		for used := int64(0); used <= limit+gib; used += 64 * 1024 * 1024 {
			p := est.Estimate(&model.Account{UsedBytes: used, LimitBytes: limit, CreatedAt: testEpoch})
			assert.LessOrEqual(t, p.YearsUntilFull, prev, "age=%s used=%d", age, used)
			prev = p.YearsUntilFull
		}
		assert.Equal(t, 0.0, prev)
	}
}
