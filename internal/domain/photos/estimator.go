package photos

import (
	"math"

	"github.com/uniedit/photos/internal/model"
)

const (
	// daysPerMonth is the month length used for consumption rates.
	daysPerMonth = 30

	// YearsSentinel is reported when there is no consumption to extrapolate,
	// and is also the upper bound of every estimate.
	YearsSentinel = 99.0
)

// Estimator projects when an account will fill its limit.
type Estimator struct {
	clock Clock
}

// NewEstimator creates a new estimator.
func NewEstimator(clock Clock) *Estimator {
	if clock == nil {
		clock = RealClock{}
	}
	return &Estimator{clock: clock}
}

// Estimate extrapolates the account's average monthly consumption since creation.
// Accounts younger than a month are treated as one month old.
func (e *Estimator) Estimate(account *model.Account) model.Projection {
	ageMonths := e.clock.Now().Sub(account.CreatedAt).Hours() / 24 / daysPerMonth
	if ageMonths < 1 {
		ageMonths = 1
	}

	rate := float64(account.UsedBytes) / ageMonths
	remaining := account.LimitBytes - account.UsedBytes
	if remaining < 0 {
		remaining = 0
	}

	years := YearsSentinel
	if rate > 0 {
		years = float64(remaining) / rate / 12
		years = math.Min(math.Max(years, 0), YearsSentinel)
	}

	return model.Projection{
		YearsUntilFull:   math.Round(years*10) / 10,
		MonthlyRateBytes: int64(math.Round(rate)),
		UsedPercent:      account.UsedPercent(),
	}
}

