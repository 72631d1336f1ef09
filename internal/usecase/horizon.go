package usecase

import (
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
)

// DaysPerYear is the fixed year length used for the horizon; leap days are ignored.
const DaysPerYear = 365

// CalculateHorizon returns (targetYear - year(lastDate)) * 365 daily steps
// starting the day after lastDate.
func CalculateHorizon(lastDate time.Time, targetYear int) (models.Horizon, error) {
	count := (targetYear - lastDate.Year()) * DaysPerYear
	if count <= 0 {
		return models.Horizon{}, fmt.Errorf("%w: target year %d is not after last observed year %d",
			models.ErrInvalidHorizon, targetYear, lastDate.Year())
	}

	dates := make([]time.Time, count)
	for i := range dates {
		dates[i] = lastDate.AddDate(0, 0, i+1)
	}
	return models.Horizon{Count: count, Dates: dates}, nil
}
