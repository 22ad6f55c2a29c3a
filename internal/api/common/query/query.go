package query

import (
	"time"

	"github.com/gofiber/fiber/v2"

	commonerrors "sensor-monitor-server/internal/api/common/errors"
	"sensor-monitor-server/internal/utils"
)

type parseQuery struct {
	Date string `query:"date,omitempty" json:"-"`
}

// History is the parsed form of the historical-browse query parameters.
type History struct {
	// Day is meaningful only when HasDate is set; otherwise the caller wants
	// the most recent readings.
	Day     time.Time
	HasDate bool
}

// ParseHistory validates the optional ?date=YYYY-MM-DD parameter.
func ParseHistory(c *fiber.Ctx) (History, error) {
	q := &parseQuery{}
	if err := c.QueryParser(q); err != nil {
		return History{}, commonerrors.ValidationErr("query", err.Error())
	}

	if q.Date == "" {
		return History{}, nil
	}

	day, err := utils.ParseDate(q.Date)
	if err != nil {
		return History{}, commonerrors.ValidationErr("date", "expected a calendar date such as 2024-07-01")
	}
	return History{Day: day, HasDate: true}, nil
}
