package server

import (
	"net/http"
	"time"

	"github.com/playperu/drawcast/internal/gameday"
)

// Window is a half-open [Start, End) interval in UTC.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ClockResponse is the response for GET /api/clock.
type ClockResponse struct {
	Zone           string    `json:"zone"`
	RolloverHour   int       `json:"rolloverHour"`
	Now            time.Time `json:"now"`
	GameDay        string    `json:"gameDay"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	PublishWindow  Window    `json:"publishWindow"`
	CalendarWindow Window    `json:"calendarWindow"`
}

func handleClock(clock *gameday.Clock, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := now()
		day := clock.DayOf(t)
		pubStart, pubEnd := clock.PublishWindow(day)
		calStart, calEnd := clock.CalendarWindow(day)

		writeJSON(w, http.StatusOK, ClockResponse{
			Zone:           clock.Location().String(),
			RolloverHour:   clock.RolloverHour(),
			Now:            t.UTC(),
			GameDay:        day.String(),
			Date:           clock.FormatDate(t),
			Time:           clock.FormatTime(t),
			PublishWindow:  Window{Start: pubStart, End: pubEnd},
			CalendarWindow: Window{Start: calStart, End: calEnd},
		})
	}
}
