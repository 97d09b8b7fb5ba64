package calendar

import "time"

// Location is a site scope for public holidays.
type Location string

const (
	LocationA    Location = "location_a"
	LocationB    Location = "location_b"
	LocationBoth Location = "both"
)

func (l Location) IsValid() bool {
	switch l {
	case LocationA, LocationB, LocationBoth:
		return true
	}
	return false
}

// IsSite reports whether l names a single site rather than the shared scope.
func (l Location) IsSite() bool {
	return l == LocationA || l == LocationB
}

type PublicHoliday struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Location  Location  `json:"location"`
	Recurring bool      `json:"recurring"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Classification struct {
	IsWeekend   bool    `json:"isWeekend"`
	IsHoliday   bool    `json:"isHoliday"`
	HolidayName *string `json:"holidayName"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
