package notify

import (
	"fmt"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/ride"
)

// Notification is the text of the persistent tracking notification
type Notification struct {
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	DistanceKM float64 `json:"distance_km"`
	Elapsed    string  `json:"elapsed"`
}

// FormatElapsed renders a duration as days:hours:minutes:seconds without padding
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24
	return fmt.Sprintf("%d:%d:%d:%d", days, hours%24, minutes%60, seconds%60)
}

// TrackingText builds the notification shown while a ride is tracked
func TrackingText(s *ride.Session, now time.Time) Notification {
	elapsed := FormatElapsed(s.Elapsed(now))
	title := "Ride in progress"
	if s.Bike.Name != "" {
		title = fmt.Sprintf("Riding %s", s.Bike.Name)
	}
	body := fmt.Sprintf("%.2f km, %s", s.TotalDistance, elapsed)
	if s.TrackingPaused {
		body += " (location unavailable)"
	}
	return Notification{
		Title:      title,
		Body:       body,
		DistanceKM: s.TotalDistance,
		Elapsed:    elapsed,
	}
}
