package pqds

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "01/02/2006"
	timeLayout = "15:04:05"
)

// TimingTags renders t as the timing tag group.
func TimingTags(t time.Time) []Tag {
	t = t.UTC()
	return []Tag{
		NumericTag(KeyEventYear, float64(t.Year())),
		NumericTag(KeyEventMonth, float64(t.Month())),
		NumericTag(KeyEventDay, float64(t.Day())),
		NumericTag(KeyEventHour, float64(t.Hour())),
		NumericTag(KeyEventMinute, float64(t.Minute())),
		NumericTag(KeyEventSecond, float64(t.Second())),
		NumericTag(KeyEventNanoSecond, float64(t.Nanosecond())),
		TextTag(KeyEventDate, t.Format(dateLayout)),
		TextTag(KeyEventTime, t.Format(timeLayout)),
	}
}

// StartFromTags reads the event start from the timing tags. The numeric
// EventYear group wins over EventDate/EventTime.
func StartFromTags(f *File) (time.Time, bool, error) {
	if year := f.Int(KeyEventYear); year != nil {
		part := func(key string, def int) int {
			if v := f.Int(key); v != nil {
				return *v
			}
			return def
		}
		month := part(KeyEventMonth, 1)
		if month < 1 || month > 12 {
			return time.Time{}, false, fmt.Errorf("event month %d out of range", month)
		}
		t := time.Date(*year, time.Month(month), part(KeyEventDay, 1),
			part(KeyEventHour, 0), part(KeyEventMinute, 0), part(KeyEventSecond, 0),
			part(KeyEventNanoSecond, 0), time.UTC)
		return t, true, nil
	}

	date := f.Text(KeyEventDate)
	if date == nil {
		return time.Time{}, false, nil
	}
	layout, value := dateLayout, *date
	if clock := f.Text(KeyEventTime); clock != nil {
		layout, value = dateLayout+" "+timeLayout, value+" "+strings.TrimSpace(*clock)
	}
	t, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
