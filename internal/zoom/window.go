package zoom

import (
	"time"
)

// maxWindowDays is the widest date span the recording and summary list
// endpoints accept for a single query.
const maxWindowDays = 30

// DateWindow is a bounded sub-range of a requested date range
type DateWindow struct {
	From time.Time
	To   time.Time
}

// splitWindows splits [from, to] into windows no larger than maxDays,
// walking backward from to. The earliest window's start is clamped to from.
// Windows are returned in the order they are produced (most recent first);
// results are concatenated in this window order.
func splitWindows(from, to time.Time, maxDays int) []DateWindow {
	from = truncateToDay(from)
	to = truncateToDay(to)

	if to.Before(from) {
		return nil
	}

	var windows []DateWindow
	cursor := to
	for !cursor.Before(from) {
		start := cursor.AddDate(0, 0, -(maxDays - 1))
		if start.Before(from) {
			start = from
		}
		windows = append(windows, DateWindow{From: start, To: cursor})
		cursor = start.AddDate(0, 0, -1)
	}

	return windows
}

// truncateToDay drops the time-of-day component
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
