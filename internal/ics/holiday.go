package ics

import (
	"context"
	"fmt"

	"coursecal/internal/holiday"
)

// HolidayLoader returns a holiday.Loader that fetches src and builds its
// calendar. A cached body is used when the upstream is unavailable.
func HolidayLoader(f *Fetcher, src Source) holiday.Loader {
	return func(ctx context.Context) (*holiday.Calendar, error) {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			return nil, err
		}
		cal, err := holiday.Load(res.Body)
		if err != nil {
			return nil, fmt.Errorf("holiday feed %s: %w", redactURL(src.URL), err)
		}
		return cal, nil
	}
}
