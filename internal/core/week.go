package core

import "time"

// DefaultWeekStartDOW is Monday (0 = Sunday).
const DefaultWeekStartDOW = 1

// WeekStart returns the first day of the week containing d, for weeks
// beginning on dow (0 = Sunday ... 6 = Saturday).
func WeekStart(d Date, dow int) Date {
	if dow < 0 || dow > 6 {
		dow = DefaultWeekStartDOW
	}
	back := (int(d.Weekday()) - dow + 7) % 7
	return d.AddDays(-back)
}

// WeekEnd returns the last day of the week starting at start.
func WeekEnd(start Date) Date {
	return start.AddDays(6)
}

// InWeek reports whether d falls in the seven days starting at start.
func InWeek(start, d Date) bool {
	return !d.Before(start.Time) && !d.After(WeekEnd(start).Time)
}

// UserPreferences holds per-user calendar settings.
type UserPreferences struct {
	UserID       string `json:"-"`
	WeekStartDOW int    `json:"week_start_dow"`
	NoticeDOW    *int   `json:"notice_dow,omitempty"`
}

// DefaultPreferences is used when a user has never saved preferences.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{UserID: userID, WeekStartDOW: DefaultWeekStartDOW}
}

func (p UserPreferences) Validate() error {
	if err := validateUser(p.UserID); err != nil {
		return err
	}
	if p.WeekStartDOW < 0 || p.WeekStartDOW > 6 {
		return ErrInvalidWeekday
	}
	if p.NoticeDOW != nil && (*p.NoticeDOW < 0 || *p.NoticeDOW > 6) {
		return ErrInvalidWeekday
	}
	return nil
}

// WeekStartFor aligns d to the user's week start.
func (p UserPreferences) WeekStartFor(d Date) Date {
	return WeekStart(d, p.WeekStartDOW)
}

// NextNotice returns the next reminder day on or after from.
// It reports false when no notice day is set.
func (p UserPreferences) NextNotice(from Date) (Date, bool) {
	if p.NoticeDOW == nil {
		return Date{}, false
	}
	ahead := (*p.NoticeDOW - int(from.Weekday()) + 7) % 7
	return from.AddDays(ahead), true
}

// Today returns the current UTC date.
func Today() Date {
	return DateOf(time.Now().UTC())
}
