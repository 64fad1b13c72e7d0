package service

import (
	"time"

	"clinic-attendance-backend/internal/models"
)

// logEntry is one attendance row the engine has decided to append.
type logEntry struct {
	At     time.Time // UTC
	Action string
	Source string
	Notes  string
}

// transitionPlan is the outcome of one scan decision: the rows to append
// (one, or two when a stale session is auto-closed) and the result the
// caller reports.
type transitionPlan struct {
	Entries    []logEntry
	Action     string
	AutoClosed bool
	Note       string
}

// decideTransition derives the user's state from the most recent row and
// picks the next action. Pure: all inputs explicit, no clock or store
// access, so the race-sensitive part of the engine reduces to holding the
// row lock around this call.
//
// States, with "day" meaning the clinic-local calendar day of now:
//
//	no rows            -> IN now
//	OUT, another day   -> IN now
//	OUT, same day      -> DailyLimitReached
//	IN, same day       -> OUT now
//	IN, a prior day    -> auto-close: OUT at 23:59:59.999 of that day
//	                      (source API) then IN now; otherwise OUT now with
//	                      an explanatory note
func decideTransition(last *models.AttendanceLog, now time.Time, loc *time.Location, autoClose bool) (transitionPlan, error) {
	nowLocal := now.In(loc)

	if last == nil || last.Action == models.ActionOut {
		if last != nil && sameLocalDay(last.TimestampUTC.In(loc), nowLocal) {
			return transitionPlan{}, ErrDailyLimitReached
		}
		return transitionPlan{
			Entries: []logEntry{{At: now.UTC(), Action: models.ActionIn, Source: models.SourceKiosk}},
			Action:  models.ActionIn,
		}, nil
	}

	// last row is IN: the session is open
	lastLocal := last.TimestampUTC.In(loc)
	if sameLocalDay(lastLocal, nowLocal) {
		return transitionPlan{
			Entries: []logEntry{{At: now.UTC(), Action: models.ActionOut, Source: models.SourceKiosk}},
			Action:  models.ActionOut,
		}, nil
	}

	// open session from a previous day
	if autoClose {
		return transitionPlan{
			Entries: []logEntry{
				{
					At:     endOfLocalDay(lastLocal).UTC(),
					Action: models.ActionOut,
					Source: models.SourceAPI,
					Notes:  "auto-closed stale session",
				},
				{At: now.UTC(), Action: models.ActionIn, Source: models.SourceKiosk},
			},
			Action:     models.ActionIn,
			AutoClosed: true,
		}, nil
	}

	return transitionPlan{
		Entries: []logEntry{{
			At:     now.UTC(),
			Action: models.ActionOut,
			Source: models.SourceKiosk,
			Notes:  "closed previous open session",
		}},
		Action: models.ActionOut,
		Note:   "closed previous open session",
	}, nil
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// endOfLocalDay returns 23:59:59.999 of t's calendar day in t's location.
func endOfLocalDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999_000_000, t.Location())
}
