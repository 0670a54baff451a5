// internal/components/calendar/calendar.go
// Package calendar drives the date picker widget shared by the booking
// pages.
package calendar

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/interact"
)

// DateLayout is the format of a date cell's data-date attribute.
const DateLayout = "2006-01-02"

// DefaultMaxMonths bounds how far SelectDate pages away from the shown
// month.
const DefaultMaxMonths = 24

var (
	Body     = element.CSS(".bui-calendar[style*='block']")
	next     = element.CSS(".bui-calendar__control--next")
	previous = element.CSS(".bui-calendar__control--prev")
	dates    = element.CSS("td.bui-calendar__date[data-date]")
	dateCell = element.CSS("td.bui-calendar__date[data-date='%s']")
)

// Calendar is the date picker of the current page.
type Calendar struct {
	act       *interact.Interactor
	logger    *zap.Logger
	maxMonths int
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithMaxMonths overrides DefaultMaxMonths.
func WithMaxMonths(n int) Option {
	return func(c *Calendar) { c.maxMonths = n }
}

func New(act *interact.Interactor, logger *zap.Logger, opts ...Option) *Calendar {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Calendar{act: act, logger: logger.Named("calendar"), maxMonths: DefaultMaxMonths}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxMonths < 0 {
		c.maxMonths = 0
	}
	return c
}

// Open clicks expander and waits for the calendar body to show.
func (c *Calendar) Open(ctx context.Context, expander element.Referable) error {
	if err := c.act.Click(ctx, expander); err != nil {
		return err
	}
	_, err := c.act.Waits().Visible(ctx, Body)
	return err
}

func (c *Calendar) NextMonth(ctx context.Context) error {
	return c.turn(ctx, next, "next month")
}

func (c *Calendar) PreviousMonth(ctx context.Context) error {
	return c.turn(ctx, previous, "previous month")
}

// turn clicks a month control and waits until the first shown date moves.
func (c *Calendar) turn(ctx context.Context, control element.Locator, name string) error {
	before, _, _ := c.ShownRange(ctx)
	c.logger.Debug("Turning calendar.", zap.String("to", name), zap.String("from", before.Format(DateLayout)))
	if err := c.act.Click(ctx, control); err != nil {
		return err
	}
	_, err := c.act.Waits().Until(ctx, "calendar shows "+name, func(ctx context.Context) (bool, error) {
		first, _, err := c.ShownRange(ctx)
		if err != nil {
			return false, nil
		}
		return !first.Equal(before), nil
	})
	return err
}

// ShownRange returns the earliest and latest dates the calendar shows.
func (c *Calendar) ShownRange(ctx context.Context) (time.Time, time.Time, error) {
	hs, _, err := c.act.Resolver().ResolveAll(ctx, dates, 0)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	var first, last time.Time
	for _, h := range hs {
		raw, _, err := h.Attribute(ctx, "data-date")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			continue
		}
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}, errors.New("calendar shows no parsable dates")
	}
	return first, last, nil
}

// DateLocator addresses the cell of date.
func DateLocator(date time.Time) element.Locator {
	return dateCell.Format(date.Format(DateLayout))
}

// SelectDate clicks the cell of date, paging towards it for at most the
// configured number of months. A date that never shows up fails with
// FlowFailed.
func (c *Calendar) SelectDate(ctx context.Context, date time.Time) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	target := DateLocator(day)
	c.logger.Info("Selecting date from the calendar.", zap.String("date", day.Format(DateLayout)))

	for turns := 0; ; turns++ {
		shown, err := c.act.IsDisplayed(ctx, target, false)
		if err != nil {
			return err
		}
		if shown {
			return c.act.Click(ctx, target)
		}
		if turns >= c.maxMonths {
			break
		}
		first, last, err := c.ShownRange(ctx)
		if err != nil {
			break
		}
		switch {
		case day.Before(first):
			err = c.PreviousMonth(ctx)
		case day.After(last):
			err = c.NextMonth(ctx)
		default:
			return notFound(target)
		}
		if err != nil {
			return err
		}
	}
	return notFound(target)
}

func notFound(target element.Locator) error {
	return element.Errorf(element.KindFlowFailed, target.String(), "Date not found or not visible in calendar")
}

// Select picks a date given as year, month and day strings, such as
// "2020", "07", "02".
func (c *Calendar) Select(ctx context.Context, year, month, day string) error {
	date, err := time.Parse(DateLayout, year+"-"+month+"-"+day)
	if err != nil {
		return element.Errorf(element.KindFlowFailed, "", "invalid calendar date %s-%s-%s: %v", year, month, day, err)
	}
	return c.SelectDate(ctx, date)
}
