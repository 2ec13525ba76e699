package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/fastcite/internal/filter"
)

const statusCommand = ":status"

// watchQueries renders query, then reads filter text from stdin, one query
// per line, and calls render with the newest line once input has been quiet for the debounce
// delay. command, when set, gets the first look at every line and reports
// whether it consumed it. At EOF the last pending query is still applied.
func watchQueries(ctx context.Context, a *app, query string,
	command func(line, query string) (bool, error),
	render func(query string) error,
) error {
	deb := filter.NewDebouncer(a.cfg.Debounce.Duration)
	defer deb.Stop()

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			s, err := a.in.next()
			if err != nil {
				return
			}
			select {
			case lines <- s:
			case <-done:
				return
			}
		}
	}()

	fmt.Fprintln(a.stderr, "Type to filter, one query per line. Ctrl-D quits.")
	if err := render(query); err != nil {
		return err
	}
	pending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-lines:
			if !ok {
				if !pending {
					return nil
				}
				lines = nil
				continue
			}
			if command != nil {
				used, err := command(s, query)
				if err != nil {
					return err
				}
				if used {
					continue
				}
			}
			pending = true
			deb.Trigger(strings.TrimSpace(s))
		case q := <-deb.C():
			pending = false
			query = q
			if err := render(query); err != nil {
				return err
			}
			if lines == nil {
				return nil
			}
		}
	}
}
