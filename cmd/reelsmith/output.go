package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"reelsmith/internal/services"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// palette holds the colors used for status words. Colors are disabled when
// the destination is not a terminal.
type palette struct {
	ok   *color.Color
	warn *color.Color
	bad  *color.Color
	head *color.Color
}

func newPalette(writer io.Writer) palette {
	p := palette{
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		bad:  color.New(color.FgRed, color.Bold),
		head: color.New(color.FgBlue, color.Bold),
	}
	enable := shouldColorize(writer)
	for _, c := range []*color.Color{p.ok, p.warn, p.bad, p.head} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// status colors a lifecycle word by what it means for the operator.
func (p palette) status(value string) string {
	switch value {
	case "approved", "completed", "pass", "bound", "published":
		return p.ok.Sprint(value)
	case "generating", "rendering", "pending", "stale", "unbound":
		return p.warn.Sprint(value)
	case "failed", "error", "fail":
		return p.bad.Sprint(value)
	default:
		return value
	}
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func describeError(err error) string {
	msg := fmt.Sprintf("Error: %v", err)
	switch services.Classify(err) {
	case services.CategoryTransient:
		return msg + "\nThe failure looks temporary; retry the command."
	case services.CategoryInvalidTransition:
		return msg + "\nRun `reelsmith show` to see the production's current state."
	}
	if errors.Is(err, services.ErrConfiguration) {
		return msg + "\nRun `reelsmith doctor` to check credentials and connectivity."
	}
	return msg
}
