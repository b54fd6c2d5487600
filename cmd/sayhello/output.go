package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sayhello/sayhello/internal/directory"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

// printProfile renders one directory entry for terminal listing.
func printProfile(p directory.Profile) {
	fmt.Fprintf(os.Stdout, "%s  %s\n",
		colorize(colorBold, p.Name),
		colorize(colorCyan, timeAgo(p.UpdatedAt, time.Now())))
	fmt.Fprintf(os.Stdout, "  %s → %s (target %s)\n", p.Native, p.Practice, p.Level)
	if p.Bio != "" {
		fmt.Fprintf(os.Stdout, "  %s\n", p.Bio)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(os.Stdout, "  interests: %s\n", strings.Join(p.Interests, ", "))
	}
	if p.Availability != "" {
		fmt.Fprintf(os.Stdout, "  available: %s\n", p.Availability)
	}
	fmt.Fprintf(os.Stdout, "  %s  %s\n\n", p.Email, p.ID)
}

// timeAgo renders an epoch-milliseconds timestamp as a coarse age label.
func timeAgo(millis int64, now time.Time) string {
	sec := int64(now.Sub(time.UnixMilli(millis)).Seconds())
	if sec < 0 {
		sec = 0
	}
	if sec < 60 {
		return fmt.Sprintf("%ds ago", sec)
	}
	min := sec / 60
	if min < 60 {
		return fmt.Sprintf("%dm ago", min)
	}
	hr := min / 60
	if hr < 24 {
		return fmt.Sprintf("%dh ago", hr)
	}
	return fmt.Sprintf("%dd ago", hr/24)
}
