package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"agri-smart/farm"
	"agri-smart/forecast"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// success prints a green line with a checkmark prefix.
func success(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, a...))
}

func warning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// heading prints a cyan section title.
func heading(w io.Writer, format string, a ...any) {
	cyan.Fprintf(w, "→ %s\n", fmt.Sprintf(format, a...))
}

// hintFor suggests what to do about err, or returns "".
func hintFor(err error) string {
	var redirect *farm.RedirectError
	switch {
	case errors.As(err, &redirect), errors.Is(err, farm.ErrNoSession):
		return "Sign in first: agrismart signin --email you@example.com"
	case errors.Is(err, farm.ErrInvalidCredentials):
		return "Check the email and password, or create an account with: agrismart signup"
	case errors.Is(err, forecast.ErrAdvisorDisabled):
		return "Set GEMINI_API_KEY or advisor.api_key in the config file."
	case errors.Is(err, forecast.ErrTimeout):
		return "The service did not answer in time; try again or raise forecast.timeout."
	case errors.Is(err, forecast.ErrUpstream):
		return "Check that the service is reachable and the API key is valid."
	}
	return ""
}

// reportError prints err in red with a hint when one applies.
func reportError(w io.Writer, err error) {
	red.Fprintf(w, "Error: %s\n", strings.TrimSpace(err.Error()))
	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(w, "\n%s\n", hint)
	}
}
