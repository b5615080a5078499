// Package security scans pipeline commands for obviously destructive
// patterns before they reach a shell.
package security

import (
	"errors"
	"regexp"
	"strings"
)

var destructivePatterns = []*regexp.Regexp{
	// filesystem wipes
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/\s*$`),
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/[a-z]`),
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bwipefs\b`),
	regexp.MustCompile(`(?i)\bdd\s+if=`),
	// fork bombs (e.g. :(){ :|:& };:)
	regexp.MustCompile(`:\(\)\s*\{`),
	// package managers removing packages wholesale
	regexp.MustCompile(`(?i)\bapt-get\s+remove\s+`),
	regexp.MustCompile(`(?i)\byum\s+remove\s+`),
	// host shutdown from inside a build
	regexp.MustCompile(`(?i)\b(shutdown|reboot|halt)\b\s*(-|$)`),
}

// CheckCommand returns nil if the command may run, or an error describing
// why it is blocked. The scan is conservative, not exhaustive; runs can
// override it with --force.
func CheckCommand(command string) error {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return errors.New("empty command")
	}
	for _, re := range destructivePatterns {
		if re.MatchString(cmd) {
			return errors.New("command appears destructive or unsafe")
		}
	}
	return nil
}

// CheckStageCommands scans every command of a stage and returns the first
// offending command with its error.
func CheckStageCommands(commands []string) (string, error) {
	for _, c := range commands {
		if err := CheckCommand(c); err != nil {
			return c, err
		}
	}
	return "", nil
}
