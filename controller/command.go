package controller

import (
	"strconv"
	"strings"
)

// ParseCommand parses text of the form `name(arg1, arg2, ...)`. Arguments
// are trimmed; `name()` has no arguments.
func ParseCommand(id, text string) (Command, error) {
	open := strings.IndexByte(text, '(')
	if text == "" || open < 0 {
		return Command{}, &InvalidCommandError{Command: text}
	}

	typ := strings.TrimSpace(text[:open])
	inner := text[open+1:]
	if end := strings.LastIndexByte(inner, ')'); end >= 0 {
		inner = inner[:end]
	}

	var args []string
	if strings.TrimSpace(inner) != "" {
		for _, arg := range strings.Split(inner, ",") {
			args = append(args, strings.TrimSpace(arg))
		}
	}
	return NewCommand(id, typ, args), nil
}

// portArguments stringifies ports, dropping repeats but keeping the order
// in which they first appear.
func portArguments(ports []int) []string {
	seen := make(map[int]bool, len(ports))
	args := make([]string, 0, len(ports))
	for _, p := range ports {
		if seen[p] {
			continue
		}
		seen[p] = true
		args = append(args, strconv.Itoa(p))
	}
	return args
}

// parseReadings extracts the integers from a `read(12,34)` message.
func parseReadings(message string) ([]int, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(message, "read("), ")")
	parts := strings.Split(inner, ",")
	readings := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		readings = append(readings, v)
	}
	return readings, nil
}
