package main

import "strings"

// cutHeader splits "Name: value".
func cutHeader(h string) (string, string, bool) {
	name, value, ok := strings.Cut(h, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}
