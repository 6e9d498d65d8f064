package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// parseID reads a snowflake id from a path or body field; zero is invalid.
func parseID(value string) (snowflake.ID, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

func (s *Server) pathID(field string, value string) (snowflake.ID, error) {
	id, ok := parseID(value)
	if !ok {
		return 0, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	return id, nil
}
