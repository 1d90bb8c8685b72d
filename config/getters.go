package config

import (
	"errors"
	"strings"
)

// CommandsKey is the section holding request bodies for named node commands,
// e.g. commands.getBalances.
const CommandsKey = "commands"

// CommandBody returns the request body configured for a named command.
// ok is false when the command has no entry. An entry that is blank is an error.
func (c *Config) CommandBody(name string) (body string, ok bool, err error) {
	key := CommandsKey + "." + name
	if !c.Exists(key) {
		return "", false, nil
	}

	body = strings.TrimSpace(c.k.String(key))
	if body == "" {
		return "", false, NewValidationError(key, "request body is empty")
	}
	return body, true, nil
}

// Unmarshal unmarshals a configuration section into the provided struct.
func (c *Config) Unmarshal(key string, out any) error {
	if c == nil || c.k == nil {
		return errors.New("configuration not initialized")
	}
	return c.k.Unmarshal(key, out)
}

// Exists checks if a configuration key exists.
func (c *Config) Exists(key string) bool {
	if c == nil || c.k == nil {
		return false
	}
	return c.k.Exists(key)
}
