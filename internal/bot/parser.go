package bot

import (
	"strings"
)

type ParseID int

const (
	ParseOK ParseID = iota
	ParseNoBotPrefix
	ParseNoCommand
)

// ParseResult is the outcome of reading one chat message
type ParseResult struct {
	ID      ParseID
	Command string
	Args    []string
}

// Parse splits a chat message into a command and its arguments.
// Messages that do not start with the bot prefix are not meant for the bot
// at all and are reported as such rather than as an error
func Parse(prefix string, content string) ParseResult {

	if !strings.HasPrefix(content, prefix) {
		return ParseResult{ID: ParseNoBotPrefix}
	}

	words := strings.Fields(strings.TrimSpace(content[len(prefix):]))
	if len(words) == 0 {
		return ParseResult{ID: ParseNoCommand}
	}

	return ParseResult{ID: ParseOK, Command: strings.ToLower(words[0]), Args: words[1:]}
}
