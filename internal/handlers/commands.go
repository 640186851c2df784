package handlers

import (
	"strings"
	"unicode"
)

// Command names
const (
	CommandHelp   = "help"
	CommandAsk    = "ask"
	CommandTicket = "ticket"
	CommandClose  = "close"
	CommandMute   = "mute"
	CommandLinks  = "links"
)

// ArgKind describes the single argument a command takes
type ArgKind int

const (
	ArgNone ArgKind = iota
	ArgText
	ArgUser
)

// CommandInfo describes a command for platform registration
type CommandInfo struct {
	Name           string
	Aliases        []string
	Description    string
	Arg            ArgKind
	ArgName        string
	ArgDescription string
	ModeratorOnly  bool
}

// Definitions lists every command the bot answers to, in help order
func Definitions() []CommandInfo {
	return []CommandInfo{
		{Name: CommandHelp, Description: "Ping the helpers"},
		{
			Name:           CommandAsk,
			Aliases:        []string{"mistral"},
			Description:    "Ask the language model a question",
			Arg:            ArgText,
			ArgName:        "prompt",
			ArgDescription: "What do you want to know?",
		},
		{Name: CommandTicket, Description: "Open a private support channel"},
		{Name: CommandClose, Description: "Close this ticket"},
		{
			Name:           CommandMute,
			Description:    "Time out a member",
			Arg:            ArgUser,
			ArgName:        "user",
			ArgDescription: "Member to mute",
			ModeratorOnly:  true,
		},
		{Name: CommandLinks, Description: "Show useful links"},
	}
}

var aliases = func() map[string]string {
	m := make(map[string]string)
	for _, def := range Definitions() {
		m[def.Name] = def.Name
		for _, alias := range def.Aliases {
			m[alias] = def.Name
		}
	}
	return m
}()

// Resolve maps a command name or alias to its canonical name
func Resolve(name string) (string, bool) {
	canonical, ok := aliases[strings.ToLower(name)]
	return canonical, ok
}

// ParseCommand splits a prefixed message into command name and argument.
// The argument keeps its inner spacing.
func ParseCommand(text, prefix string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	rest := text[len(prefix):]
	if rest == "" || unicode.IsSpace(rune(rest[0])) {
		return "", "", false
	}

	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		name, args = rest[:i], strings.TrimSpace(rest[i:])
	} else {
		name = rest
	}
	return strings.ToLower(name), args, true
}

// ParseUserID accepts a raw numeric id or a <@id> / <@!id> mention
func ParseUserID(arg string) string {
	id := strings.TrimSpace(arg)
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		id = strings.TrimPrefix(strings.TrimSuffix(id[2:], ">"), "!")
	}
	if id == "" {
		return ""
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}
