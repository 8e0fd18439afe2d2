package slack

import (
	"fmt"
	"strings"
)

type CommandType string

const (
	CmdRemind CommandType = "reminder"
	CmdList   CommandType = "list"
	CmdRemove CommandType = "remove"
	CmdPing   CommandType = "ping"
	CmdHelp   CommandType = "help"
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

// Symbol is the first argument, or "" when none was given.
func (c *Command) Symbol() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

func ParseCommand(text string) (*Command, error) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return &Command{Type: CmdHelp}, nil
	}

	cmd := &Command{
		Raw: text,
	}

	switch strings.ToLower(parts[0]) {
	case "reminder", "remind":
		cmd.Type = CmdRemind
		if len(parts) > 1 {
			cmd.Args = parts[1:]
		}
	case "remove", "rm":
		cmd.Type = CmdRemove
		if len(parts) > 1 {
			cmd.Args = parts[1:]
		}
	case "list", "ls":
		cmd.Type = CmdList
	case "ping":
		cmd.Type = CmdPing
	case "help":
		cmd.Type = CmdHelp
	default:
		return nil, fmt.Errorf("unknown command: %s", parts[0])
	}

	return cmd, nil
}

func GetHelpText() string {
	return `*Available Commands:*

*Reminders:*
• ` + "`/earnings reminder SYMBOL`" + ` - Remind this channel about SYMBOL's next earnings report
• ` + "`/earnings list`" + ` - List the reminders set in this channel
• ` + "`/earnings remove SYMBOL`" + ` - Remove the reminder for SYMBOL

*Schedule:*
Reports before market open are announced at 1pm the day before.
Reports after market close are announced at 9am and 3pm the same day.
Reports during market hours are announced at 1pm the day before and 9am the same day.

*Other:*
• ` + "`/earnings ping`" + ` - Check the bot is alive
• ` + "`/earnings help`" + ` - Show this message`
}
