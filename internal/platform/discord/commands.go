package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/guild-helper-bot-go/internal/handlers"
)

// ApplicationCommands turns command definitions into guild slash commands.
// Each alias is registered as its own command.
func ApplicationCommands(defs []handlers.CommandInfo) []*discordgo.ApplicationCommand {
	var commands []*discordgo.ApplicationCommand
	for _, def := range defs {
		names := append([]string{def.Name}, def.Aliases...)
		for _, name := range names {
			commands = append(commands, applicationCommand(name, def))
		}
	}
	return commands
}

func applicationCommand(name string, def handlers.CommandInfo) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        name,
		Description: def.Description,
	}
	if def.ModeratorOnly {
		permission := int64(discordgo.PermissionModerateMembers)
		cmd.DefaultMemberPermissions = &permission
	}

	var optionType discordgo.ApplicationCommandOptionType
	switch def.Arg {
	case handlers.ArgText:
		optionType = discordgo.ApplicationCommandOptionString
	case handlers.ArgUser:
		optionType = discordgo.ApplicationCommandOptionUser
	default:
		return cmd
	}
	cmd.Options = []*discordgo.ApplicationCommandOption{
		{
			Type:        optionType,
			Name:        def.ArgName,
			Description: def.ArgDescription,
			Required:    true,
		},
	}
	return cmd
}

// OptionArgs returns the single free-text argument of a slash command
func OptionArgs(options []*discordgo.ApplicationCommandInteractionDataOption) string {
	if len(options) == 0 {
		return ""
	}
	option := options[0]
	switch option.Type {
	case discordgo.ApplicationCommandOptionString:
		return option.StringValue()
	case discordgo.ApplicationCommandOptionUser:
		return option.UserValue(nil).ID
	default:
		return ""
	}
}
