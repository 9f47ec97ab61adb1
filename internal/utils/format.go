package utils

import (
	"fmt"
	"strings"

	dg "github.com/bwmarrin/discordgo"
)

func FormatUserMention(id string) string {
	return fmt.Sprintf("<@%s>", id)
}

func FormatRoleMention(id string) string {
	return fmt.Sprintf("<@&%s>", id)
}

func FormatChannelMention(id string) string {
	return fmt.Sprintf("<#%s>", id)
}

// FormatList joins items as "a", "a and b" or "a, b, and c".
func FormatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}

	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

// FormatInteraction renders an interaction the way a user would have typed
// it, for logs.
func FormatInteraction(i *dg.Interaction) string {
	switch i.Type {
	case dg.InteractionApplicationCommand, dg.InteractionApplicationCommandAutocomplete:
		data := i.ApplicationCommandData()
		parts := []string{"/" + data.Name}

		for _, opt := range data.Options {
			parts = append(parts, formatCommandOption(opt))
		}

		return strings.Join(parts, " ")
	case dg.InteractionMessageComponent:
		return "component:" + i.MessageComponentData().CustomID
	case dg.InteractionModalSubmit:
		return "modal:" + i.ModalSubmitData().CustomID
	}

	return ""
}

func formatCommandValue(opt *dg.ApplicationCommandInteractionDataOption) string {
	switch opt.Type {
	case dg.ApplicationCommandOptionString:
		return opt.StringValue()
	case dg.ApplicationCommandOptionInteger:
		return fmt.Sprintf("%d", opt.IntValue())
	case dg.ApplicationCommandOptionBoolean:
		return fmt.Sprintf("%t", opt.BoolValue())
	case dg.ApplicationCommandOptionUser:
		return FormatUserMention(fmt.Sprint(opt.Value))
	case dg.ApplicationCommandOptionChannel:
		return FormatChannelMention(fmt.Sprint(opt.Value))
	case dg.ApplicationCommandOptionRole:
		return FormatRoleMention(fmt.Sprint(opt.Value))
	case dg.ApplicationCommandOptionNumber:
		return fmt.Sprintf("%.2f", opt.FloatValue())
	default:
		return fmt.Sprintf("%v", opt.Value)
	}
}

func formatCommandOption(opt *dg.ApplicationCommandInteractionDataOption) string {
	switch opt.Type {
	case dg.ApplicationCommandOptionSubCommand, dg.ApplicationCommandOptionSubCommandGroup:
		subParts := []string{opt.Name}
		for _, subOpt := range opt.Options {
			subParts = append(subParts, formatCommandOption(subOpt))
		}
		return strings.Join(subParts, " ")
	default:
		return fmt.Sprintf("%s:%v", opt.Name, formatCommandValue(opt))
	}
}
