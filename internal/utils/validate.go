package utils

import (
	"fmt"

	dg "github.com/bwmarrin/discordgo"
)

const (
	maxCommandNameLength        = 32
	maxCommandDescriptionLength = 100
	maxOptionsPerCommand        = 25
	maxChoicesPerOption         = 25
	maxChoiceNameLength         = 100
	maxChoiceValueLength        = 100
)

type ValidationResult struct {
	Command     *dg.ApplicationCommand
	WasModified bool
	Errors      []string
}

func (r *ValidationResult) note(format string, args ...any) {
	r.WasModified = true
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ValidateCommand truncates anything in a registration payload that Discord
// would reject for length, including nested sub-commands and localizations.
func ValidateCommand(cmd *dg.ApplicationCommand) ValidationResult {
	result := ValidationResult{Command: cmd}

	if len(cmd.Name) > maxCommandNameLength {
		cmd.Name = cmd.Name[:maxCommandNameLength]
		result.note("command name was truncated")
	}

	if len(cmd.Description) > maxCommandDescriptionLength {
		cmd.Description = cmd.Description[:maxCommandDescriptionLength]
		result.note("command %s description was truncated", cmd.Name)
	}

	if cmd.NameLocalizations != nil {
		truncateLocalizations(&result, cmd.Name, *cmd.NameLocalizations, maxCommandNameLength)
	}
	if cmd.DescriptionLocalizations != nil {
		truncateLocalizations(&result, cmd.Name, *cmd.DescriptionLocalizations, maxCommandDescriptionLength)
	}

	cmd.Options = validateOptions(&result, cmd.Name, cmd.Options)

	return result
}

func validateOptions(result *ValidationResult, parent string, opts []*dg.ApplicationCommandOption) []*dg.ApplicationCommandOption {
	if len(opts) > maxOptionsPerCommand {
		opts = opts[:maxOptionsPerCommand]
		result.note("excess options of %s were removed", parent)
	}

	for _, opt := range opts {
		if len(opt.Name) > maxCommandNameLength {
			opt.Name = opt.Name[:maxCommandNameLength]
			result.note("option name under %s was truncated", parent)
		}

		if len(opt.Description) > maxCommandDescriptionLength {
			opt.Description = opt.Description[:maxCommandDescriptionLength]
			result.note("option %s description was truncated", opt.Name)
		}

		truncateLocalizations(result, opt.Name, opt.NameLocalizations, maxCommandNameLength)
		truncateLocalizations(result, opt.Name, opt.DescriptionLocalizations, maxCommandDescriptionLength)

		if len(opt.Choices) > maxChoicesPerOption {
			opt.Choices = opt.Choices[:maxChoicesPerOption]
			result.note("excess choices of %s were removed", opt.Name)
		}

		for _, choice := range opt.Choices {
			if len(choice.Name) > maxChoiceNameLength {
				choice.Name = choice.Name[:maxChoiceNameLength]
				result.note("choice name of %s was truncated", opt.Name)
			}

			if s, ok := choice.Value.(string); ok && len(s) > maxChoiceValueLength {
				choice.Value = s[:maxChoiceValueLength]
				result.note("choice value of %s was truncated", opt.Name)
			}
		}

		opt.Options = validateOptions(result, opt.Name, opt.Options)
	}

	return opts
}

func truncateLocalizations(result *ValidationResult, name string, m map[dg.Locale]string, limit int) {
	for locale, v := range m {
		if len(v) > limit {
			m[locale] = v[:limit]
			result.note("%s localization of %s was truncated", locale, name)
		}
	}
}
