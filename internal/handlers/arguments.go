package handlers

import (
	"strconv"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/language"
)

// Focused is the option the user is typing in during autocomplete.
type Focused struct {
	Name  string
	Value string
}

// Arguments holds the parsed input of an invocation, bucketed by type and
// keyed by canonical option name.
type Arguments struct {
	SubCommandGroup string
	SubCommand      string
	Focused         *Focused

	Strings      map[string]string
	Integers     map[string]int64
	Numbers      map[string]float64
	Booleans     map[string]bool
	Users        map[string]*dg.User
	Members      map[string]*dg.Member
	Channels     map[string]*dg.Channel
	Roles        map[string]*dg.Role
	Mentionables map[string]string
	Attachments  map[string]*dg.MessageAttachment

	// Values are the selected values of a select menu.
	Values []string
	// Fields are the text inputs of a submitted modal, keyed by custom ID.
	Fields map[string]string
	// Text are the whitespace separated words after a text command's name.
	Text []string
}

func newArguments() Arguments {
	return Arguments{
		Strings:      make(map[string]string),
		Integers:     make(map[string]int64),
		Numbers:      make(map[string]float64),
		Booleans:     make(map[string]bool),
		Users:        make(map[string]*dg.User),
		Members:      make(map[string]*dg.Member),
		Channels:     make(map[string]*dg.Channel),
		Roles:        make(map[string]*dg.Role),
		Mentionables: make(map[string]string),
		Attachments:  make(map[string]*dg.MessageAttachment),
		Fields:       make(map[string]string),
	}
}

// commandArguments resolves the canonical handler key of an application
// command and its arguments. Command, group and sub-command names arrive in
// the invoking user's locale and are mapped back through the language
// registry; the returned path holds them in order.
func commandArguments(langs *language.Registry, locale dg.Locale, data dg.ApplicationCommandInteractionData) ([]string, Arguments) {
	args := newArguments()
	parts := []string{langs.KeyFor(locale, data.Name)}

	opts := data.Options
	for len(opts) == 1 {
		opt := opts[0]
		if opt.Type == dg.ApplicationCommandOptionSubCommandGroup {
			args.SubCommandGroup = langs.KeyFor(locale, opt.Name)
			parts = append(parts, args.SubCommandGroup)
		} else if opt.Type == dg.ApplicationCommandOptionSubCommand {
			args.SubCommand = langs.KeyFor(locale, opt.Name)
			parts = append(parts, args.SubCommand)
		} else {
			break
		}
		opts = opt.Options
	}

	for _, opt := range opts {
		args.add(langs.KeyFor(locale, opt.Name), opt, data.Resolved)
	}

	return parts, args
}

func (a *Arguments) add(name string, opt *dg.ApplicationCommandInteractionDataOption, resolved *dg.ApplicationCommandInteractionDataResolved) {
	if opt.Focused {
		a.Focused = &Focused{Name: name, Value: stringValue(opt.Value)}
	}

	switch opt.Type {
	case dg.ApplicationCommandOptionString:
		a.Strings[name] = stringValue(opt.Value)
	case dg.ApplicationCommandOptionInteger:
		a.Integers[name] = intValue(opt.Value)
	case dg.ApplicationCommandOptionNumber:
		a.Numbers[name] = floatValue(opt.Value)
	case dg.ApplicationCommandOptionBoolean:
		b, _ := opt.Value.(bool)
		a.Booleans[name] = b
	case dg.ApplicationCommandOptionUser:
		id := stringValue(opt.Value)
		a.Users[name] = resolveUser(id, resolved)
		if m := resolveMember(id, resolved); m != nil {
			a.Members[name] = m
		}
	case dg.ApplicationCommandOptionChannel:
		id := stringValue(opt.Value)
		a.Channels[name] = &dg.Channel{ID: id}
		if resolved != nil && resolved.Channels[id] != nil {
			a.Channels[name] = resolved.Channels[id]
		}
	case dg.ApplicationCommandOptionRole:
		id := stringValue(opt.Value)
		a.Roles[name] = &dg.Role{ID: id}
		if resolved != nil && resolved.Roles[id] != nil {
			a.Roles[name] = resolved.Roles[id]
		}
	case dg.ApplicationCommandOptionMentionable:
		id := stringValue(opt.Value)
		a.Mentionables[name] = id
		if resolved != nil {
			if u := resolved.Users[id]; u != nil {
				a.Users[name] = u
			}
			if r := resolved.Roles[id]; r != nil {
				a.Roles[name] = r
			}
		}
	case dg.ApplicationCommandOptionAttachment:
		id := stringValue(opt.Value)
		if resolved != nil && resolved.Attachments[id] != nil {
			a.Attachments[name] = resolved.Attachments[id]
		}
	}
}

func resolveUser(id string, resolved *dg.ApplicationCommandInteractionDataResolved) *dg.User {
	if resolved != nil && resolved.Users[id] != nil {
		return resolved.Users[id]
	}
	return &dg.User{ID: id}
}

func resolveMember(id string, resolved *dg.ApplicationCommandInteractionDataResolved) *dg.Member {
	if resolved == nil || resolved.Members[id] == nil {
		return nil
	}
	m := resolved.Members[id]
	if m.User == nil {
		m.User = resolveUser(id, resolved)
	}
	return m
}

// modalArguments collects the text inputs of a submitted modal.
func modalArguments(data dg.ModalSubmitInteractionData) Arguments {
	args := newArguments()
	for _, row := range data.Components {
		var components []dg.MessageComponent
		switch r := row.(type) {
		case *dg.ActionsRow:
			components = r.Components
		case dg.ActionsRow:
			components = r.Components
		}

		for _, c := range components {
			switch in := c.(type) {
			case *dg.TextInput:
				args.Fields[in.CustomID] = in.Value
			case dg.TextInput:
				args.Fields[in.CustomID] = in.Value
			}
		}
	}
	return args
}

func componentArguments(data dg.MessageComponentInteractionData) Arguments {
	args := newArguments()
	args.Values = data.Values
	for id, u := range data.Resolved.Users {
		args.Users[id] = u
	}
	for id, r := range data.Resolved.Roles {
		args.Roles[id] = r
	}
	for id, c := range data.Resolved.Channels {
		args.Channels[id] = c
	}
	return args
}

func textArguments(words []string) Arguments {
	args := newArguments()
	args.Text = words
	return args
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// intValue tolerates the float64 JSON numbers decode to as well as the
// partial strings autocomplete sends for numeric options.
func intValue(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}
