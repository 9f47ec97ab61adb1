package handlers

import (
	"context"
	"errors"
	"fmt"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/language"
	"github.com/runpod/poddy-sub000/internal/permissions"
	"github.com/runpod/poddy-sub000/internal/utils"
)

// validate runs the default checks in order: guild owner, developer,
// invoking user's permissions, bot's permissions. The first failing check
// wins. Permission checks only apply inside guilds.
func (d *Dispatcher) validate(ctx context.Context, inv *Invocation, meta Metadata) (Result, error) {
	user := inv.User()
	if user == nil {
		return Proceed, nil
	}
	lang := inv.Language
	guildID := inv.GuildID()

	if meta.OwnerOnly && guildID != "" {
		owner, err := d.deps.GuildOwner(ctx, guildID)
		if err != nil {
			var rerr *dg.RESTError
			if errors.As(err, &rerr) && rerr.Message != nil && rerr.Message.Code == dg.ErrCodeUnknownGuild {
				id := d.capture(ctx, inv, fmt.Errorf("owner of unknown guild %s: %w", guildID, err))
				return Deny(internalFailure(lang, id)), nil
			}
			return Proceed, err
		}
		if owner != user.ID {
			return Deny(utils.Failure{
				Type:    utils.ErrNotAllowed,
				Title:   lang.Get("NOT_OWNER_TITLE", nil),
				Message: lang.Get("NOT_OWNER", nil),
			}), nil
		}
	}

	if meta.DevOnly && !d.deps.isAdmin(user.ID) {
		return Deny(utils.Failure{
			Type:    utils.ErrNotAllowed,
			Title:   lang.Get("DEV_ONLY_TITLE", nil),
			Message: lang.Get("DEV_ONLY", nil),
		}), nil
	}

	if guildID == "" || (meta.UserPermissions == 0 && meta.ClientPermissions == 0) {
		return Proceed, nil
	}

	if meta.UserPermissions != 0 {
		actual, err := d.userPermissions(ctx, inv)
		if err != nil {
			return Proceed, err
		}
		if missing := permissions.Difference(meta.UserPermissions, actual); missing != 0 {
			return Deny(missingPermissions(lang, "USER", missing)), nil
		}
	}

	if meta.ClientPermissions != 0 {
		actual, err := d.clientPermissions(inv)
		if err != nil {
			return Proceed, err
		}
		if missing := permissions.Difference(meta.ClientPermissions, actual); missing != 0 {
			return Deny(missingPermissions(lang, "CLIENT", missing)), nil
		}
	}

	return Proceed, nil
}

func (d *Dispatcher) userPermissions(ctx context.Context, inv *Invocation) (int64, error) {
	if i := inv.Interaction; i != nil {
		if i.Member == nil {
			return 0, nil
		}
		return i.Member.Permissions, nil
	}
	return d.deps.MemberPermissions(ctx, inv.GuildID(), inv.User().ID, inv.Message.Member)
}

func (d *Dispatcher) clientPermissions(inv *Invocation) (int64, error) {
	if i := inv.Interaction; i != nil {
		return i.AppPermissions, nil
	}

	id := d.ClientID()
	if id == "" {
		return allPermissions, nil
	}
	p, err := d.deps.Session.UserChannelPermissions(id, inv.ChannelID())
	if err != nil {
		return 0, errutil.With(err)
	}
	return p, nil
}

// missingPermissions describes the missing bits with their localized names,
// using the singular phrasing when exactly one is missing.
func missingPermissions(lang *language.Language, who string, missing int64) utils.Failure {
	names := permissions.ToArray(missing)
	for i, name := range names {
		if key := "PERMISSION_" + name; lang.Has(key) {
			names[i] = lang.Get(key, nil)
		}
	}

	key := "MISSING_PERMISSIONS_" + who + "_PERMISSIONS_OTHER"
	if len(names) == 1 {
		key = "MISSING_PERMISSIONS_" + who + "_PERMISSIONS_ONE"
	}

	return utils.Failure{
		Type:    utils.ErrNotAllowed,
		Title:   lang.Get("MISSING_PERMISSIONS_TITLE", nil),
		Message: lang.Get(key, map[string]any{"permissions": utils.FormatList(names)}),
		Data:    map[string]any{"missing": missing},
	}
}

func internalFailure(lang *language.Language, id string) utils.Failure {
	return utils.Failure{
		Type:    utils.ErrInternal,
		Title:   lang.Get("INTERNAL_ERROR_TITLE", nil),
		Message: lang.Get("INTERNAL_ERROR", map[string]any{"id": id}),
		Data:    map[string]any{"correlation_id": id},
	}
}
