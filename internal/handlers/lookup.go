package handlers

import (
	"context"
	"slices"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/permissions"
)

// allPermissions is what guild owners and administrators effectively hold.
const allPermissions int64 = -1

// GuildOwner returns the owner of a guild from the cache, fetching and
// caching it on a miss.
func (d Dependencies) GuildOwner(ctx context.Context, guildID string) (string, error) {
	if d.Cache != nil {
		if owner, ok := d.Cache.GuildOwner(ctx, guildID); ok {
			return owner, nil
		}
	}

	g, err := d.Session.Guild(guildID)
	if err != nil {
		return "", errutil.Wrap(err)
	}

	if d.Cache != nil {
		d.Cache.SetGuildOwner(ctx, guildID, g.OwnerID)
	}
	return g.OwnerID, nil
}

// ChannelName returns a channel's name from the cache, fetching and caching
// it on a miss.
func (d Dependencies) ChannelName(ctx context.Context, channelID string) (string, error) {
	if d.Cache != nil {
		if name, ok := d.Cache.ChannelName(ctx, channelID); ok {
			return name, nil
		}
	}

	c, err := d.Session.Channel(channelID)
	if err != nil {
		return "", errutil.Wrap(err)
	}

	if d.Cache != nil {
		d.Cache.SetChannelName(ctx, channelID, c.Name)
	}
	return c.Name, nil
}

// GuildRoles returns a guild's roles from the cache, fetching and caching
// them on a miss.
func (d Dependencies) GuildRoles(ctx context.Context, guildID string) ([]*dg.Role, error) {
	if d.Cache != nil {
		if roles, ok := d.Cache.GuildRoles(ctx, guildID); ok {
			return roles, nil
		}
	}

	roles, err := d.Session.GuildRoles(guildID)
	if err != nil {
		return nil, errutil.Wrap(err)
	}

	if d.Cache != nil {
		d.Cache.SetGuildRoles(ctx, guildID, roles)
	}
	return roles, nil
}

// MemberPermissions computes a member's guild-level permissions for text
// commands, which unlike interactions carry no resolved permission set.
// Channel overwrites are not applied.
func (d Dependencies) MemberPermissions(ctx context.Context, guildID, userID string, member *dg.Member) (int64, error) {
	owner, err := d.GuildOwner(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if owner == userID {
		return allPermissions, nil
	}

	roles, err := d.GuildRoles(ctx, guildID)
	if err != nil {
		return 0, err
	}

	return rolePermissions(guildID, member, roles), nil
}

func rolePermissions(guildID string, member *dg.Member, roles []*dg.Role) int64 {
	var held []string
	if member != nil {
		held = member.Roles
	}

	var p int64
	for _, r := range roles {
		if r.ID == guildID || slices.Contains(held, r.ID) {
			p |= r.Permissions
		}
	}

	if permissions.Has(p, dg.PermissionAdministrator) {
		return allPermissions
	}
	return p
}

func (d Dependencies) isAdmin(userID string) bool {
	return slices.Contains(d.Admins, userID)
}
