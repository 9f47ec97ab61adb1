package cache

import (
	"context"
	"encoding/json"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/models"
)

func ownerKey(guildID string) string     { return "guild_owner:" + guildID }
func rolesKey(guildID string) string     { return "guild_roles:" + guildID }
func channelKey(channelID string) string { return "channel_name:" + channelID }
func settingsKey(guildID string) string  { return "guild_settings:" + guildID }

func (c *Cache) GuildOwner(ctx context.Context, guildID string) (string, bool) {
	data, ok := c.Get(ctx, ownerKey(guildID))
	return string(data), ok
}

func (c *Cache) SetGuildOwner(ctx context.Context, guildID, ownerID string) {
	c.Set(ctx, ownerKey(guildID), []byte(ownerID), c.o.OwnerTTL)
}

func (c *Cache) ChannelName(ctx context.Context, channelID string) (string, bool) {
	data, ok := c.Get(ctx, channelKey(channelID))
	return string(data), ok
}

func (c *Cache) SetChannelName(ctx context.Context, channelID, name string) {
	c.Set(ctx, channelKey(channelID), []byte(name), c.o.ChannelTTL)
}

func (c *Cache) GuildRoles(ctx context.Context, guildID string) ([]*dg.Role, bool) {
	data, ok := c.Get(ctx, rolesKey(guildID))
	if !ok {
		return nil, false
	}

	var roles []*dg.Role
	if err := json.Unmarshal(data, &roles); err != nil {
		c.l.Warn("discarding undecodable cached roles", "guild", guildID, "error", err)
		c.Delete(ctx, rolesKey(guildID))
		return nil, false
	}

	return roles, true
}

func (c *Cache) SetGuildRoles(ctx context.Context, guildID string, roles []*dg.Role) {
	data, err := json.Marshal(roles)
	if err != nil {
		c.l.Warn("error encoding roles for cache", "guild", guildID, "error", err)
		return
	}
	c.Set(ctx, rolesKey(guildID), data, c.o.RolesTTL)
}

// GuildSettings returns the cached settings of a guild. They share the
// channel TTL, so configuration changes apply within it.
func (c *Cache) GuildSettings(ctx context.Context, guildID string) (models.GuildSettings, bool) {
	var settings models.GuildSettings

	data, ok := c.Get(ctx, settingsKey(guildID))
	if !ok {
		return settings, false
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		c.l.Warn("discarding undecodable cached settings", "guild", guildID, "error", err)
		c.Delete(ctx, settingsKey(guildID))
		return settings, false
	}

	return settings, true
}

func (c *Cache) SetGuildSettings(ctx context.Context, guildID string, settings models.GuildSettings) {
	data, err := json.Marshal(settings)
	if err != nil {
		c.l.Warn("error encoding settings for cache", "guild", guildID, "error", err)
		return
	}
	c.Set(ctx, settingsKey(guildID), data, c.o.ChannelTTL)
}

// ForgetGuild drops everything cached about a guild the bot left.
func (c *Cache) ForgetGuild(ctx context.Context, guildID string) {
	c.Delete(ctx, ownerKey(guildID))
	c.Delete(ctx, rolesKey(guildID))
	c.Delete(ctx, settingsKey(guildID))
}

func (c *Cache) ForgetGuildSettings(ctx context.Context, guildID string) {
	c.Delete(ctx, settingsKey(guildID))
}

func (c *Cache) ForgetGuildRoles(ctx context.Context, guildID string) {
	c.Delete(ctx, rolesKey(guildID))
}

func (c *Cache) ForgetChannel(ctx context.Context, channelID string) {
	c.Delete(ctx, channelKey(channelID))
}
