package models

import (
	"encoding/json"
	"slices"
	"time"
)

type GuildSettings struct {
	AutoThreadChannels []string `json:"auto_thread_channels"`
	CommandSetHash     string   `json:"command_set_hash"`
}

type Guild struct {
	ID       string
	Name     string
	OwnerID  string
	Settings GuildSettings
	Created  time.Time
	Updated  time.Time
	Deleted  *time.Time
}

func (g Guild) Map() map[string]any {
	settings, _ := json.Marshal(g.Settings)

	return map[string]any{
		"id":       g.ID,
		"name":     g.Name,
		"owner_id": g.OwnerID,
		"settings": settings,
		"created":  g.Created,
	}
}

func (g Guild) Table() Table {
	return TableGuilds
}

func (g Guild) IsAutoThreadChannel(channelID string) bool {
	return slices.Contains(g.Settings.AutoThreadChannels, channelID)
}
