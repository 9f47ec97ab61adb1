package models_test

import (
	"encoding/json"
	"testing"

	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildMapEncodesSettings(t *testing.T) {
	g := models.Guild{ID: "1", Name: "Runpod", OwnerID: "2"}
	g.Settings.AutoThreadChannels = []string{"3"}

	m := g.Map()
	assert.Equal(t, "2", m["owner_id"])

	var settings models.GuildSettings
	require.NoError(t, json.Unmarshal(m["settings"].([]byte), &settings))
	assert.Equal(t, []string{"3"}, settings.AutoThreadChannels)
	assert.True(t, g.IsAutoThreadChannel("3"))
	assert.False(t, g.IsAutoThreadChannel("4"))
}

func TestErrorReportMapSurvivesUnencodableExtras(t *testing.T) {
	r := models.ErrorReport{ID: "x", Error: "boom", Extras: map[string]any{"fn": func() {}}}

	m := r.Map()
	assert.Contains(t, string(m["extras"].([]byte)), "marshal_error")
	assert.Equal(t, models.TableErrorReports, r.Table())
}
