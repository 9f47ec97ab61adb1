package models

type Table string

const (
	TableGuilds       Table = "guilds"
	TableErrorReports Table = "error_reports"
)

type Mappable interface {
	Table() Table
	Map() map[string]any
}
