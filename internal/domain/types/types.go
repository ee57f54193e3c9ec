// Package types contains the JSON shapes served by the HTTP API.
package types

import "github.com/okian/droprelay/internal/domain/model"

// Drop is the public view of a drop. It never carries the observation time.
type Drop struct {
	Job     string  `json:"job"`
	Name    string  `json:"name"`
	MS      float64 `json:"ms"`
	Players string  `json:"players"`
}

// DropFrom converts a domain event. The zero event maps to the zero Drop.
func DropFrom(e model.DropEvent) Drop {
	return Drop{Job: e.JobID, Name: e.Name, MS: e.MoneyPerSecond, Players: e.Players}
}

// StoredDrop is the drop echoed back by a manual update.
type StoredDrop struct {
	Drop
	Timestamp float64 `json:"timestamp"` // unix seconds
}

// Info is the root service descriptor.
type Info struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	Version       string  `json:"version"`
	DiscordStatus string  `json:"discord_status"`
	Uptime        float64 `json:"uptime"` // seconds since start
}

// Status reports feed connectivity and cache freshness.
type Status struct {
	DiscordConnected bool    `json:"discord_connected"`
	ConnectionStatus string  `json:"connection_status"`
	ActiveDrop       bool    `json:"active_drop"`
	AgeSeconds       float64 `json:"age_seconds"`
	ServerTime       string  `json:"server_time"`
}
