package models

import "time"

type Location struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

// ArtistInfo is the profile printed on shared agendas.
type ArtistInfo struct {
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	Instagram string `json:"instagram"`
	Logo      string `json:"logo"`
}
