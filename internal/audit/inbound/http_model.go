package inbound

import "time"

type ArchiveResponse struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
	URL       string    `json:"url"`
}

type ListArchivesResponse struct {
	Prefix   string            `json:"prefix"`
	Archives []ArchiveResponse `json:"archives"`
}
