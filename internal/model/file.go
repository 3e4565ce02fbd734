package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// File is a single uploaded file owned by one user.
// The bytes live in object storage under StorageKey; this struct is the metadata row.
// StorageKey, OwnerID and CreatedAt never change after creation.
type File struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"-"`
	Name       string    `json:"name"`
	StorageKey string    `json:"-"`
	FileType   string    `json:"type"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"upload_date"`
	IsDeleted  bool      `json:"is_deleted"`
	Thumbnail  string    `json:"thumbnail"`
}

// FormattedSize renders Size in megabytes with one decimal, e.g. "3.0 MB".
func (f File) FormattedSize() string {
	return fmt.Sprintf("%.1f MB", float64(f.Size)/1024/1024)
}

// MarshalJSON adds the human readable size next to the raw byte count.
func (f File) MarshalJSON() ([]byte, error) {
	type alias File
	return json.Marshal(struct {
		alias
		SizeFormatted string `json:"size_formatted"`
	}{
		alias:         alias(f),
		SizeFormatted: f.FormattedSize(),
	})
}
