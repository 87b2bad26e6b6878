package models

import "time"

// Image is the profile picture of a user. There is at most one per user.
type Image struct {
	ID     string
	UserID string
	// URL is the public location returned by the object store.
	URL string
	// StorageKey is the object-store address used for deletion.
	StorageKey  string
	FileName    string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}
