package domain

import "time"

type FileStatus string

const (
	FileStatusPending  FileStatus = "pending"
	FileStatusAccepted FileStatus = "accepted"
	FileStatusRejected FileStatus = "rejected"
)

// Valid reports whether the status is one of the known values.
func (s FileStatus) Valid() bool {
	switch s {
	case FileStatusPending, FileStatusAccepted, FileStatusRejected:
		return true
	}
	return false
}

// FileRecord is the metadata row describing one uploaded file. The raw
// bytes live in the blob store under StoredKey.
type FileRecord struct {
	ID            int64
	OwnerID       int64
	Filename      string
	StoredKey     string
	SizeBytes     int64
	MimeType      string
	Status        FileStatus
	UploadedAt    time.Time
	UpdatedAt     time.Time
	OwnerUsername string
	OwnerEmail    string
}
