package model

import (
	"database/sql/driver"
	"fmt"
)

// FileStatus is the lifecycle state of a File. Only the constants below are
// valid; anything else is rejected when written to or read from the database.
type FileStatus string

const (
	FileStatusInitiated FileStatus = "initiated"
	FileStatusCompleted FileStatus = "completed"
	FileStatusFailed    FileStatus = "failed"
	FileStatusDeleted   FileStatus = "deleted"
)

// Valid reports whether s is one of the known file states
func (s FileStatus) Valid() bool {
	switch s {
	case FileStatusInitiated, FileStatusCompleted, FileStatusFailed, FileStatusDeleted:
		return true
	default:
		return false
	}
}

// Value implements the driver.Valuer interface.
func (s FileStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid file status %q", string(s))
	}

	return string(s), nil
}

// Scan implements the sql.Scanner interface.
func (s *FileStatus) Scan(value any) error {
	str, err := scanString(value)
	if err != nil {
		return fmt.Errorf("failed to scan FileStatus, %w", err)
	}

	v := FileStatus(str)
	if !v.Valid() {
		return fmt.Errorf("invalid file status %q", str)
	}

	*s = v
	return nil
}

// UploadStatus is the state of a multipart transfer session. Completed and
// aborted are terminal.
type UploadStatus string

const (
	UploadStatusInProgress UploadStatus = "inprogress"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusAborted    UploadStatus = "aborted"
)

func (s UploadStatus) Valid() bool {
	switch s {
	case UploadStatusInProgress, UploadStatusCompleted, UploadStatusAborted:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible from s
func (s UploadStatus) Terminal() bool {
	switch s {
	case UploadStatusCompleted, UploadStatusAborted:
		return true
	case UploadStatusInProgress:
		return false
	default:
		return true
	}
}

// Value implements the driver.Valuer interface.
func (s UploadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid upload status %q", string(s))
	}

	return string(s), nil
}

// Scan implements the sql.Scanner interface.
func (s *UploadStatus) Scan(value any) error {
	str, err := scanString(value)
	if err != nil {
		return fmt.Errorf("failed to scan UploadStatus, %w", err)
	}

	v := UploadStatus(str)
	if !v.Valid() {
		return fmt.Errorf("invalid upload status %q", str)
	}

	*s = v
	return nil
}

func scanString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("unexpected NULL")
	default:
		return "", fmt.Errorf("unsupported type %T", value)
	}
}
