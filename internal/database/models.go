package database

import (
	"fmt"
	"time"
)

// MaxAttempts is the retry cap: a pending asset with this many failed
// attempts is no longer selected.
const MaxAttempts = 3

type SourceKind string

const (
	SourceLocal      SourceKind = "local"
	SourceRemoteTree SourceKind = "remote-tree"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	return k == SourceLocal || k == SourceRemoteTree
}

type Source struct {
	ID        int64
	Name      string
	Kind      SourceKind
	Location  string
	CreatedAt time.Time
}

type ThumbnailStatus string

const (
	StatusPending   ThumbnailStatus = "pending"
	StatusSucceeded ThumbnailStatus = "succeeded"
	StatusSkipped   ThumbnailStatus = "skipped"
)

// SkipReason records why an asset will never get a thumbnail.
type SkipReason string

const (
	SkipFolder                SkipReason = "folder"
	SkipInvalidLink           SkipReason = "invalid-link"
	SkipMultipartContinuation SkipReason = "multipart-continuation"
	SkipMultipartFirstPart    SkipReason = "multipart-first-part"
	SkipSiblingImage          SkipReason = "sibling-image"
	SkipNoContent             SkipReason = "no-content"
)

// Asset is one cataloged item: a file, an archive or a folder project.
type Asset struct {
	ID                int64
	Filename          string
	Filepath          string
	SourceID          int64
	FileSize          int64
	ThumbnailBlob     []byte
	ThumbnailAttempts int
	ThumbnailStatus   ThumbnailStatus
	SkipReason        SkipReason
	FolderPath        string
	Tags              string
	CreatedAt         time.Time
}

// State derives the thumbnail state of a.
func (a *Asset) State() ThumbnailState {
	return ThumbnailState{Status: a.ThumbnailStatus, Attempts: a.ThumbnailAttempts, Reason: a.SkipReason}
}

// PendingAsset is a selected backfill item joined with its source.
type PendingAsset struct {
	ID             int64
	Filename       string
	Filepath       string
	FolderPath     string
	Attempts       int
	SourceKind     SourceKind
	SourceLocation string
}

// ThumbnailState is the derived thumbnail lifecycle position of an asset.
type ThumbnailState struct {
	Status   ThumbnailStatus
	Attempts int
	Reason   SkipReason
}

// Name returns one of pending, retrying, exhausted, succeeded or skipped.
func (s ThumbnailState) Name() string {
	switch s.Status {
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	}
	switch {
	case s.Attempts <= 0:
		return "pending"
	case s.Attempts < MaxAttempts:
		return "retrying"
	default:
		return "exhausted"
	}
}

// Selectable reports whether the backfill scheduler may pick the asset.
func (s ThumbnailState) Selectable() bool {
	return s.Status == StatusPending && s.Attempts < MaxAttempts
}

func (s ThumbnailState) String() string {
	switch name := s.Name(); name {
	case "retrying":
		return fmt.Sprintf("retrying(%d)", s.Attempts)
	case "skipped":
		if s.Reason != "" {
			return fmt.Sprintf("skipped(%s)", s.Reason)
		}
		return name
	default:
		return name
	}
}

// StatusReport is the thumbnail state distribution of the catalog.
type StatusReport struct {
	States   map[string]int
	Reasons  map[SkipReason]int
	Attempts map[int]int // pending assets by attempt count
	Sources  int
	Total    int
}
