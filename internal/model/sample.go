package model

import "time"

// SampleType enumerates the kinds of biological specimen the system tracks.
type SampleType string

const (
	SampleTypeBlood  SampleType = "blood"
	SampleTypeSaliva SampleType = "saliva"
	SampleTypeTissue SampleType = "tissue"
)

// SampleTypes lists every valid type, in the order statistics buckets are
// reported.
var SampleTypes = []SampleType{SampleTypeBlood, SampleTypeSaliva, SampleTypeTissue}

func (t SampleType) Valid() bool {
	switch t {
	case SampleTypeBlood, SampleTypeSaliva, SampleTypeTissue:
		return true
	}
	return false
}

// SampleStatus enumerates the processing states of a sample. The enumeration
// is closed; status is caller-supplied on update, not system-driven.
type SampleStatus string

const (
	SampleStatusCollected  SampleStatus = "collected"
	SampleStatusProcessing SampleStatus = "processing"
	SampleStatusArchived   SampleStatus = "archived"
)

// SampleStatuses lists every valid status, in the order statistics buckets
// are reported.
var SampleStatuses = []SampleStatus{SampleStatusCollected, SampleStatusProcessing, SampleStatusArchived}

func (s SampleStatus) Valid() bool {
	switch s {
	case SampleStatusCollected, SampleStatusProcessing, SampleStatusArchived:
		return true
	}
	return false
}

// Sample is a tracked biological specimen. ID is the REST resource id;
// SampleUUID is the externally-facing tracking identifier printed on the
// physical specimen, exposed as sample_id. UserID is the owner, set at
// creation and immutable.
type Sample struct {
	ID              string       `json:"id"`
	SampleUUID      string       `json:"sample_id"`
	Type            SampleType   `json:"sample_type"`
	SubjectID       string       `json:"subject_id"`
	CollectionDate  time.Time    `json:"collection_date"`
	Status          SampleStatus `json:"status"`
	StorageLocation string       `json:"storage_location,omitempty"`
	UserID          string       `json:"user_id"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// SampleStats holds per-owner aggregate counts. Every enum value appears as
// a bucket, zero or not, and Total always equals the sum of either map.
type SampleStats struct {
	Total    int                  `json:"total"`
	ByStatus map[SampleStatus]int `json:"by_status"`
	ByType   map[SampleType]int   `json:"by_type"`
}
