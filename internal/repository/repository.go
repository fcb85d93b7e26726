// Package repository defines the persistence interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"
	"time"

	"github.com/sakif/biobank/internal/model"
)

// ListOptions is skip/limit pagination. Limit <= 0 means no limit.
type ListOptions struct {
	Skip  int
	Limit int
}

// SampleFilter narrows sample queries. Zero values mean "no constraint".
// The owner is not part of the filter: every query takes it as a separate,
// mandatory parameter.
type SampleFilter struct {
	Type            model.SampleType
	Status          model.SampleStatus
	SubjectID       string
	CollectedFrom   time.Time
	CollectedTo     time.Time
	StorageLocation string // substring match
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	// ListUsers returns every account, oldest first. Used by the admin
	// tooling, never by request handlers.
	ListUsers(ctx context.Context) ([]model.User, error)
}

type SampleRepository interface {
	CreateSample(ctx context.Context, sample *model.Sample) error
	GetSampleByID(ctx context.Context, id string) (*model.Sample, error)
	// ListSamples returns one page of the owner's samples plus the total
	// count under the same filter.
	ListSamples(ctx context.Context, ownerID string, filter SampleFilter, opts ListOptions) ([]model.Sample, int, error)
	UpdateSample(ctx context.Context, sample *model.Sample) error
	DeleteSample(ctx context.Context, id string) error
	// SampleStats aggregates the owner's samples by status and type at the
	// query level. Every enum value appears as a bucket, zero-filled if
	// absent.
	SampleStats(ctx context.Context, ownerID string) (*model.SampleStats, error)
}
