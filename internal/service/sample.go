// Package service contains the business logic layer of the application.
// Handlers parse HTTP and delegate here; this layer validates input,
// enforces ownership and business rules, and orchestrates the repositories.
// It returns apperror values, never HTTP status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/sakif/biobank/internal/apperror"
	"github.com/sakif/biobank/internal/model"
	"github.com/sakif/biobank/internal/repository"
)

// Validation constants for sample fields and pagination.
const (
	MaxSubjectIDLength       = 50
	MaxStorageLocationLength = 100
	DefaultListLimit         = 20
	MaxListLimit             = 100

	// MaxCollectionAgeYears bounds how far back a collection date may lie.
	MaxCollectionAgeYears = 10

	dateLayout = "2006-01-02"
)

var (
	// Subject identifiers are uppercase letters followed by digits ("P001").
	// Input is uppercased before this pattern is applied.
	subjectIDPattern = regexp.MustCompile(`^[A-Z]+[0-9]+$`)

	// Storage locations name a unit, a position, and a slot ("freezer-1-rowA").
	storageLocationPattern = regexp.MustCompile(`^(freezer|fridge|room)-[0-9]+-[A-Za-z0-9]+$`)
)

// CreateSampleInput carries the fields needed to register a new sample.
// Status is optional and defaults to collected.
type CreateSampleInput struct {
	Type            model.SampleType   `json:"sample_type"`
	SubjectID       string             `json:"subject_id"`
	CollectionDate  string             `json:"collection_date"`
	Status          model.SampleStatus `json:"status"`
	StorageLocation string             `json:"storage_location"`
}

// Validate checks every field against the sample schema. The same rule set
// runs at create time and against the merged record at update time.
func (in CreateSampleInput) Validate() error {
	today := todayUTC()
	earliest := today.AddDate(-MaxCollectionAgeYears, 0, 0)

	return validation.ValidateStruct(&in,
		validation.Field(&in.Type,
			validation.Required,
			validation.In(model.SampleTypeBlood, model.SampleTypeSaliva, model.SampleTypeTissue).
				Error("must be one of blood, saliva, tissue"),
		),
		validation.Field(&in.SubjectID,
			validation.Required,
			validation.Length(2, MaxSubjectIDLength),
			validation.Match(subjectIDPattern).
				Error("must be letters followed by digits, like P001"),
		),
		validation.Field(&in.CollectionDate,
			validation.Required,
			validation.Date(dateLayout).
				Min(earliest).
				Max(today).
				RangeError(fmt.Sprintf("must not be in the future or more than %d years old", MaxCollectionAgeYears)),
		),
		validation.Field(&in.Status,
			validation.In(model.SampleStatusCollected, model.SampleStatusProcessing, model.SampleStatusArchived).
				Error("must be one of collected, processing, archived"),
		),
		validation.Field(&in.StorageLocation,
			validation.Length(0, MaxStorageLocationLength),
			validation.Match(storageLocationPattern).
				Error("must name a unit, position, and slot, like freezer-1-rowA"),
			validation.By(storageRuleForType(in.Type)),
		),
	)
}

// storageRuleForType enforces the tissue business rule: tissue degrades at
// fridge and room temperature, so tissue samples must be assigned freezer
// storage. Other types may leave the location empty.
func storageRuleForType(t model.SampleType) validation.RuleFunc {
	return func(value interface{}) error {
		if t != model.SampleTypeTissue {
			return nil
		}
		loc, _ := value.(string)
		if loc == "" {
			return errors.New("tissue samples require a storage location")
		}
		if !strings.HasPrefix(loc, "freezer-") {
			return errors.New("tissue samples must be stored in a freezer")
		}
		return nil
	}
}

// UpdateSampleInput is a partial sample update. Nil fields keep their
// current value; the owner is not among them, it never changes.
type UpdateSampleInput struct {
	Type            *model.SampleType   `json:"sample_type"`
	SubjectID       *string             `json:"subject_id"`
	CollectionDate  *string             `json:"collection_date"`
	Status          *model.SampleStatus `json:"status"`
	StorageLocation *string             `json:"storage_location"`
}

// ListSamplesInput carries list filters and pagination, straight from query
// parameters. Zero values mean "no filter".
type ListSamplesInput struct {
	Type            model.SampleType   `json:"sample_type"`
	Status          model.SampleStatus `json:"status"`
	SubjectID       string             `json:"subject_id"`
	CollectedFrom   string             `json:"collection_date_from"`
	CollectedTo     string             `json:"collection_date_to"`
	StorageLocation string             `json:"storage_location"`
	Skip            int                `json:"skip"`
	Limit           int                `json:"limit"`
}

// Validate checks the filter values. Pagination is clamped later, not
// rejected here.
func (in ListSamplesInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Type,
			validation.In(model.SampleTypeBlood, model.SampleTypeSaliva, model.SampleTypeTissue).
				Error("must be one of blood, saliva, tissue"),
		),
		validation.Field(&in.Status,
			validation.In(model.SampleStatusCollected, model.SampleStatusProcessing, model.SampleStatusArchived).
				Error("must be one of collected, processing, archived"),
		),
		validation.Field(&in.SubjectID, validation.Length(0, MaxSubjectIDLength)),
		validation.Field(&in.CollectedFrom, validation.Date(dateLayout)),
		validation.Field(&in.CollectedTo, validation.Date(dateLayout)),
	)
	if err != nil {
		return err
	}

	if in.CollectedFrom != "" && in.CollectedTo != "" {
		from, _ := time.Parse(dateLayout, in.CollectedFrom)
		to, _ := time.Parse(dateLayout, in.CollectedTo)
		if to.Before(from) {
			return validation.Errors{
				"collection_date_to": errors.New("must not be before collection_date_from"),
			}
		}
	}
	return nil
}

// SampleList is one page of results plus the pagination math the client
// needs: Total counts every match, Skip and Limit are the effective
// (clamped) values used.
type SampleList struct {
	Samples []model.Sample `json:"samples"`
	Total   int            `json:"total"`
	Skip    int            `json:"skip"`
	Limit   int            `json:"limit"`
}

// SampleService handles business logic for samples. Every operation takes
// the caller's user ID and scopes all repository access to it.
type SampleService struct {
	repo   repository.SampleRepository
	logger *slog.Logger
}

// NewSampleService creates a new SampleService.
func NewSampleService(repo repository.SampleRepository, logger *slog.Logger) *SampleService {
	return &SampleService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and stores a new sample owned by ownerID. The tracking
// identifier is generated here and never supplied by the caller.
func (s *SampleService) Create(ctx context.Context, ownerID string, in CreateSampleInput) (*model.Sample, error) {
	in.SubjectID = strings.ToUpper(strings.TrimSpace(in.SubjectID))
	in.StorageLocation = strings.TrimSpace(in.StorageLocation)

	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}
	if in.Status == "" {
		in.Status = model.SampleStatusCollected
	}

	collectionDate, err := parseCollectionDate(in.CollectionDate)
	if err != nil {
		return nil, err
	}

	sample := &model.Sample{
		SampleUUID:      uuid.NewString(),
		Type:            in.Type,
		SubjectID:       in.SubjectID,
		CollectionDate:  collectionDate,
		Status:          in.Status,
		StorageLocation: in.StorageLocation,
		UserID:          ownerID,
	}

	if err := s.repo.CreateSample(ctx, sample); err != nil {
		s.logger.Error("failed to create sample",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating sample: %w", err)
	}

	s.logger.Info("sample created",
		slog.String("id", sample.ID),
		slog.String("type", string(sample.Type)),
		slog.String("userID", ownerID),
	)

	return sample, nil
}

// Get returns a sample if it exists and belongs to ownerID.
func (s *SampleService) Get(ctx context.Context, ownerID, id string) (*model.Sample, error) {
	return s.ownedSample(ctx, ownerID, id)
}

// List returns a page of the owner's samples matching the filters, with the
// total match count. Skip below zero becomes zero; the limit is clamped to
// [1, MaxListLimit] with DefaultListLimit when unset.
func (s *SampleService) List(ctx context.Context, ownerID string, in ListSamplesInput) (*SampleList, error) {
	in.SubjectID = strings.ToUpper(strings.TrimSpace(in.SubjectID))

	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	skip := in.Skip
	if skip < 0 {
		skip = 0
	}

	filter := repository.SampleFilter{
		Type:            in.Type,
		Status:          in.Status,
		SubjectID:       in.SubjectID,
		StorageLocation: strings.TrimSpace(in.StorageLocation),
	}
	// Both parse after Validate; errors are impossible here.
	if in.CollectedFrom != "" {
		filter.CollectedFrom, _ = time.Parse(dateLayout, in.CollectedFrom)
	}
	if in.CollectedTo != "" {
		filter.CollectedTo, _ = time.Parse(dateLayout, in.CollectedTo)
	}

	samples, total, err := s.repo.ListSamples(ctx, ownerID, filter, repository.ListOptions{
		Skip:  skip,
		Limit: limit,
	})
	if err != nil {
		s.logger.Error("failed to list samples",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing samples: %w", err)
	}
	if samples == nil {
		samples = []model.Sample{}
	}

	return &SampleList{Samples: samples, Total: total, Skip: skip, Limit: limit}, nil
}

// Update applies a partial update to a sample owned by ownerID. The full
// rule set runs against the merged record, so changing the type to tissue
// fails unless the (old or new) storage location is a freezer.
func (s *SampleService) Update(ctx context.Context, ownerID, id string, in UpdateSampleInput) (*model.Sample, error) {
	sample, err := s.ownedSample(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	merged := CreateSampleInput{
		Type:            sample.Type,
		SubjectID:       sample.SubjectID,
		CollectionDate:  sample.CollectionDate.Format(dateLayout),
		Status:          sample.Status,
		StorageLocation: sample.StorageLocation,
	}
	if in.Type != nil {
		merged.Type = *in.Type
	}
	if in.SubjectID != nil {
		merged.SubjectID = strings.ToUpper(strings.TrimSpace(*in.SubjectID))
	}
	if in.CollectionDate != nil {
		merged.CollectionDate = *in.CollectionDate
	}
	if in.Status != nil {
		merged.Status = *in.Status
	}
	if in.StorageLocation != nil {
		merged.StorageLocation = strings.TrimSpace(*in.StorageLocation)
	}

	if err := merged.Validate(); err != nil {
		return nil, validationError(err)
	}

	collectionDate, err := parseCollectionDate(merged.CollectionDate)
	if err != nil {
		return nil, err
	}

	sample.Type = merged.Type
	sample.SubjectID = merged.SubjectID
	sample.CollectionDate = collectionDate
	sample.Status = merged.Status
	sample.StorageLocation = merged.StorageLocation

	if err := s.repo.UpdateSample(ctx, sample); err != nil {
		s.logger.Error("failed to update sample",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating sample: %w", err)
	}

	s.logger.Info("sample updated",
		slog.String("id", sample.ID),
		slog.String("userID", ownerID),
	)

	return sample, nil
}

// Delete permanently removes a sample owned by ownerID. There is no
// soft-delete.
func (s *SampleService) Delete(ctx context.Context, ownerID, id string) error {
	sample, err := s.ownedSample(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteSample(ctx, sample.ID); err != nil {
		return err
	}

	s.logger.Info("sample deleted",
		slog.String("id", sample.ID),
		slog.String("userID", ownerID),
	)
	return nil
}

// Statistics returns the owner's aggregate counts. The owner predicate is
// applied inside the aggregate queries, so other users' samples never enter
// the sums.
func (s *SampleService) Statistics(ctx context.Context, ownerID string) (*model.SampleStats, error) {
	stats, err := s.repo.SampleStats(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to compute sample statistics",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("computing sample statistics: %w", err)
	}
	return stats, nil
}

// BySubject returns all of the owner's samples for one subject. An unknown
// subject yields an empty list, not an error.
func (s *SampleService) BySubject(ctx context.Context, ownerID, subjectID string) ([]model.Sample, error) {
	subjectID = strings.ToUpper(strings.TrimSpace(subjectID))
	if subjectID == "" {
		return nil, apperror.ValidationFailed("subject_id", "subject ID is required")
	}

	samples, _, err := s.repo.ListSamples(ctx, ownerID,
		repository.SampleFilter{SubjectID: subjectID},
		repository.ListOptions{},
	)
	if err != nil {
		s.logger.Error("failed to list samples by subject",
			slog.String("subjectID", subjectID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing samples for subject %s: %w", subjectID, err)
	}
	if samples == nil {
		samples = []model.Sample{}
	}
	return samples, nil
}

// ownedSample fetches a sample and verifies ownership. A missing sample is
// NotFound; a sample owned by someone else is Forbidden. The same pair of
// outcomes backs Get, Update, and Delete.
func (s *SampleService) ownedSample(ctx context.Context, ownerID, id string) (*model.Sample, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "sample ID is required")
	}

	sample, err := s.repo.GetSampleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sample.UserID != ownerID {
		return nil, apperror.Forbidden("access denied to this sample")
	}
	return sample, nil
}

// parseCollectionDate parses a validated YYYY-MM-DD string. The result is
// midnight UTC, the canonical stored form.
func parseCollectionDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed("collection_date", "must be a date in YYYY-MM-DD form")
	}
	return d, nil
}

// todayUTC returns the current date at midnight UTC.
func todayUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
