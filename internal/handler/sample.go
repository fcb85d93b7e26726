package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/biobank/internal/apperror"
	"github.com/sakif/biobank/internal/auth"
	"github.com/sakif/biobank/internal/model"
	"github.com/sakif/biobank/internal/service"
)

// SampleHandler exposes the sample CRUD and reporting endpoints. Every
// route sits behind RequireAuth, and the authenticated user is the owner
// scope for the operation; there is no way to address another user's data.
type SampleHandler struct {
	samples *service.SampleService
	logger  *slog.Logger
}

// NewSampleHandler creates a SampleHandler.
func NewSampleHandler(samples *service.SampleService, logger *slog.Logger) *SampleHandler {
	return &SampleHandler{
		samples: samples,
		logger:  logger,
	}
}

// ownerID returns the authenticated user's ID. RequireAuth guarantees a
// user on these routes; the false branch only triggers on a routing bug.
func ownerID(r *http.Request) (string, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return "", false
	}
	return user.ID, true
}

// HandleCreate registers a new sample owned by the caller.
//
// HTTP: POST /api/v1/samples
// BODY: {"sample_type": "blood", "subject_id": "P001",
//        "collection_date": "2026-06-01", "storage_location": "freezer-1-rowA"}
func (h *SampleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	var in service.CreateSampleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	sample, err := h.samples.Create(r.Context(), owner, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sample)
}

// HandleList returns a page of the caller's samples.
//
// HTTP: GET /api/v1/samples?sample_type=&status=&subject_id=&
//       collection_date_from=&collection_date_to=&storage_location=&skip=&limit=
func (h *SampleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	in, err := listInputFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.samples.List(r.Context(), owner, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleGet returns one of the caller's samples by ID.
//
// HTTP: GET /api/v1/samples/{id}
func (h *SampleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	sample, err := h.samples.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sample)
}

// HandleUpdate applies a partial update to one of the caller's samples.
//
// HTTP: PUT /api/v1/samples/{id}
// BODY: any subset of the create fields, e.g. {"status": "archived"}
func (h *SampleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	var in service.UpdateSampleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	sample, err := h.samples.Update(r.Context(), owner, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sample)
}

// HandleDelete permanently removes one of the caller's samples.
//
// HTTP: DELETE /api/v1/samples/{id}
func (h *SampleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	if err := h.samples.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Sample deleted successfully"})
}

// HandleStatistics returns aggregate counts over the caller's samples.
//
// HTTP: GET /api/v1/samples/statistics
func (h *SampleHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	stats, err := h.samples.Statistics(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleBySubject returns all of the caller's samples for one subject.
//
// HTTP: GET /api/v1/samples/subject/{subjectID}
func (h *SampleHandler) HandleBySubject(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	samples, err := h.samples.BySubject(r.Context(), owner, chi.URLParam(r, "subjectID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, samples)
}

// listInputFromQuery maps query parameters onto the list input. Unknown
// parameters are ignored; non-numeric skip or limit is a validation error.
func listInputFromQuery(q url.Values) (service.ListSamplesInput, error) {
	in := service.ListSamplesInput{
		Type:            model.SampleType(q.Get("sample_type")),
		Status:          model.SampleStatus(q.Get("status")),
		SubjectID:       q.Get("subject_id"),
		CollectedFrom:   q.Get("collection_date_from"),
		CollectedTo:     q.Get("collection_date_to"),
		StorageLocation: q.Get("storage_location"),
	}

	var err error
	if in.Skip, err = intQueryParam(q, "skip"); err != nil {
		return in, err
	}
	if in.Limit, err = intQueryParam(q, "limit"); err != nil {
		return in, err
	}
	return in, nil
}

func intQueryParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, "must be an integer")
	}
	return n, nil
}
