package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ono-cafeteria/api/internal/database"
)

// StudentStore defines the database methods needed by student handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StudentStore interface {
	ListStudents(ctx context.Context) ([]database.Student, error)
	GetStudent(ctx context.Context, id uuid.UUID) (database.Student, error)
	CreateStudent(ctx context.Context, arg database.CreateStudentParams) (database.Student, error)
	UpdateStudent(ctx context.Context, arg database.UpdateStudentParams) (database.Student, error)
	SoftDeleteStudent(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountStudentConflicts(ctx context.Context, arg database.CountStudentConflictsParams) (int64, error)
}

// StudentHandler handles student roster CRUD endpoints.
type StudentHandler struct {
	store StudentStore
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(store StudentStore) *StudentHandler {
	return &StudentHandler{store: store}
}

// RegisterRoutes registers student CRUD endpoints on the given Chi router.
// Mounted admin-only at /students.
func (h *StudentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{sid}", h.Get)
	r.Put("/{sid}", h.Update)
	r.Delete("/{sid}", h.Delete)
}

// --- Request / Response types ---

type studentRequest struct {
	StudentID string `json:"studentId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type studentResponse struct {
	ID        uuid.UUID `json:"id"`
	StudentID string    `json:"studentId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
}

func toStudentResponse(s database.Student) studentResponse {
	return studentResponse{
		ID:        s.ID,
		StudentID: s.StudentID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Phone:     s.Phone,
		Email:     s.Email,
	}
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{9,15}$`)
)

// validate normalizes the form and returns the first field error.
func (req *studentRequest) validate() string {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)

	switch {
	case req.StudentID == "":
		return "studentId is required"
	case req.FirstName == "":
		return "firstName is required"
	case req.LastName == "":
		return "lastName is required"
	case !phonePattern.MatchString(req.Phone):
		return "phone must be 9-15 digits"
	case !emailPattern.MatchString(req.Email):
		return "invalid email format"
	}
	return ""
}

// --- Handlers ---

// List returns all active students.
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents(r.Context())
	if err != nil {
		log.Printf("ERROR: list students: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]studentResponse, len(students))
	for i, s := range students {
		resp[i] = toStudentResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single student by ID.
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student ID"})
		return
	}

	student, err := h.store.GetStudent(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "student not found"})
			return
		}
		log.Printf("ERROR: get student: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStudentResponse(student))
}

// Create adds a new student to the roster.
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	if h.hasConflict(w, r.Context(), req, uuid.Nil) {
		return
	}

	student, err := h.store.CreateStudent(r.Context(), database.CreateStudentParams{
		StudentID: req.StudentID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "studentId, phone, or email already in use"})
			return
		}
		log.Printf("ERROR: create student: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toStudentResponse(student))
}

// Update modifies an existing student.
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student ID"})
		return
	}

	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	if h.hasConflict(w, r.Context(), req, studentID) {
		return
	}

	student, err := h.store.UpdateStudent(r.Context(), database.UpdateStudentParams{
		ID:        studentID,
		StudentID: req.StudentID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "student not found"})
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "studentId, phone, or email already in use"})
			return
		}
		log.Printf("ERROR: update student: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStudentResponse(student))
}

// Delete soft-deletes a student so their order history stays readable.
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student ID"})
		return
	}

	_, err = h.store.SoftDeleteStudent(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "student not found"})
			return
		}
		log.Printf("ERROR: delete student: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// hasConflict writes a 409 and returns true when studentId/phone/email collide
// with another active student. The unique indexes remain the backstop for
// concurrent writes.
func (h *StudentHandler) hasConflict(w http.ResponseWriter, ctx context.Context, req studentRequest, excludeID uuid.UUID) bool {
	count, err := h.store.CountStudentConflicts(ctx, database.CountStudentConflictsParams{
		StudentID: req.StudentID,
		Phone:     req.Phone,
		Email:     req.Email,
		ExcludeID: excludeID,
	})
	if err != nil {
		log.Printf("ERROR: check student conflicts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return true
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "studentId, phone, or email already in use"})
		return true
	}
	return false
}
