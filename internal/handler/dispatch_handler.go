package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/middleware"
	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/response"
)

// DispatchRequest is the single-endpoint envelope of the legacy web client.
type DispatchRequest struct {
	Endpoint string          `json:"endpoint" binding:"required"`
	Data     json.RawMessage `json:"data"`
	Token    string          `json:"token"`
}

type dispatchFunc func(c *gin.Context, data json.RawMessage) (interface{}, int, error)

// DispatchHandler routes legacy {endpoint, data, token} calls to the same
// services as the REST routes.
type DispatchHandler struct {
	auth   middleware.TokenValidator
	routes map[string]dispatchFunc
}

// DispatchServices groups the services reachable through the dispatcher.
type DispatchServices struct {
	Drip        dripService
	Enrollments enrollmentService
	Assignments assignmentService
	Grades      gradeService
	Exams       examService
	Sessions    sessionService
}

// NewDispatchHandler constructs handler.
func NewDispatchHandler(auth middleware.TokenValidator, svc DispatchServices) *DispatchHandler {
	h := &DispatchHandler{auth: auth}
	h.routes = map[string]dispatchFunc{
		"drip/progress":      dripProgress(svc.Drip),
		"drip/complete":      dripComplete(svc.Drip),
		"lessons/list":       lessonsList(svc.Drip),
		"batches/sessions":   batchSessions(svc.Sessions),
		"assignments/submit": assignmentSubmit(svc.Assignments),
		"assignments/grade":  staffOnly(assignmentGrade(svc.Assignments)),
		"exams/book":         examBook(svc.Exams),
		"exams/cancel":       examCancel(svc.Exams),
		"exams/slots":        examSlots(svc.Exams),
		"enroll/create":      adminOnly(enrollCreate(svc.Enrollments)),
		"enroll/status":      enrollStatus(svc.Enrollments),
		"grades/calculate":   gradesCalculate(svc.Grades),
	}
	return h
}

// Dispatch godoc
// @Summary Legacy single-endpoint dispatcher
// @Tags Legacy
// @Accept json
// @Produce json
// @Param payload body DispatchRequest true "Dispatch payload"
// @Success 200 {object} response.Envelope
// @Router /rpc [post]
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if !bindJSON(c, &req) {
		return
	}

	token := req.Token
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.ContextUserKey, claims)

	route, ok := h.routes[req.Endpoint]
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown endpoint "+req.Endpoint))
		return
	}
	result, status, err := route(c, req.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, middleware.MetaEndpoint, req.Endpoint)
	response.JSON(c, status, result, nil, middleware.ExtractMeta(c))
}

func decode(data json.RawMessage, dst interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid data")
	}
	return nil
}

func staffOnly(next dispatchFunc) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		if !isStaff(c) {
			return nil, 0, appErrors.ErrForbidden
		}
		return next(c, data)
	}
}

func adminOnly(next dispatchFunc) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		claims := claimsFromContext(c)
		if claims == nil || claims.Role != models.RoleAdmin {
			return nil, 0, appErrors.ErrForbidden
		}
		return next(c, data)
	}
}

func ctxOf(c *gin.Context) context.Context { return c.Request.Context() }

func dripProgress(drip dripService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			EnrollmentID string `json:"enrollment_id"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		if err := authorizeEnrollment(c, drip, in.EnrollmentID); err != nil {
			return nil, 0, err
		}
		summary, err := drip.ProgressSummary(ctxOf(c), in.EnrollmentID)
		if err != nil {
			return nil, 0, err
		}
		return summary, http.StatusOK, nil
	}
}

func dripComplete(drip dripService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			LessonID  string `json:"lesson_id"`
			StudentID string `json:"student_id"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		studentID, err := studentScope(c, in.StudentID)
		if err != nil {
			return nil, 0, err
		}
		progress, err := drip.RecordCompletion(ctxOf(c), studentID, in.LessonID)
		return progress, http.StatusCreated, err
	}
}

func lessonsList(drip dripService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			ProgramID string `json:"program_id"`
			CourseID  string `json:"courseId"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		programID := in.ProgramID
		if programID == "" {
			programID = in.CourseID
		}
		lessons, err := drip.ListLessons(ctxOf(c), programID)
		if err != nil {
			return nil, 0, err
		}
		return syllabusFor(c, lessons), http.StatusOK, nil
	}
}

func batchSessions(sessions sessionService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			BatchID string `json:"batch_id"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		today, err := sessions.TodaysSessions(ctxOf(c), in.BatchID)
		return today, http.StatusOK, err
	}
}

func assignmentSubmit(assignments assignmentService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in models.SubmitAssignmentRequest
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		studentID, err := studentScope(c, in.StudentID)
		if err != nil {
			return nil, 0, err
		}
		in.StudentID = studentID
		assignment, err := assignments.Submit(ctxOf(c), in)
		return assignment, http.StatusCreated, err
	}
}

func assignmentGrade(assignments assignmentService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			AssignmentID string  `json:"assignment_id"`
			Score        float64 `json:"score"`
			Feedback     string  `json:"feedback"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		assignment, err := assignments.Grade(ctxOf(c), in.AssignmentID, models.GradeAssignmentRequest{
			Score:    in.Score,
			Feedback: in.Feedback,
			GraderID: actorID(c),
		})
		return assignment, http.StatusOK, err
	}
}

func examBook(exams examService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			ExamID    string `json:"exam_id"`
			StudentID string `json:"student_id"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		studentID, err := studentScope(c, in.StudentID)
		if err != nil {
			return nil, 0, err
		}
		result, err := exams.Book(ctxOf(c), studentID, in.ExamID)
		return result, http.StatusCreated, err
	}
}

func examCancel(exams examService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			BookingID string `json:"booking_id"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		booking, err := exams.Cancel(ctxOf(c), in.BookingID, actorID(c), isStaff(c))
		return booking, http.StatusOK, err
	}
}

func examSlots(exams examService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			ProgramID string `json:"program_id"`
			BatchID   string `json:"batch_id"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		slots, err := exams.ListSlots(ctxOf(c), models.ExamSlotFilter{ProgramID: in.ProgramID, BatchID: in.BatchID})
		return slots, http.StatusOK, err
	}
}

func enrollCreate(enrollments enrollmentService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in models.CreateEnrollmentRequest
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		enrollment, err := enrollments.Enroll(ctxOf(c), in, actorID(c))
		return enrollment, http.StatusCreated, err
	}
}

func enrollStatus(enrollments enrollmentService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			StudentID string `json:"student_id"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		studentID, err := studentScope(c, in.StudentID)
		if err != nil {
			return nil, 0, err
		}
		list, err := enrollments.Status(ctxOf(c), studentID)
		return list, http.StatusOK, err
	}
}

func gradesCalculate(grades gradeService) dispatchFunc {
	return func(c *gin.Context, data json.RawMessage) (interface{}, int, error) {
		var in struct {
			StudentID string `json:"student_id"`
			ProgramID string `json:"program_id"`
		}
		if err := decode(data, &in); err != nil {
			return nil, 0, err
		}
		studentID, err := studentScope(c, in.StudentID)
		if err != nil {
			return nil, 0, err
		}
		grade, _, err := grades.FinalGrade(ctxOf(c), studentID, in.ProgramID)
		return grade, http.StatusOK, err
	}
}
