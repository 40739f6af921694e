package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/middleware"
	"github.com/raveone/lms-api/internal/models"
)

// Handlers groups every API handler mounted under the API prefix.
type Handlers struct {
	Drip        *DripHandler
	Enrollments *EnrollmentHandler
	Assignments *AssignmentHandler
	Grades      *GradeHandler
	Exams       *ExamHandler
	Batches     *BatchHandler
	Sessions    *SessionHandler
	Dispatch    *DispatchHandler
}

// RegisterRoutes mounts the REST surface on api. The legacy dispatcher
// validates its own token and is mounted only when dispatch is non-nil.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, auth middleware.TokenValidator) {
	if h.Dispatch != nil {
		api.POST("/rpc", h.Dispatch.Dispatch)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	admin := middleware.RequireRoles(models.RoleAdmin)
	staffOrSelf := middleware.StaffOrSelf()

	secured.GET("/enrollments/:id/lessons", h.Drip.Lessons)
	secured.POST("/enrollments/:id/refresh", h.Drip.Refresh)
	secured.GET("/enrollments/:id/progress", h.Drip.Progress)
	secured.POST("/lessons/:lessonId/complete", h.Drip.Complete)
	secured.GET("/programs/:programId/lessons", h.Drip.Syllabus)

	secured.POST("/enrollments", admin, h.Enrollments.Create)
	secured.GET("/students/:studentId/enrollments", staffOrSelf, h.Enrollments.ListForStudent)

	secured.POST("/assignments", h.Assignments.Submit)
	secured.POST("/assignments/upload", h.Assignments.Upload)
	secured.POST("/assignments/:id/grade", staff, h.Assignments.Grade)
	secured.GET("/students/:studentId/assignments", staffOrSelf, h.Assignments.ListForStudent)

	secured.POST("/exam-scores", staff, h.Grades.RecordExamScore)
	secured.GET("/grades/:studentId/:programId", staffOrSelf, h.Grades.FinalGrade)
	secured.GET("/grades/:studentId/:programId/transcript.pdf", staffOrSelf, h.Grades.Transcript)
	secured.GET("/programs/:programId/gradebook.csv", staff, h.Grades.Gradebook)

	secured.POST("/exam-slots", admin, h.Exams.CreateSlots)
	secured.GET("/exam-slots", h.Exams.ListSlots)
	secured.POST("/exam-slots/:id/book", h.Exams.Book)
	secured.POST("/bookings/:id/cancel", h.Exams.Cancel)

	secured.POST("/batches", admin, h.Batches.Create)
	secured.GET("/batches", h.Batches.List)
	secured.POST("/batches/:id/sessions", admin, h.Sessions.Create)
	secured.GET("/batches/:id/sessions/today", h.Sessions.Today)
}
