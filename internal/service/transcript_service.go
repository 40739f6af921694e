package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/export"
)

type finalGradeSource interface {
	ComputeFinalGrade(ctx context.Context, studentID, programID string) (*models.FinalGrade, error)
	Gradebook(ctx context.Context, programID string) ([]models.FinalGrade, error)
}

type gradeLedgerReader interface {
	ListByStudentProgram(ctx context.Context, studentID, programID string) ([]models.GradeRecord, error)
}

// TranscriptService renders grade reports.
type TranscriptService struct {
	grades finalGradeSource
	ledger gradeLedgerReader
	pdf    *export.PDFExporter
	csv    *export.CSVExporter
	logger *zap.Logger
}

// NewTranscriptService constructs TranscriptService.
func NewTranscriptService(grades finalGradeSource, ledger gradeLedgerReader, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		grades: grades,
		ledger: ledger,
		pdf:    export.NewPDFExporter(),
		csv:    export.NewCSVExporter(),
		logger: logger,
	}
}

// TranscriptPDF renders a student's ledger and final grade.
func (s *TranscriptService) TranscriptPDF(ctx context.Context, studentID, programID string) ([]byte, error) {
	final, err := s.grades.ComputeFinalGrade(ctx, studentID, programID)
	if err != nil {
		return nil, err
	}
	records, err := s.ledger.ListByStudentProgram(ctx, studentID, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade ledger")
	}

	table := export.Dataset{Headers: []string{"Graded At", "Kind", "Assignment", "Score", "Weighted"}}
	for _, r := range records {
		kind, score, weighted, assignment := "workbook", "", "", ""
		if r.AssignmentID != nil {
			assignment = *r.AssignmentID
		}
		if r.ExamGrade != nil {
			kind = "exam"
			score = formatScore(*r.ExamGrade)
		} else if r.WorkbookGrade != nil {
			score = formatScore(*r.WorkbookGrade)
		}
		if r.WeightedGrade != nil {
			weighted = formatScore(*r.WeightedGrade)
		}
		table.Rows = append(table.Rows, []string{r.GradedAt.Format(time.DateOnly), kind, assignment, score, weighted})
	}

	exam := "-"
	if final.ExamScore != nil {
		exam = formatScore(*final.ExamScore)
	}
	doc := export.Document{
		Title: "Academic Transcript",
		Summary: []export.Field{
			{Label: "Student", Value: studentID},
			{Label: "Program", Value: programID},
			{Label: "Workbook average", Value: formatScore(final.WorkbookAverage)},
			{Label: "Exam score", Value: exam},
			{Label: "Final grade", Value: formatScore(final.FinalGrade)},
			{Label: "Letter", Value: final.Letter},
			{Label: "Result", Value: passLabel(final.Passed)},
			{Label: "Assignments", Value: fmt.Sprintf("%d graded / %d submitted / %d total", final.AssignmentsGraded, final.AssignmentsSubmitted, final.TotalAssignments)},
		},
		Table:  table,
		Footer: "Generated " + final.ComputedAt.Format(time.RFC3339),
	}
	body, err := s.pdf.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	return body, nil
}

// GradebookCSV renders the final grades of a program as CSV.
func (s *TranscriptService) GradebookCSV(ctx context.Context, programID string) ([]byte, error) {
	grades, err := s.grades.Gradebook(ctx, programID)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Headers: []string{"student_id", "workbook_average", "exam_score", "final_grade", "letter", "passed", "assignments_graded", "assignments_submitted"}}
	for _, g := range grades {
		exam := ""
		if g.ExamScore != nil {
			exam = formatScore(*g.ExamScore)
		}
		data.Rows = append(data.Rows, []string{
			g.StudentID,
			formatScore(g.WorkbookAverage),
			exam,
			formatScore(g.FinalGrade),
			g.Letter,
			strconv.FormatBool(g.Passed),
			strconv.Itoa(g.AssignmentsGraded),
			strconv.Itoa(g.AssignmentsSubmitted),
		})
	}
	body, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render gradebook")
	}
	return body, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func passLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
