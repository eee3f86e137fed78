package docsvc

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/student"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	header int // style
}

func newWorkbook(firstSheet string) (*excelize.File, *sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", firstSheet); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return f, &sheetWriter{f: f, sheet: firstSheet, header: style}, nil
}

func (sw *sheetWriter) newSheet(name string) (*sheetWriter, error) {
	if _, err := sw.f.NewSheet(name); err != nil {
		return nil, err
	}
	return &sheetWriter{f: sw.f, sheet: name, header: sw.header}, nil
}

func (sw *sheetWriter) writeHeader(cols ...string) error {
	if err := sw.writeRow(toCells(cols)); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), sw.row)
	if err != nil {
		return err
	}
	if err := sw.f.SetCellStyle(sw.sheet, "A1", last, sw.header); err != nil {
		return err
	}
	return sw.f.SetPanes(sw.sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (sw *sheetWriter) writeRow(cells []interface{}) error {
	sw.row++
	cell, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		return err
	}
	return sw.f.SetSheetRow(sw.sheet, cell, &cells)
}

func toCells(vals []string) []interface{} {
	cells := make([]interface{}, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return cells
}

// WriteLedger writes the receipts as an XLSX workbook, with a totals row.
func WriteLedger(w io.Writer, entries []fee.LedgerEntry) error {
	f, sw, err := newWorkbook("Ledger")
	if err != nil {
		return errors.Wrap(err, "creating ledger workbook")
	}
	defer f.Close()

	if err := sw.writeHeader("Receipt No", "Paid At", "Enrollment No", "Student", "Mode", "Reference", "Amount", "Remarks"); err != nil {
		return errors.Wrap(err, "writing ledger header")
	}
	var totalCents int64
	for _, e := range entries {
		totalCents += core.ToCents(e.Amount)
		row := []interface{}{e.ReceiptNo, e.PaidAt.Format(time.RFC3339), e.EnrollmentNo, e.StudentName, e.Mode, e.Reference, e.Amount, e.Remarks}
		if err := sw.writeRow(row); err != nil {
			return errors.Wrap(err, "writing ledger row")
		}
	}
	if err := sw.writeRow([]interface{}{"Total", "", "", "", "", "", core.FromCents(totalCents), ""}); err != nil {
		return errors.Wrap(err, "writing ledger totals")
	}
	return f.Write(w)
}

// WriteAttendance writes the records & their per-subject summaries as an XLSX workbook.
// names maps student IDs to "<enrollment no> <name>" labels; unknown IDs are written as is.
func WriteAttendance(w io.Writer, records []attendance.Record, summaries []attendance.SubjectSummary, names map[string]string) error {
	f, sw, err := newWorkbook("Records")
	if err != nil {
		return errors.Wrap(err, "creating attendance workbook")
	}
	defer f.Close()

	label := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return id
	}

	if err := sw.writeHeader("Date", "Student", "Subject", "Status"); err != nil {
		return errors.Wrap(err, "writing attendance header")
	}
	for _, r := range records {
		if err := sw.writeRow([]interface{}{r.Date.String(), label(r.StudentID), r.SubjectCode, r.Status}); err != nil {
			return errors.Wrap(err, "writing attendance row")
		}
	}

	summarySheet, err := sw.newSheet("Summary")
	if err != nil {
		return errors.Wrap(err, "creating summary sheet")
	}
	if err := summarySheet.writeHeader("Student", "Subject", "Total", "Attended", "Present", "Late", "Absent", "Excused", "Percentage"); err != nil {
		return errors.Wrap(err, "writing summary header")
	}
	for _, s := range summaries {
		row := []interface{}{label(s.StudentID), s.SubjectCode, s.Total, s.Attended, s.Present, s.Late, s.Absent, s.Excused, s.Percentage}
		if err := summarySheet.writeRow(row); err != nil {
			return errors.Wrap(err, "writing summary row")
		}
	}
	return f.Write(w)
}

// import columns
const (
	colName = iota
	colEmail
	colPhone
	colCourse
	colSemester
	colBatch
	colSession
	colGuardianName
	colGuardianPhone
	colAddress
	colDateOfBirth
	colCount
)

var headerAliases = map[string]int{
	"name": colName, "student name": colName, "full name": colName,
	"email": colEmail, "e mail": colEmail, "email address": colEmail,
	"phone": colPhone, "mobile": colPhone, "phone number": colPhone, "contact number": colPhone,
	"course": colCourse, "course code": colCourse, "program": colCourse,
	"semester": colSemester, "sem": colSemester,
	"batch": colBatch, "section": colBatch,
	"session": colSession, "session id": colSession, "academic session": colSession,
	"guardian": colGuardianName, "guardian name": colGuardianName, "parent name": colGuardianName,
	"guardian phone": colGuardianPhone, "parent phone": colGuardianPhone,
	"address": colAddress,
	"dob": colDateOfBirth, "date of birth": colDateOfBirth, "birth date": colDateOfBirth,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("_", " ", ".", "", "-", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

func detectColumns(headers []string) ([]int, error) {
	indices := make([]int, colCount)
	for i := range indices {
		indices[i] = -1
	}
	for i, h := range headers {
		if col, ok := headerAliases[normalizeHeader(h)]; ok && indices[col] < 0 {
			indices[col] = i
		}
	}
	var missing []string
	for col, name := range map[int]string{colName: "name", colEmail: "email", colCourse: "course", colSemester: "semester", colSession: "session"} {
		if indices[col] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "missing columns: " + strings.Join(missing, ", ")})
	}
	return indices, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseStudents reads students from the first sheet of an XLSX workbook.
// The header row is matched loosely (ex: "Student Name", "E-mail"); empty rows are skipped.
// Rows are numbered as in the sheet (the header is row 1).
func ParseStudents(r io.Reader) ([]student.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "file", Error: "not a valid XLSX file"})
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "no sheets found"})
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	if len(rows) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "no data in sheet"})
	}

	cols, err := detectColumns(rows[0])
	if err != nil {
		return nil, err
	}

	imported := make([]student.ImportRow, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		ns := student.NewStudent{
			Name:          field(row, cols[colName]),
			Email:         field(row, cols[colEmail]),
			Phone:         field(row, cols[colPhone]),
			Batch:         field(row, cols[colBatch]),
			SessionID:     field(row, cols[colSession]),
			GuardianName:  field(row, cols[colGuardianName]),
			GuardianPhone: field(row, cols[colGuardianPhone]),
			Address:       field(row, cols[colAddress]),
		}
		// invalid numbers & dates are left zero, so validation reports them
		if sem, err := strconv.Atoi(field(row, cols[colSemester])); err == nil {
			ns.Semester = sem
		}
		if dob := field(row, cols[colDateOfBirth]); dob != "" {
			if d, err := core.ParseDate(dob); err == nil {
				ns.DateOfBirth = d
			}
		}
		imported = append(imported, student.ImportRow{
			Row:        i + 1,
			CourseCode: strings.ToUpper(field(row, cols[colCourse])),
			Student:    ns,
		})
	}
	return imported, nil
}

// WriteStudentTemplate writes an empty import workbook with the expected headers.
func WriteStudentTemplate(w io.Writer) error {
	f, sw, err := newWorkbook("Students")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := sw.writeHeader("Name", "Email", "Phone", "Course", "Semester", "Batch", "Session", "Guardian Name", "Guardian Phone", "Address", "Date of Birth"); err != nil {
		return err
	}
	return f.Write(w)
}
