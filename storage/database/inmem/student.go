package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/student"
)

var studentComparators = map[string]core.Comparator[student.Student]{
	"enrollment_no": func(a, b student.Student) int { return core.CompareStrings(a.EnrollmentNo, b.EnrollmentNo) },
	"name":          func(a, b student.Student) int { return core.CompareStrings(a.Name, b.Name) },
	"semester":      func(a, b student.Student) int { return core.CompareInts(a.Semester, b.Semester) },
	"created_at":    func(a, b student.Student) int { return core.CompareTimes(a.CreatedAt, b.CreatedAt) },
}

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CheckEmailUniqueness(_ context.Context, email, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, s := range repo.db.table {
		if s.ID != excludedID && s.Email == email {
			return student.ErrEmailExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, other := range repo.db.table {
		if other.Email == s.Email {
			return student.Student{}, core.NewValidationError(student.ErrEmailExists, core.FieldError{Field: "email", Error: student.ErrEmailExists.Error()})
		}
	}
	s.ID = newID()
	stored := s
	repo.db.table[s.ID] = &stored
	return s, nil
}

func matchStudent(s student.Student, filter student.QueryFilter) bool {
	if filter.Search != "" {
		q := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strings.ToLower(s.Email), q) &&
			!strings.Contains(strings.ToLower(s.EnrollmentNo), q) {
			return false
		}
	}
	switch {
	case filter.CourseID != "" && s.CourseID != filter.CourseID:
		return false
	case filter.Semester > 0 && s.Semester != filter.Semester:
		return false
	case filter.SessionID != "" && s.SessionID != filter.SessionID:
		return false
	case filter.Batch != "" && s.Batch != filter.Batch:
		return false
	}
	return true
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if matchStudent(*s, filter) {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].EnrollmentNo < students[j].EnrollmentNo })
	if err := core.SortSlice(students, ordering, studentComparators); err != nil {
		return nil, err
	}
	return students, nil
}

func (repo *studentRepository) find(match func(s *student.Student) bool) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, s := range repo.db.table {
		if match(s) {
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	return repo.find(func(s *student.Student) bool { return s.ID == id })
}

func (repo *studentRepository) GetStudentByUserID(_ context.Context, userID string) (student.Student, error) {
	return repo.find(func(s *student.Student) bool { return s.UserID == userID })
}

func (repo *studentRepository) GetStudentByEnrollmentNo(_ context.Context, enrollmentNo string) (student.Student, error) {
	return repo.find(func(s *student.Student) bool { return s.EnrollmentNo == enrollmentNo })
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	stored := s
	repo.db.table[s.ID] = &stored
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
