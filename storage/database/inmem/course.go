package inmemdb

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/campuserp/erp/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

// copyCourse deep copies c so that callers never share the stored semesters.
func copyCourse(c course.Course) course.Course {
	b, _ := json.Marshal(c.Semesters)
	c.Semesters = nil
	_ = json.Unmarshal(b, &c.Semesters)
	if c.Semesters == nil {
		c.Semesters = []course.Semester{}
	}
	return c
}

func (repo *courseRepository) CheckCodeUniqueness(_ context.Context, code, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, c := range repo.db.table {
		if c.ID != excludedID && strings.EqualFold(c.Code, code) {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	c.ID = newID()
	stored := copyCourse(c)
	repo.db.table[c.ID] = &stored
	return c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		if filter.Matches(*c) {
			courses = append(courses, copyCourse(*c))
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if c, ok := repo.db.table[id]; ok {
		return copyCourse(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByCode(_ context.Context, code string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, c := range repo.db.table {
		if strings.EqualFold(c.Code, code) {
			return copyCourse(*c), nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	stored := copyCourse(c)
	repo.db.table[c.ID] = &stored
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
