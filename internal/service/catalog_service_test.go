package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

type mockStudentStore struct {
	students map[string]*models.Student
	updated  []*models.Student
}

func (m *mockStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentStore) List(ctx context.Context, search string, p models.Pagination) ([]models.Student, int, error) {
	var out []models.Student
	for _, s := range m.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStudentStore) Create(ctx context.Context, student *models.Student) error {
	student.ID = "stu-new"
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentStore) Update(ctx context.Context, student *models.Student) error {
	m.updated = append(m.updated, student)
	return nil
}

type mockCourseStore struct {
	courses map[string]*models.Course
	prereqs map[string][]string
}

func (m *mockCourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStore) List(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCourseStore) Create(ctx context.Context, course *models.Course) error {
	course.ID = "course-new"
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseStore) AddPrerequisite(ctx context.Context, courseID, prereqID string) error {
	if m.prereqs == nil {
		m.prereqs = make(map[string][]string)
	}
	m.prereqs[courseID] = append(m.prereqs[courseID], prereqID)
	return nil
}

type mockFacultyStore struct {
	faculty []*models.Faculty
}

func (m *mockFacultyStore) List(ctx context.Context) ([]models.Faculty, error) {
	var out []models.Faculty
	for _, f := range m.faculty {
		out = append(out, *f)
	}
	return out, nil
}

func (m *mockFacultyStore) Create(ctx context.Context, faculty *models.Faculty) error {
	faculty.ID = "fac-new"
	m.faculty = append(m.faculty, faculty)
	return nil
}

type catalogFixture struct {
	svc      *CatalogService
	students *mockStudentStore
	courses  *mockCourseStore
	faculty  *mockFacultyStore
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	students := &mockStudentStore{students: map[string]*models.Student{}}
	courses := &mockCourseStore{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Code: "CS101", Title: "Intro to Computing", CreditHours: 3},
		"course-2": {ID: "course-2", Code: "CS201", Title: "Data Structures", CreditHours: 3},
	}}
	faculty := &mockFacultyStore{}
	svc := NewCatalogService(students, courses, faculty, nil, nil)
	return &catalogFixture{svc: svc, students: students, courses: courses, faculty: faculty}
}

func TestCreateStudent(t *testing.T) {
	f := newCatalogFixture(t)

	student, err := f.svc.CreateStudent(context.Background(), CreateStudentRequest{
		StudentNo: "2026-0042",
		Username:  "alice",
		FullName:  "Alice Liddell",
		Email:     "alice@example.edu",
		Program:   "Computer Science",
	})
	require.NoError(t, err)
	assert.Equal(t, "stu-new", student.ID)
	assert.True(t, student.Active, "new students start active")

	_, err = f.svc.CreateStudent(context.Background(), CreateStudentRequest{Username: "bob"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestUpdateStudent(t *testing.T) {
	f := newCatalogFixture(t)
	f.students.students["stu-1"] = &models.Student{ID: "stu-1", Username: "alice", Active: true}
	inactive := false

	student, err := f.svc.UpdateStudent(context.Background(), "stu-1", UpdateStudentRequest{
		FullName: "Alice Liddell",
		Email:    "alice@example.edu",
		Active:   &inactive,
	})
	require.NoError(t, err)
	assert.False(t, student.Active)
	require.Len(t, f.students.updated, 1)

	_, err = f.svc.UpdateStudent(context.Background(), "stu-missing", UpdateStudentRequest{
		FullName: "Nobody", Email: "nobody@example.edu", Active: &inactive,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestCreateCourse(t *testing.T) {
	f := newCatalogFixture(t)

	course, err := f.svc.CreateCourse(context.Background(), CreateCourseRequest{
		Code: "CS301", Title: "Operating Systems", CreditHours: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "course-new", course.ID)

	_, err = f.svc.CreateCourse(context.Background(), CreateCourseRequest{Code: "CS999", Title: "Zero Credits"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAddPrerequisite(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	err := f.svc.AddPrerequisite(ctx, "course-2", AddPrerequisiteRequest{PrerequisiteID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"course-1"}, f.courses.prereqs["course-2"])

	err = f.svc.AddPrerequisite(ctx, "course-2", AddPrerequisiteRequest{PrerequisiteID: "course-2"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	err = f.svc.AddPrerequisite(ctx, "course-2", AddPrerequisiteRequest{PrerequisiteID: "course-missing"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	err = f.svc.AddPrerequisite(ctx, "course-missing", AddPrerequisiteRequest{PrerequisiteID: "course-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestCreateFaculty(t *testing.T) {
	f := newCatalogFixture(t)

	faculty, err := f.svc.CreateFaculty(context.Background(), CreateFacultyRequest{
		Username: "turing", FullName: "Alan Turing", Email: "turing@example.edu", Department: "CS",
	})
	require.NoError(t, err)
	assert.Equal(t, "fac-new", faculty.ID)

	listed, err := f.svc.ListFaculty(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "turing", listed[0].Username)
}
