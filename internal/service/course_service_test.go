package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/repository/repotest"
)

type mockPosterStore struct {
	uploads   int
	deleted   []string
	uploadErr error
	deleteErr error
}

func (m *mockPosterStore) Upload(_ context.Context, filename, _ string, r io.Reader) (domain.Poster, error) {
	if m.uploadErr != nil {
		return domain.Poster{}, m.uploadErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return domain.Poster{}, err
	}
	m.uploads++
	id := "posters/" + strings.TrimSuffix(filename, ".png")
	return domain.Poster{PublicID: id, URL: "https://cdn.test/" + id}, nil
}

func (m *mockPosterStore) Delete(_ context.Context, publicID string) error {
	m.deleted = append(m.deleted, publicID)
	return m.deleteErr
}

func validCourseInput(name string) CreateCourseInput {
	return CreateCourseInput{
		CourseName:    name,
		Title:         name + " title",
		Description:   "learn things",
		Lessons:       12,
		Price:         100,
		Duration:      "6 weeks",
		Phases:        []domain.Phase{{Title: "Basics", PhaseDuration: "2 weeks", Modules: []domain.Module{{Title: "Intro", Duration: "1h"}}}},
		SkillsCovered: []string{"html"},
		Poster:        &PosterUpload{Filename: "poster.png", ContentType: "image/png", Body: strings.NewReader("png")},
	}
}

func TestCourseServiceCreate(t *testing.T) {
	store := repotest.NewMemoryStore()
	posters := &mockPosterStore{}
	svc := NewCourseService(zap.NewNop(), store.Courses(), posters)

	course, err := svc.Create(context.Background(), validCourseInput("Web Development"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if course.Rating != domain.DefaultCourseRating || course.TotalEnrolled != 0 {
		t.Fatalf("expected default rating and zero enrollment, got %+v", course)
	}
	if course.Poster.PublicID != "posters/poster" || posters.uploads != 1 {
		t.Fatalf("expected uploaded poster, got %+v", course.Poster)
	}

	stored, err := svc.Get(context.Background(), course.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Phases) != 1 {
		t.Fatalf("expected curriculum on detail view")
	}
}

func TestCourseServiceCreate_Validation(t *testing.T) {
	svc := NewCourseService(zap.NewNop(), repotest.NewMemoryStore().Courses(), &mockPosterStore{})

	cases := map[string]func(*CreateCourseInput){
		"missing name":   func(in *CreateCourseInput) { in.CourseName = "" },
		"missing phases": func(in *CreateCourseInput) { in.Phases = nil },
		"missing skills": func(in *CreateCourseInput) { in.SkillsCovered = []string{} },
		"missing poster": func(in *CreateCourseInput) { in.Poster = nil },
		"zero price":     func(in *CreateCourseInput) { in.Price = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validCourseInput("Course")
			mutate(&in)
			if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCourseServiceCreate_UploadFailure(t *testing.T) {
	store := repotest.NewMemoryStore()
	svc := NewCourseService(zap.NewNop(), store.Courses(), &mockPosterStore{uploadErr: errors.New("bucket down")})

	if _, err := svc.Create(context.Background(), validCourseInput("Web")); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
	courses, _ := store.Courses().List(context.Background(), "")
	if len(courses) != 0 {
		t.Fatalf("expected no course persisted")
	}
}

func TestCourseServiceList_KeywordCaseInsensitive(t *testing.T) {
	store := repotest.NewMemoryStore()
	svc := NewCourseService(zap.NewNop(), store.Courses(), &mockPosterStore{})
	ctx := context.Background()

	for _, name := range []string{"Web Development", "WEBDEV Bootcamp", "Data Science"} {
		if _, err := svc.Create(ctx, validCourseInput(name)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	courses, err := svc.List(ctx, " web ")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(courses))
	}
	for _, c := range courses {
		if c.CourseName == "Data Science" {
			t.Fatalf("unexpected match %s", c.CourseName)
		}
		if c.Phases != nil {
			t.Fatalf("expected list view without curriculum")
		}
	}

	all, _ := svc.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected all courses without keyword, got %d", len(all))
	}
}

func TestCourseServiceUpdate_ReplacesPoster(t *testing.T) {
	store := repotest.NewMemoryStore()
	posters := &mockPosterStore{}
	svc := NewCourseService(zap.NewNop(), store.Courses(), posters)
	ctx := context.Background()

	course, err := svc.Create(ctx, validCourseInput("Web"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	price := int64(499)
	updated, err := svc.Update(ctx, course.ID, domain.CoursePatch{Price: &price}, &PosterUpload{Filename: "new.png", Body: strings.NewReader("new")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 499 || updated.CourseName != "Web" {
		t.Fatalf("expected partial update, got %+v", updated)
	}
	if updated.Poster.PublicID != "posters/new" {
		t.Fatalf("expected new poster, got %+v", updated.Poster)
	}
	if len(posters.deleted) != 1 || posters.deleted[0] != "posters/poster" {
		t.Fatalf("expected old poster deleted, got %v", posters.deleted)
	}
}

func TestCourseServiceUpdate_PreservesEnrollment(t *testing.T) {
	store := repotest.NewMemoryStore()
	svc := NewCourseService(zap.NewNop(), store.Courses(), &mockPosterStore{})
	ctx := context.Background()

	course, _ := svc.Create(ctx, validCourseInput("Web"))
	_ = store.Users().Create(ctx, domain.User{ID: "u1", Email: "u1@example.com"})
	if err := store.Orders().CreateWithEnrollment(ctx, domain.Order{ID: "o1", UserID: "u1", CourseIDs: []string{course.ID}, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	name := "Web 2"
	updated, err := svc.Update(ctx, course.ID, domain.CoursePatch{CourseName: &name}, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := svc.Get(ctx, course.ID)
	if updated.CourseName != "Web 2" || stored.TotalEnrolled != 1 {
		t.Fatalf("expected enrollment preserved, got %+v", stored)
	}
}

func TestCourseServiceUpdate_NotFound(t *testing.T) {
	posters := &mockPosterStore{}
	svc := NewCourseService(zap.NewNop(), repotest.NewMemoryStore().Courses(), posters)

	_, err := svc.Update(context.Background(), "missing", domain.CoursePatch{}, &PosterUpload{Filename: "x.png", Body: strings.NewReader("x")})
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
	if posters.uploads != 0 {
		t.Fatalf("expected no upload for missing course")
	}
}

func TestCourseServiceDelete(t *testing.T) {
	t.Run("missing course makes no asset call", func(t *testing.T) {
		posters := &mockPosterStore{}
		svc := NewCourseService(zap.NewNop(), repotest.NewMemoryStore().Courses(), posters)
		if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, ErrCourseNotFound) {
			t.Fatalf("expected ErrCourseNotFound, got %v", err)
		}
		if len(posters.deleted) != 0 {
			t.Fatalf("expected no asset deletion, got %v", posters.deleted)
		}
	})

	t.Run("asset failure does not block deletion", func(t *testing.T) {
		store := repotest.NewMemoryStore()
		posters := &mockPosterStore{deleteErr: errors.New("bucket down")}
		svc := NewCourseService(zap.NewNop(), store.Courses(), posters)
		course, err := svc.Create(context.Background(), validCourseInput("Web"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := svc.Delete(context.Background(), course.ID); err != nil {
			t.Fatalf("expected delete to succeed, got %v", err)
		}
		if _, err := svc.Get(context.Background(), course.ID); !errors.Is(err, ErrCourseNotFound) {
			t.Fatalf("expected course gone, got %v", err)
		}
		if len(posters.deleted) != 1 {
			t.Fatalf("expected one asset deletion attempt")
		}
	})
}
