package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/repository"
	"mitr-backend/internal/storage"
)

// CourseService administra el catalogo y las portadas en el object store.
type CourseService struct {
	logger  *zap.Logger
	courses repository.CourseRepository
	posters storage.PosterStore
	now     func() time.Time
}

func NewCourseService(logger *zap.Logger, courses repository.CourseRepository, posters storage.PosterStore) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if posters == nil {
		posters = storage.NewDisabledStore()
	}
	return &CourseService{
		logger:  logger,
		courses: courses,
		posters: posters,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PosterUpload es el archivo de portada recibido en la peticion.
type PosterUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type CreateCourseInput struct {
	CourseName    string
	Title         string
	Description   string
	Rating        *float64
	Lessons       int
	Price         int64
	Duration      string
	Phases        []domain.Phase
	SkillsCovered []string
	Poster        *PosterUpload
}

func (in CreateCourseInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.CourseName) == "" {
		missing = append(missing, "courseName")
	}
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if in.Lessons <= 0 {
		missing = append(missing, "lessons")
	}
	if in.Price <= 0 {
		missing = append(missing, "price")
	}
	if strings.TrimSpace(in.Duration) == "" {
		missing = append(missing, "duration")
	}
	if len(in.Phases) == 0 {
		missing = append(missing, "phases")
	}
	if len(in.SkillsCovered) == 0 {
		missing = append(missing, "skillsCovered")
	}
	if in.Poster == nil || in.Poster.Body == nil {
		missing = append(missing, "poster")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: please enter all fields (missing %s)", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if in.Rating != nil && (*in.Rating < 0 || *in.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidInput)
	}
	return nil
}

func (s *CourseService) Create(ctx context.Context, in CreateCourseInput) (domain.Course, error) {
	if err := in.validate(); err != nil {
		return domain.Course{}, err
	}

	poster, err := s.upload(ctx, in.Poster)
	if err != nil {
		return domain.Course{}, err
	}

	rating := float64(domain.DefaultCourseRating)
	if in.Rating != nil {
		rating = *in.Rating
	}
	course := domain.Course{
		ID:            uuid.NewString(),
		CourseName:    strings.TrimSpace(in.CourseName),
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Rating:        rating,
		TotalEnrolled: 0,
		Lessons:       in.Lessons,
		Price:         in.Price,
		Duration:      strings.TrimSpace(in.Duration),
		Poster:        poster,
		Phases:        in.Phases,
		SkillsCovered: in.SkillsCovered,
		CreatedAt:     s.now(),
	}
	if err := s.courses.Create(ctx, course); err != nil {
		s.discardPoster(ctx, poster, "create course failed")
		return domain.Course{}, err
	}
	return course, nil
}

// List filtra por nombre sin distinguir mayusculas y omite el temario.
func (s *CourseService) List(ctx context.Context, keyword string) ([]domain.Course, error) {
	return s.courses.List(ctx, strings.TrimSpace(keyword))
}

func (s *CourseService) Get(ctx context.Context, id string) (domain.Course, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Course{}, fmt.Errorf("%w: course id is required", ErrInvalidInput)
	}
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, fmt.Errorf("%w: %s", ErrCourseNotFound, id)
		}
		return domain.Course{}, err
	}
	return course, nil
}

// Update aplica un patch parcial. Si llega una portada nueva se sube primero,
// se persiste el curso y recien despues se borra la anterior.
func (s *CourseService) Update(ctx context.Context, id string, patch domain.CoursePatch, poster *PosterUpload) (domain.Course, error) {
	if err := validateCoursePatch(patch); err != nil {
		return domain.Course{}, err
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return domain.Course{}, err
	}

	oldPoster := course.Poster
	replaced := false
	if poster != nil && poster.Body != nil {
		uploaded, err := s.upload(ctx, poster)
		if err != nil {
			return domain.Course{}, err
		}
		course.Poster = uploaded
		replaced = true
	}

	patch.Apply(&course)
	if err := s.courses.Update(ctx, course); err != nil {
		if replaced {
			s.discardPoster(ctx, course.Poster, "update course failed")
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, fmt.Errorf("%w: %s", ErrCourseNotFound, course.ID)
		}
		return domain.Course{}, err
	}

	if replaced {
		s.discardPoster(ctx, oldPoster, "poster replaced")
	}
	return course, nil
}

// Delete borra la portada y luego el registro. Un fallo al borrar la portada
// no impide borrar el curso.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	course, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.discardPoster(ctx, course.Poster, "course deleted")
	if err := s.courses.Delete(ctx, course.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrCourseNotFound, course.ID)
		}
		return err
	}
	return nil
}

func (s *CourseService) upload(ctx context.Context, p *PosterUpload) (domain.Poster, error) {
	poster, err := s.posters.Upload(ctx, p.Filename, p.ContentType, p.Body)
	if err != nil {
		s.logger.Warn("poster upload failed", zap.String("filename", p.Filename), zap.Error(err))
		return domain.Poster{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return poster, nil
}

func (s *CourseService) discardPoster(ctx context.Context, poster domain.Poster, reason string) {
	if poster.PublicID == "" {
		return
	}
	if err := s.posters.Delete(ctx, poster.PublicID); err != nil {
		s.logger.Warn("leaked poster asset",
			zap.String("public_id", poster.PublicID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func validateCoursePatch(p domain.CoursePatch) error {
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidInput)
	}
	if p.Price != nil && *p.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if p.Lessons != nil && *p.Lessons <= 0 {
		return fmt.Errorf("%w: lessons must be positive", ErrInvalidInput)
	}
	return nil
}
