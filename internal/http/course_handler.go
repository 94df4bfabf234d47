package http

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mitr-backend/internal/domain"
	"mitr-backend/internal/service"
)

const posterField = "poster"

// CourseHandler expone el catalogo. Create y Update reciben multipart con
// phases y skillsCovered como strings JSON.
type CourseHandler struct {
	logger     *zap.Logger
	courseServ *service.CourseService
}

func NewCourseHandler(logger *zap.Logger, courseServ *service.CourseService) *CourseHandler {
	return &CourseHandler{logger: logger, courseServ: courseServ}
}

// courseForm lee los campos del formulario; nil indica "no enviado".
type courseForm struct {
	courseName    *string
	title         *string
	description   *string
	rating        *float64
	lessons       *int
	price         *int64
	duration      *string
	phases        []domain.Phase
	skillsCovered []string
}

func readCourseForm(c *gin.Context) (courseForm, error) {
	var f courseForm
	text := func(key string) *string {
		v, ok := c.GetPostForm(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		v = strings.TrimSpace(v)
		return &v
	}
	f.courseName = text("courseName")
	f.title = text("title")
	f.description = text("description")
	f.duration = text("duration")

	if v := text("rating"); v != nil {
		n, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			return f, badRequest("rating must be a number")
		}
		f.rating = &n
	}
	if v := text("lessons"); v != nil {
		n, err := strconv.Atoi(*v)
		if err != nil {
			return f, badRequest("lessons must be an integer")
		}
		f.lessons = &n
	}
	if v := text("price"); v != nil {
		n, err := strconv.ParseInt(*v, 10, 64)
		if err != nil {
			return f, badRequest("price must be an integer")
		}
		f.price = &n
	}
	if v := text("phases"); v != nil {
		if err := json.Unmarshal([]byte(*v), &f.phases); err != nil {
			return f, badRequest("invalid phases format")
		}
		if f.phases == nil {
			f.phases = []domain.Phase{}
		}
	}
	if v := text("skillsCovered"); v != nil {
		if err := json.Unmarshal([]byte(*v), &f.skillsCovered); err != nil {
			return f, badRequest("invalid skillsCovered format")
		}
		if f.skillsCovered == nil {
			f.skillsCovered = []string{}
		}
	}
	return f, nil
}

func (f courseForm) patch() domain.CoursePatch {
	return domain.CoursePatch{
		CourseName:    f.courseName,
		Title:         f.title,
		Description:   f.description,
		Rating:        f.rating,
		Lessons:       f.lessons,
		Price:         f.price,
		Duration:      f.duration,
		Phases:        f.phases,
		SkillsCovered: f.skillsCovered,
	}
}

// openPoster devuelve nil si la peticion no trae archivo de portada.
func openPoster(c *gin.Context) (*service.PosterUpload, multipart.File, error) {
	fh, err := c.FormFile(posterField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, badRequest("invalid poster upload")
	}
	file, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.PosterUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        file,
	}, file, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Create maneja POST /createcourse.
func (h *CourseHandler) Create(c *gin.Context) {
	form, err := readCourseForm(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	poster, file, err := openPoster(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	course, err := h.courseServ.Create(c.Request.Context(), service.CreateCourseInput{
		CourseName:    deref(form.courseName),
		Title:         deref(form.title),
		Description:   deref(form.description),
		Rating:        form.rating,
		Lessons:       deref(form.lessons),
		Price:         deref(form.price),
		Duration:      deref(form.duration),
		Phases:        form.phases,
		SkillsCovered: form.skillsCovered,
		Poster:        poster,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Course Created successfully.",
		"course":  course,
	})
}

// List maneja GET /courses?keyword=.
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courseServ.List(c.Request.Context(), c.Query("keyword"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "courses": courses})
}

// Get maneja GET /course/:id.
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courseServ.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": course})
}

// Update maneja PUT /course/:id.
func (h *CourseHandler) Update(c *gin.Context) {
	form, err := readCourseForm(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	poster, file, err := openPoster(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	course, err := h.courseServ.Update(c.Request.Context(), c.Param("id"), form.patch(), poster)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Course updated successfully",
		"course":  course,
	})
}

// Delete maneja DELETE /course/:id.
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courseServ.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course deleted successfully"})
}
