package domain

import "time"

const DefaultCourseRating = 4

type Poster struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type Topic struct {
	Title    string   `json:"title"`
	Contents []string `json:"contents"`
}

type Module struct {
	Title    string  `json:"title"`
	Duration string  `json:"duration"`
	Topics   []Topic `json:"topics"`
}

type Phase struct {
	Title         string   `json:"title"`
	PhaseDuration string   `json:"phaseDuration"`
	Modules       []Module `json:"modules"`
}

// Course es una entrada del catalogo. TotalEnrolled solo crece, y solo al
// registrar una orden.
type Course struct {
	ID            string    `json:"_id"`
	CourseName    string    `json:"courseName"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Rating        float64   `json:"rating"`
	TotalEnrolled int       `json:"totalEnrolled"`
	Lessons       int       `json:"lessons"`
	Price         int64     `json:"price"`
	Duration      string    `json:"duration"`
	Poster        Poster    `json:"poster"`
	Phases        []Phase   `json:"phases,omitempty"`
	SkillsCovered []string  `json:"skillsCovered"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CourseSummary es la vista reducida usada al "poblar" referencias.
type CourseSummary struct {
	ID          string `json:"_id"`
	CourseName  string `json:"courseName"`
	Description string `json:"description,omitempty"`
	Poster      Poster `json:"poster"`
	Price       int64  `json:"price,omitempty"`
}

func (c Course) Summary() CourseSummary {
	return CourseSummary{
		ID:          c.ID,
		CourseName:  c.CourseName,
		Description: c.Description,
		Poster:      c.Poster,
		Price:       c.Price,
	}
}

// CoursePatch representa una actualizacion parcial; nil significa "no enviado".
type CoursePatch struct {
	CourseName    *string
	Title         *string
	Description   *string
	Rating        *float64
	Lessons       *int
	Price         *int64
	Duration      *string
	Phases        []Phase
	SkillsCovered []string
}

func (p CoursePatch) Apply(c *Course) {
	if p.CourseName != nil && *p.CourseName != "" {
		c.CourseName = *p.CourseName
	}
	if p.Title != nil && *p.Title != "" {
		c.Title = *p.Title
	}
	if p.Description != nil && *p.Description != "" {
		c.Description = *p.Description
	}
	if p.Rating != nil {
		c.Rating = *p.Rating
	}
	if p.Lessons != nil {
		c.Lessons = *p.Lessons
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.Duration != nil && *p.Duration != "" {
		c.Duration = *p.Duration
	}
	if p.Phases != nil {
		c.Phases = p.Phases
	}
	if p.SkillsCovered != nil {
		c.SkillsCovered = p.SkillsCovered
	}
}
