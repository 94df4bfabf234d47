package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Education struct {
	Institute string `json:"institute"`
	Degree    string `json:"degree"`
	Branch    string `json:"branch"`
	Semester  string `json:"semester"`
	Year      string `json:"year"`
	EndDate   string `json:"endDate"`
}

// User es la identidad de un alumno o administrador. Se considera registrado
// cuando FullName tiene valor.
type User struct {
	ID               string      `json:"_id"`
	FullName         string      `json:"full_name,omitempty"`
	Email            string      `json:"email"`
	MobileNumber     string      `json:"mobileNumber,omitempty"`
	Country          string      `json:"country,omitempty"`
	State            string      `json:"state,omitempty"`
	City             string      `json:"city,omitempty"`
	PinCode          string      `json:"pinCode,omitempty"`
	Education        []Education `json:"education"`
	Role             string      `json:"role"`
	Verified         bool        `json:"verified"`
	OtpCodeHash      string      `json:"-"`
	OtpExpiresAt     *time.Time  `json:"-"`
	PurchasedCourses []string    `json:"purchasedCourses"`
	CreatedAt        time.Time   `json:"createdAt"`
}

func (u User) IsRegistered() bool {
	return u.FullName != ""
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) HasPurchased(courseID string) bool {
	for _, id := range u.PurchasedCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// UserPatch solo aplica los campos presentes y no vacios.
type UserPatch struct {
	FullName     *string
	Email        *string
	MobileNumber *string
	Country      *string
	State        *string
	City         *string
	PinCode      *string
	Education    []Education
}

// Apply devuelve true si algun campo cambio.
func (p UserPatch) Apply(u *User) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src == nil || *src == "" {
			return
		}
		*dst = *src
		changed = true
	}
	set(&u.FullName, p.FullName)
	set(&u.Email, p.Email)
	set(&u.MobileNumber, p.MobileNumber)
	set(&u.Country, p.Country)
	set(&u.State, p.State)
	set(&u.City, p.City)
	set(&u.PinCode, p.PinCode)
	if len(p.Education) > 0 {
		u.Education = p.Education
		changed = true
	}
	return changed
}

// Purchaser agrupa un usuario con el resumen de sus cursos comprados.
type Purchaser struct {
	User             User            `json:"user"`
	PurchasedCourses []CourseSummary `json:"purchasedCourses"`
}
