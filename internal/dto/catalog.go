package dto

// CreateCourseRequest registers a course offering for a semester.
type CreateCourseRequest struct {
	Code            string   `json:"code" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	Semester        string   `json:"semester" validate:"required"`
	Sessions        int      `json:"sessions" validate:"required,min=1,max=14"`
	DurationMinutes int      `json:"durationMinutes" validate:"required,min=30,max=240"`
	Enrolled        int      `json:"enrolled" validate:"required,min=1"`
	RequiredTags    []string `json:"requiredTags"`
	AllowedSlots    []string `json:"allowedSlots"`
	InstructorID    string   `json:"instructorId" validate:"required"`
}

// UpdateCourseRequest patches mutable course fields. Nil fields keep the
// stored value.
type UpdateCourseRequest struct {
	Name            *string   `json:"name"`
	Sessions        *int      `json:"sessions" validate:"omitempty,min=1,max=14"`
	DurationMinutes *int      `json:"durationMinutes" validate:"omitempty,min=30,max=240"`
	Enrolled        *int      `json:"enrolled" validate:"omitempty,min=1"`
	RequiredTags    *[]string `json:"requiredTags"`
	AllowedSlots    *[]string `json:"allowedSlots"`
	InstructorID    *string   `json:"instructorId"`
}

// CreateInstructorRequest registers an instructor.
type CreateInstructorRequest struct {
	Name             string   `json:"name" validate:"required"`
	Email            string   `json:"email" validate:"required,email"`
	MaxPerDay        int      `json:"maxPerDay" validate:"omitempty,min=0,max=12"`
	UnavailableSlots []string `json:"unavailableSlots"`
	PreferredSlots   []string `json:"preferredSlots"`
}

// UpdateInstructorRequest patches instructor availability and limits.
type UpdateInstructorRequest struct {
	Name             *string   `json:"name"`
	MaxPerDay        *int      `json:"maxPerDay" validate:"omitempty,min=0,max=12"`
	UnavailableSlots *[]string `json:"unavailableSlots"`
	PreferredSlots   *[]string `json:"preferredSlots"`
}

// CreateRoomRequest registers a teaching space.
type CreateRoomRequest struct {
	Name             string   `json:"name" validate:"required"`
	Capacity         int      `json:"capacity" validate:"required,min=1"`
	Tags             []string `json:"tags"`
	UnavailableSlots []string `json:"unavailableSlots"`
}

// UpdateRoomRequest patches room capacity and capabilities.
type UpdateRoomRequest struct {
	Name             *string   `json:"name"`
	Capacity         *int      `json:"capacity" validate:"omitempty,min=1"`
	Tags             *[]string `json:"tags"`
	UnavailableSlots *[]string `json:"unavailableSlots"`
}

// CreateTimeSlotRequest adds an interval to the weekly grid.
type CreateTimeSlotRequest struct {
	Label       string `json:"label"`
	Day         int    `json:"day" validate:"required,min=1,max=7"`
	StartMinute int    `json:"startMinute" validate:"min=0,max=1439"`
	EndMinute   int    `json:"endMinute" validate:"required,min=1,max=1440,gtfield=StartMinute"`
}
