package models

import "time"

const (
	RoleReader     = "reader"
	RoleSupervisor = "supervisor"
	RoleEngineer   = "engineer"
)

type Staff struct {
	ID               string     `json:"id" db:"id"`
	StaffNumber      string     `json:"staff_number" db:"staff_number"`
	Name             string     `json:"name" db:"name"`
	Pin              string     `json:"-" db:"pin"` // Vestigial column: the login check always derives the PIN from staff_number
	Role             string     `json:"role" db:"role"`
	Email            *string    `json:"email" db:"email"`
	SecurityQuestion *string    `json:"security_question,omitempty" db:"security_question"`
	SecurityAnswer   *string    `json:"-" db:"security_answer"` // bcrypt hash, never returned in JSON
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	LastLogin        *time.Time `json:"last_login" db:"last_login"`
	IsActive         bool       `json:"is_active" db:"is_active"`
}

// DerivedPin returns the PIN for a staff number: its first four characters.
func DerivedPin(staffNumber string) string {
	if len(staffNumber) < 4 {
		return staffNumber
	}
	return staffNumber[:4]
}

// CheckPin reports whether the candidate PIN matches the derived PIN.
func (s *Staff) CheckPin(pin string) bool {
	return pin == DerivedPin(s.StaffNumber)
}

type StaffResponse struct {
	ID          string     `json:"id"`
	StaffNumber string     `json:"staff_number"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Email       *string    `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login"`
	IsActive    bool       `json:"is_active"`
}

func (s *Staff) ToStaffResponse() StaffResponse {
	return StaffResponse{
		ID:          s.ID,
		StaffNumber: s.StaffNumber,
		Name:        s.Name,
		Role:        s.Role,
		Email:       s.Email,
		CreatedAt:   s.CreatedAt,
		LastLogin:   s.LastLogin,
		IsActive:    s.IsActive,
	}
}
