// Package models contains data structures for the application's domain models.
package models

import "time"

// Role is a closed set of actor roles. An explicit unassigned variant is
// used instead of a null/empty sentinel so role checks never pass by accident.
type Role string

const (
	// RoleUnassigned is the zero-value role; it matches no authorization check.
	RoleUnassigned Role = "unassigned"
	// RoleStudent can apply for gate passes.
	RoleStudent Role = "student"
	// RoleMentor approves or rejects passes for assigned students.
	RoleMentor Role = "mentor"
	// RoleCheckpoint operates a gate scanner and redeems credentials.
	RoleCheckpoint Role = "checkpoint"
	// RoleAdmin manages the directory (mentor assignments, rosters).
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the real roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleMentor, RoleCheckpoint, RoleAdmin:
		return true
	}
	return false
}

// User is an authenticated actor: student, mentor, checkpoint operator or admin.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email    string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;default:'unassigned'" json:"role"`

	// MentorID is the student's assigned approver. Maintained by the
	// directory (admin) endpoints; nil means no approver assignment exists.
	MentorID *uint `gorm:"index" json:"mentor_id,omitempty"`
	Mentor   *User `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
