package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PassStatus represents the lifecycle state of a gate pass.
type PassStatus string

const (
	// PassStatusPending indicates a pass awaiting the mentor's decision.
	PassStatusPending PassStatus = "PENDING"
	// PassStatusApproved indicates an approved pass carrying a live token.
	PassStatusApproved PassStatus = "APPROVED"
	// PassStatusRejected is terminal; the pass never carried a token.
	PassStatusRejected PassStatus = "REJECTED"
	// PassStatusUtilized is terminal; the token has been consumed at the gate.
	PassStatusUtilized PassStatus = "UTILIZED"
)

// Known reports whether s is one of the defined lifecycle states.
func (s PassStatus) Known() bool {
	switch s {
	case PassStatusPending, PassStatusApproved, PassStatusRejected, PassStatusUtilized:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s PassStatus) Terminal() bool {
	return s == PassStatusRejected || s == PassStatusUtilized
}

// GatePass is one exit-permission request and its resolution.
//
// Status moves PENDING -> APPROVED|REJECTED, APPROVED -> UTILIZED, and never
// backwards. Token is set exactly once, at approval, and TokenActive is true
// only while the pass is APPROVED and unredeemed. All writes after creation
// go through the repository's conditional Transition so concurrent decisions
// and redemptions resolve to exactly one winner.
type GatePass struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID uint       `gorm:"not null;index" json:"student_id"`
	MentorID  uint       `gorm:"not null;index" json:"mentor_id"`
	Reason    string     `gorm:"type:text;not null" json:"reason"`
	Status    PassStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`

	// Token is the single-use bearer credential. Unique across all passes
	// for the lifetime of the system; the partial keyspace collision odds
	// are negligible but the index enforces uniqueness regardless.
	Token       *string `gorm:"type:varchar(16);uniqueIndex" json:"-"`
	TokenActive bool    `gorm:"not null;default:false" json:"token_active"`

	AppliedAt     time.Time  `gorm:"not null" json:"applied_at"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	TokenIssuedAt *time.Time `json:"token_issued_at,omitempty"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Student *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Mentor  *User `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`
}

// TableName specifies the table name for GORM
func (GatePass) TableName() string {
	return "gate_passes"
}

// BeforeCreate assigns the opaque pass identifier.
func (p *GatePass) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// CanTransitionTo reports whether moving from the current status to next is
// a legal state-machine edge.
func (p *GatePass) CanTransitionTo(next PassStatus) bool {
	switch p.Status {
	case PassStatusPending:
		return next == PassStatusApproved || next == PassStatusRejected
	case PassStatusApproved:
		return next == PassStatusUtilized
	}
	return false
}

// CheckInvariants verifies the structural invariants that must hold at every
// observable point. Used by tests; returns the first violated invariant.
func (p *GatePass) CheckInvariants() error {
	hasToken := p.Token != nil && *p.Token != ""
	tokenState := p.Status == PassStatusApproved || p.Status == PassStatusUtilized
	if hasToken != tokenState {
		return NewInvalidTransitionError("token presence must match APPROVED/UTILIZED status")
	}
	if p.TokenActive != (p.Status == PassStatusApproved) {
		return NewInvalidTransitionError("tokenActive must be true exactly while APPROVED")
	}
	if (p.RedeemedAt != nil) != (p.Status == PassStatusUtilized) {
		return NewInvalidTransitionError("redeemedAt must be set exactly when UTILIZED")
	}
	if (p.DecidedAt == nil) != (p.Status == PassStatusPending) {
		return NewInvalidTransitionError("decidedAt must be set exactly once decided")
	}
	return nil
}
