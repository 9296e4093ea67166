// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/token"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumMentors     int
	NumStudents    int
	NumCheckpoints int
	NumPasses      int
	ShouldClean    bool
}

// DefaultPassword is the password every seeded account gets. Development only.
const DefaultPassword = "Dev-Password-2024!"

var reasonTemplates = []string{
	"Dental appointment at %s",
	"Family event in %s",
	"Medical checkup at %s clinic",
	"Inter-school sports meet in %s",
	"Document collection from %s office",
	"Weekend home visit to %s",
}

// Run populates the database with a realistic campus: an admin, mentors,
// checkpoint operators, students assigned to mentors, and a pass history
// covering every lifecycle state. Every seeded pass satisfies the structural
// invariants a live one would.
func Run(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if opts.NumMentors <= 0 {
		opts.NumMentors = 5
	}
	if opts.NumStudents <= 0 {
		opts.NumStudents = 40
	}
	if opts.NumCheckpoints <= 0 {
		opts.NumCheckpoints = 2
	}
	if opts.NumPasses <= 0 {
		opts.NumPasses = 120
	}

	if opts.ShouldClean {
		if err := clean(db); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	admin := models.User{
		Username: "registrar",
		Email:    "registrar@campus.local",
		Password: string(hashed),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	mentors := make([]models.User, 0, opts.NumMentors)
	for i := 0; i < opts.NumMentors; i++ {
		mentor := models.User{
			Username: gofakeit.Username(),
			Email:    gofakeit.Email(),
			Password: string(hashed),
			Role:     models.RoleMentor,
		}
		if err := db.Create(&mentor).Error; err != nil {
			return fmt.Errorf("create mentor: %w", err)
		}
		mentors = append(mentors, mentor)
	}

	for i := 0; i < opts.NumCheckpoints; i++ {
		gate := models.User{
			Username: fmt.Sprintf("gate_%s", gofakeit.Word()),
			Email:    gofakeit.Email(),
			Password: string(hashed),
			Role:     models.RoleCheckpoint,
		}
		if err := db.Create(&gate).Error; err != nil {
			return fmt.Errorf("create checkpoint operator: %w", err)
		}
	}

	students := make([]models.User, 0, opts.NumStudents)
	for i := 0; i < opts.NumStudents; i++ {
		student := models.User{
			Username: gofakeit.Username(),
			Email:    gofakeit.Email(),
			Password: string(hashed),
			Role:     models.RoleStudent,
		}
		// A handful of students stay unassigned so the NoApprover path has
		// real data behind it. The first student is always assigned so the
		// pass generator below can terminate.
		if i == 0 || r.Intn(10) > 0 {
			mentorID := mentors[r.Intn(len(mentors))].ID
			student.MentorID = &mentorID
		}
		if err := db.Create(&student).Error; err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		students = append(students, student)
	}

	created := 0
	for created < opts.NumPasses {
		student := students[r.Intn(len(students))]
		if student.MentorID == nil {
			continue
		}
		if err := createPass(db, r, student); err != nil {
			return fmt.Errorf("create pass: %w", err)
		}
		created++
	}

	log.Printf("Seeded %d users and %d passes", 1+opts.NumMentors+opts.NumCheckpoints+opts.NumStudents, created)
	return nil
}

// createPass writes one historical pass in a randomly chosen lifecycle state.
func createPass(db *gorm.DB, r *rand.Rand, student models.User) error {
	appliedAt := time.Now().UTC().Add(-time.Duration(r.Intn(60*24)) * time.Hour)
	reason := fmt.Sprintf(reasonTemplates[r.Intn(len(reasonTemplates))], gofakeit.City())

	pass := models.GatePass{
		StudentID: student.ID,
		MentorID:  *student.MentorID,
		Reason:    reason,
		Status:    models.PassStatusPending,
		AppliedAt: appliedAt,
	}

	switch r.Intn(4) {
	case 0: // stays pending
	case 1: // rejected
		decidedAt := appliedAt.Add(time.Duration(1+r.Intn(180)) * time.Minute)
		pass.Status = models.PassStatusRejected
		pass.DecidedAt = &decidedAt
	case 2: // approved, credential still live
		decidedAt := appliedAt.Add(time.Duration(1+r.Intn(180)) * time.Minute)
		tok := token.Generate()
		pass.Status = models.PassStatusApproved
		pass.DecidedAt = &decidedAt
		pass.Token = &tok
		pass.TokenIssuedAt = &decidedAt
		pass.TokenActive = true
	case 3: // approved and redeemed at the gate
		decidedAt := appliedAt.Add(time.Duration(1+r.Intn(180)) * time.Minute)
		redeemedAt := decidedAt.Add(time.Duration(1+r.Intn(300)) * time.Minute)
		tok := token.Generate()
		pass.Status = models.PassStatusUtilized
		pass.DecidedAt = &decidedAt
		pass.Token = &tok
		pass.TokenIssuedAt = &decidedAt
		pass.TokenActive = false
		pass.RedeemedAt = &redeemedAt
	}

	return db.Create(&pass).Error
}

func clean(db *gorm.DB) error {
	if err := db.Where("1 = 1").Delete(&models.GatePass{}).Error; err != nil {
		return err
	}
	return db.Where("1 = 1").Delete(&models.User{}).Error
}
