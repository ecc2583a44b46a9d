// Package seed fills a store with fake doctors and patients for local use.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/service/availability"
	"hms/backend/internal/store"
)

type availabilitySaver interface {
	Save(ctx context.Context, in availability.SaveInput) (domain.Availability, error)
}

type Result struct {
	Doctors  []domain.User
	Patients []domain.User
}

// DefaultWeekly is Monday to Friday, 09:00 to 17:00.
func DefaultWeekly() domain.WeeklySchedule {
	w := make(domain.WeeklySchedule, 5)
	for d := time.Monday; d <= time.Friday; d++ {
		w[d] = domain.TimeRange{Start: 9 * 60, End: 17 * 60}
	}
	return w
}

// Run creates the requested number of doctors, each with the default
// weekly availability, and patients.
func Run(ctx context.Context, users store.UserRepository, avail availabilitySaver, doctors, patients int, log *slog.Logger) (Result, error) {
	if log == nil {
		log = slog.Default()
	}
	var res Result

	for i := 0; i < doctors; i++ {
		specialty := domain.Specializations[gofakeit.Number(0, len(domain.Specializations)-1)]
		u, err := users.Create(ctx, fakeUser(domain.UserKindDoctor, func(u *domain.User) {
			u.Specialization = &specialty
		}))
		if err != nil {
			return res, fmt.Errorf("seed doctor: %w", err)
		}
		if _, err := avail.Save(ctx, availability.SaveInput{DoctorID: u.ID, Weekly: DefaultWeekly()}); err != nil {
			return res, fmt.Errorf("seed availability for %s: %w", u.ID, err)
		}
		res.Doctors = append(res.Doctors, u)
	}

	for i := 0; i < patients; i++ {
		blood := domain.BloodTypes[gofakeit.Number(0, len(domain.BloodTypes)-1)]
		height := float64(gofakeit.Number(150, 200))
		weight := float64(gofakeit.Number(45, 120))
		u, err := users.Create(ctx, fakeUser(domain.UserKindPatient, func(u *domain.User) {
			u.BloodType = &blood
			u.HeightCM = &height
			u.WeightKG = &weight
		}))
		if err != nil {
			return res, fmt.Errorf("seed patient: %w", err)
		}
		res.Patients = append(res.Patients, u)
	}

	log.Info("seed complete", slog.Int("doctors", len(res.Doctors)), slog.Int("patients", len(res.Patients)))
	return res, nil
}

func fakeUser(kind domain.UserKind, role func(*domain.User)) domain.User {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	u := domain.User{
		ID:          id,
		Kind:        kind,
		Username:    strings.ToLower(first+"."+last) + "." + id.String()[len(id.String())-6:],
		Name:        first + " " + last,
		Age:         gofakeit.Number(18, 90),
		Gender:      gofakeit.Gender(),
		ContactInfo: gofakeit.Phone(),
		Status:      domain.UserStatusActive,
	}
	role(&u)
	return u
}
