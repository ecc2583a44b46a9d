package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UserKind string

const (
	UserKindDoctor     UserKind = "DOCTOR"
	UserKindPatient    UserKind = "PATIENT"
	UserKindPharmacist UserKind = "PHARMACIST"
	UserKindAdmin      UserKind = "ADMIN"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

type Specialization string

const (
	SpecializationCardiology      Specialization = "CARDIOLOGY"
	SpecializationDermatology     Specialization = "DERMATOLOGY"
	SpecializationPediatrics      Specialization = "PEDIATRICS"
	SpecializationOrthopedics     Specialization = "ORTHOPEDICS"
	SpecializationNeurology       Specialization = "NEUROLOGY"
	SpecializationGeneralPractice Specialization = "GENERAL_PRACTICE"
	SpecializationRadiology       Specialization = "RADIOLOGY"
	SpecializationOncology        Specialization = "ONCOLOGY"
)

var Specializations = []Specialization{
	SpecializationCardiology,
	SpecializationDermatology,
	SpecializationPediatrics,
	SpecializationOrthopedics,
	SpecializationNeurology,
	SpecializationGeneralPractice,
	SpecializationRadiology,
	SpecializationOncology,
}

type BloodType string

const (
	BloodTypeAPositive  BloodType = "A_POSITIVE"
	BloodTypeANegative  BloodType = "A_NEGATIVE"
	BloodTypeBPositive  BloodType = "B_POSITIVE"
	BloodTypeBNegative  BloodType = "B_NEGATIVE"
	BloodTypeABPositive BloodType = "AB_POSITIVE"
	BloodTypeABNegative BloodType = "AB_NEGATIVE"
	BloodTypeOPositive  BloodType = "O_POSITIVE"
	BloodTypeONegative  BloodType = "O_NEGATIVE"
)

var BloodTypes = []BloodType{
	BloodTypeAPositive,
	BloodTypeANegative,
	BloodTypeBPositive,
	BloodTypeBNegative,
	BloodTypeABPositive,
	BloodTypeABNegative,
	BloodTypeOPositive,
	BloodTypeONegative,
}

// User is a tagged variant: Kind selects which role columns may be set.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	Kind        UserKind   `bun:"kind,notnull"`
	Username    string     `bun:"username,notnull"`
	Name        string     `bun:"name,notnull"`
	Age         int        `bun:"age"`
	Gender      string     `bun:"gender"`
	ContactInfo string     `bun:"contact_info"`
	Status      UserStatus `bun:"status,notnull"`

	Specialization *Specialization `bun:"specialization"`

	BloodType *BloodType `bun:"blood_type"`
	HeightCM  *float64   `bun:"height_cm"`
	WeightKG  *float64   `bun:"weight_kg"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			u.ID = id
		}
		if u.Status == "" {
			u.Status = UserStatusActive
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		u.UpdatedAt = now
	}
	return nil
}

var (
	errRoleFieldMismatch = errors.New("role-specific field set on wrong user kind")
	errUnknownUserKind   = errors.New("unknown user kind")
)

func (u User) Validate() error {
	switch u.Kind {
	case UserKindDoctor:
		if u.BloodType != nil || u.HeightCM != nil || u.WeightKG != nil {
			return errRoleFieldMismatch
		}
	case UserKindPatient:
		if u.Specialization != nil {
			return errRoleFieldMismatch
		}
	case UserKindPharmacist, UserKindAdmin:
		if u.Specialization != nil || u.BloodType != nil || u.HeightCM != nil || u.WeightKG != nil {
			return errRoleFieldMismatch
		}
	default:
		return errUnknownUserKind
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
