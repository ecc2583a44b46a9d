package grpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"hms/backend/internal/domain"
)

func stringField(in *structpb.Struct, key string) string {
	if in == nil {
		return ""
	}
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func uuidField(in *structpb.Struct, key string) (uuid.UUID, error) {
	raw := stringField(in, key)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a UUID", key)
	}
	return id, nil
}

func instantField(in *structpb.Struct, key string, loc *time.Location) (time.Time, error) {
	raw := stringField(in, key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}
	t, err := domain.ParseInstant(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

func appointmentFields(a domain.Appointment) map[string]any {
	m := map[string]any{
		"id":         a.ID.String(),
		"doctor_id":  a.DoctorID.String(),
		"status":     string(a.Status),
		"start_time": a.StartTime.UTC().Format(time.RFC3339),
		"end_time":   a.EndTime.UTC().Format(time.RFC3339),
		"created_at": a.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if a.PatientID != nil {
		m["patient_id"] = a.PatientID.String()
	} else {
		m["patient_id"] = nil
	}
	return m
}

func appointmentStruct(a domain.Appointment) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"appointment": appointmentFields(a)})
}

func slotsStruct(date string, slots []domain.Slot) (*structpb.Struct, error) {
	list := make([]any, 0, len(slots))
	for _, s := range slots {
		list = append(list, map[string]any{
			"start":   s.Start.String(),
			"instant": s.Instant.UTC().Format(time.RFC3339),
			"state":   string(s.State),
		})
	}
	return structpb.NewStruct(map[string]any{"date": date, "slots": list})
}

func availableStruct(date string, starts []string) (*structpb.Struct, error) {
	list := make([]any, 0, len(starts))
	for _, s := range starts {
		list = append(list, s)
	}
	return structpb.NewStruct(map[string]any{"date": date, "available": list})
}
