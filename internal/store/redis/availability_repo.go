package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

const configuredField = "_configured"

// AvailabilityRepo implements store.AvailabilityRepository.
//
// Keys, all under the configured prefix:
//
//	<prefix>:availability:<doctor>:weekly       hash  ISO weekday -> "start-end" minutes
//	<prefix>:availability:<doctor>:unavailable  zset  member RFC3339 instant, score epoch ms
//	<prefix>:availability:doctors               set   doctors with a configured availability
type AvailabilityRepo struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewAvailabilityRepo(rdb goredis.UniversalClient, prefix string) *AvailabilityRepo {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "hms"
	}
	return &AvailabilityRepo{rdb: rdb, prefix: prefix}
}

var _ store.AvailabilityRepository = (*AvailabilityRepo)(nil)

func (r *AvailabilityRepo) weeklyKey(doctorID uuid.UUID) string {
	return r.prefix + ":availability:" + doctorID.String() + ":weekly"
}

func (r *AvailabilityRepo) unavailableKey(doctorID uuid.UUID) string {
	return r.prefix + ":availability:" + doctorID.String() + ":unavailable"
}

func (r *AvailabilityRepo) doctorsKey() string {
	return r.prefix + ":availability:doctors"
}

func (r *AvailabilityRepo) Get(ctx context.Context, doctorID uuid.UUID) (domain.Availability, error) {
	pipe := r.rdb.Pipeline()
	weeklyCmd := pipe.HGetAll(ctx, r.weeklyKey(doctorID))
	slotsCmd := pipe.ZRangeWithScores(ctx, r.unavailableKey(doctorID), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return domain.Availability{}, fmt.Errorf("read availability: %w", err)
	}

	fields := weeklyCmd.Val()
	if _, ok := fields[configuredField]; !ok {
		return domain.Availability{}, store.ErrNotFound
	}
	weekly, err := decodeWeekly(fields)
	if err != nil {
		return domain.Availability{}, err
	}

	members := slotsCmd.Val()
	slots := make([]time.Time, 0, len(members))
	for _, z := range members {
		slots = append(slots, time.UnixMilli(int64(z.Score)).UTC())
	}
	return domain.Availability{DoctorID: doctorID, Weekly: weekly, UnavailableSlots: slots}, nil
}

func (r *AvailabilityRepo) Exists(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	ok, err := r.rdb.HExists(ctx, r.weeklyKey(doctorID), configuredField).Result()
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return ok, nil
}

func (r *AvailabilityRepo) Save(ctx context.Context, a domain.Availability) error {
	weeklyKey := r.weeklyKey(a.DoctorID)
	slotsKey := r.unavailableKey(a.DoctorID)
	slots := domain.NormalizeSlots(a.UnavailableSlots)

	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, weeklyKey, slotsKey)
		pipe.HSet(ctx, weeklyKey, encodeWeekly(a.Weekly))
		if len(slots) > 0 {
			pipe.ZAdd(ctx, slotsKey, slotMembers(slots)...)
		}
		pipe.SAdd(ctx, r.doctorsKey(), a.DoctorID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("save availability: %w", err)
	}
	return nil
}

func (r *AvailabilityRepo) AddUnavailable(ctx context.Context, doctorID uuid.UUID, slot time.Time) error {
	ok, err := r.Exists(ctx, doctorID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	if err := r.rdb.ZAdd(ctx, r.unavailableKey(doctorID), slotMembers([]time.Time{slot.UTC()})...).Err(); err != nil {
		return fmt.Errorf("add unavailable slot: %w", err)
	}
	return nil
}

func (r *AvailabilityRepo) PruneExpired(ctx context.Context, doctorID uuid.UUID, now time.Time) (int, error) {
	n, err := r.rdb.ZRemRangeByScore(ctx, r.unavailableKey(doctorID), "-inf", strconv.FormatInt(now.UnixMilli(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("prune unavailable slots: %w", err)
	}
	return int(n), nil
}

func (r *AvailabilityRepo) PruneAllExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := r.rdb.SMembers(ctx, r.doctorsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("list doctors: %w", err)
	}

	total := 0
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		n, err := r.PruneExpired(ctx, id, now)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func encodeWeekly(w domain.WeeklySchedule) map[string]any {
	out := make(map[string]any, len(w)+1)
	out[configuredField] = "1"
	for day, rng := range w {
		out[strconv.Itoa(int(domain.ISOWeekday(day)))] = fmt.Sprintf("%d-%d", rng.Start, rng.End)
	}
	return out
}

func decodeWeekly(fields map[string]string) (domain.WeeklySchedule, error) {
	out := make(domain.WeeklySchedule, len(fields))
	for k, v := range fields {
		if k == configuredField {
			continue
		}
		n, err := strconv.ParseInt(k, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("weekly field %q: %w", k, err)
		}
		day, err := domain.WeekdayFromISO(int16(n))
		if err != nil {
			return nil, err
		}
		startRaw, endRaw, ok := strings.Cut(v, "-")
		if !ok {
			return nil, fmt.Errorf("weekly value %q: missing separator", v)
		}
		start, err := strconv.ParseInt(startRaw, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("weekly value %q: %w", v, err)
		}
		end, err := strconv.ParseInt(endRaw, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("weekly value %q: %w", v, err)
		}
		out[day] = domain.TimeRange{Start: domain.TimeOfDay(start), End: domain.TimeOfDay(end)}
	}
	return out, nil
}

func slotMembers(slots []time.Time) []goredis.Z {
	out := make([]goredis.Z, 0, len(slots))
	for _, s := range slots {
		s = s.UTC()
		out = append(out, goredis.Z{Score: float64(s.UnixMilli()), Member: s.Format(time.RFC3339Nano)})
	}
	return out
}
