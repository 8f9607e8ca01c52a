package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/opsdesk/attendance/internal/attendance/policy"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC listener

	Env         string // "dev" | "prod"
	StoreDriver string // "memory" | "sqlite" | "postgres"
	DBPath      string // e.g. "./data/attendance.db"
	PostgresURL string

	JWTSecret string

	AllowAll   bool
	ClockRoles []string
	AdminRoles []string

	Recipients []string
	SeedUsers  []SeedUser

	Timezone string

	OfficeStart          string
	OfficeEnd            string
	LunchWindowStart     string
	HalfDayTime          string
	AbsentTime           string
	LateThresholdMinutes int
	LunchDurationMinutes int
	WFHMinHours          float64
	HeartbeatMinutes     int
	InactivityMinutes    int

	// SweepIntervalMinutes is how often open WFH sessions are checked for
	// inactivity. 0 disables the sweeper.
	SweepIntervalMinutes int
}

// SeedUser is parsed from ATTENDANCE_SEED_USERS entries "id:name:role".
type SeedUser struct {
	ID   string
	Name string
	Role string
}

// Load reads a local .env if present and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("ATTENDANCE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		env = "dev"
	}

	driver := strings.ToLower(getenvDefault("ATTENDANCE_STORE", "sqlite"))
	switch driver {
	case "memory", "sqlite", "postgres":
	default:
		driver = "sqlite"
	}

	allowAll := strings.EqualFold(os.Getenv("ATTENDANCE_ALLOW_ALL"), "true") ||
		os.Getenv("ATTENDANCE_ALLOW_ALL") == "1"

	def := policy.Default()

	return Config{
		HTTPAddr: getenvDefault("ATTENDANCE_HTTP_ADDR", ":8080"),
		GRPCAddr: strings.TrimSpace(os.Getenv("ATTENDANCE_GRPC_ADDR")),

		Env:         env,
		StoreDriver: driver,
		DBPath:      getenvDefault("ATTENDANCE_DB_PATH", "./data/attendance.db"),
		PostgresURL: strings.TrimSpace(os.Getenv("ATTENDANCE_POSTGRES_URL")),

		JWTSecret: os.Getenv("ATTENDANCE_JWT_SECRET"),

		AllowAll:   allowAll,
		ClockRoles: splitCSV(getenvDefault("ATTENDANCE_CLOCK_ROLES", "employee")),
		AdminRoles: splitCSV(getenvDefault("ATTENDANCE_ADMIN_ROLES", "admin")),

		Recipients: splitCSV(os.Getenv("ATTENDANCE_NOTIFY_RECIPIENTS")),
		SeedUsers:  parseSeedUsers(os.Getenv("ATTENDANCE_SEED_USERS")),

		Timezone: getenvDefault("ATTENDANCE_TZ", "Local"),

		OfficeStart:          getenvClock("ATTENDANCE_OFFICE_START", def.OfficeStartTime),
		OfficeEnd:            getenvClock("ATTENDANCE_OFFICE_END", def.OfficeEndTime),
		LunchWindowStart:     getenvClock("ATTENDANCE_LUNCH_WINDOW_START", def.LunchWindowStartTime),
		HalfDayTime:          getenvClock("ATTENDANCE_HALF_DAY_TIME", def.HalfDayTime),
		AbsentTime:           getenvClock("ATTENDANCE_ABSENT_TIME", def.AbsentTime),
		LateThresholdMinutes: getenvInt("ATTENDANCE_LATE_THRESHOLD_MINUTES", def.LateThresholdMinutes),
		LunchDurationMinutes: getenvInt("ATTENDANCE_LUNCH_DURATION_MINUTES", def.LunchDurationMinutes),
		WFHMinHours:          getenvFloat("ATTENDANCE_WFH_MIN_HOURS", def.WFHMinHoursForPresent),
		HeartbeatMinutes:     getenvInt("ATTENDANCE_WFH_HEARTBEAT_MINUTES", def.WFHHeartbeatIntervalMinutes),
		InactivityMinutes:    getenvInt("ATTENDANCE_WFH_INACTIVITY_MINUTES", def.WFHInactivityThresholdMinutes),

		SweepIntervalMinutes: getenvInt("ATTENDANCE_SWEEP_INTERVAL_MINUTES", 5),
	}
}

// TimePolicy builds and validates the attendance policy described by c.
func (c Config) TimePolicy() (policy.Policy, error) {
	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return policy.Policy{}, err
	}

	p := policy.Default()
	p.Location = loc
	for _, f := range []struct {
		key string
		raw string
		dst *policy.ClockTime
	}{
		{"office start", c.OfficeStart, &p.OfficeStartTime},
		{"office end", c.OfficeEnd, &p.OfficeEndTime},
		{"lunch window start", c.LunchWindowStart, &p.LunchWindowStartTime},
		{"half-day time", c.HalfDayTime, &p.HalfDayTime},
		{"absent time", c.AbsentTime, &p.AbsentTime},
	} {
		if f.raw == "" {
			continue
		}
		ct, err := policy.ParseClock(f.raw)
		if err != nil {
			return policy.Policy{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = ct
	}
	p.LateThresholdMinutes = c.LateThresholdMinutes
	p.LunchDurationMinutes = c.LunchDurationMinutes
	p.WFHMinHoursForPresent = c.WFHMinHours
	p.WFHHeartbeatIntervalMinutes = c.HeartbeatMinutes
	p.WFHInactivityThresholdMinutes = c.InactivityMinutes

	if err := p.Validate(); err != nil {
		return policy.Policy{}, err
	}
	return p, nil
}

func loadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

// getenvClock keeps the raw value only if it parses as HH:MM.
func getenvClock(key string, def policy.ClockTime) string {
	v := strings.TrimSpace(os.Getenv(key))
	if _, err := policy.ParseClock(v); v == "" || err != nil {
		return def.String()
	}
	return v
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseSeedUsers reads "id:name:role" entries. The role defaults to
// employee and the name to the id; entries without an id are dropped.
func parseSeedUsers(v string) []SeedUser {
	var out []SeedUser
	for _, entry := range splitCSV(v) {
		parts := strings.SplitN(entry, ":", 3)
		u := SeedUser{ID: strings.TrimSpace(parts[0])}
		if u.ID == "" {
			continue
		}
		u.Name, u.Role = u.ID, "employee"
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			u.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
			u.Role = strings.ToLower(strings.TrimSpace(parts[2]))
		}
		out = append(out, u)
	}
	return out
}
