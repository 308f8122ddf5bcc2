// Package importer loads legacy user records from a JSON export into the user store.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bissquit/user-registry/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Writer persists a single user record.
type Writer interface {
	CreateUser(ctx context.Context, user *domain.User) error
}

// Source is the top-level shape of the export file.
type Source struct {
	Users []SourceUser `json:"users"`
}

// SourceUser is one legacy record. Flags are read with Flag truthiness and
// a missing flag is false, except IsUserActive which defaults to true.
// CreatedAt without a UTC offset is read as UTC, not server local time.
type SourceUser struct {
	User          string  `json:"user"`
	Password      string  `json:"password"`
	IsUserAdmin   Flag    `json:"is_user_admin"`
	IsUserManager Flag    `json:"is_user_manager"`
	IsUserTester  Flag    `json:"is_user_tester"`
	CreatedAt     string  `json:"created_at"`
	UserTimezone  *string `json:"user_timezone"`
	IsUserActive  Flag    `json:"is_user_active"`
}

// Flag is a loosely typed legacy boolean. null, false, 0, "", [] and {}
// are false; any other value is true. Set records whether the key was present.
type Flag struct {
	Set   bool
	Value bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	f.Set = true
	switch val := v.(type) {
	case nil:
		f.Value = false
	case bool:
		f.Value = val
	case float64:
		f.Value = val != 0
	case string:
		f.Value = val != ""
	case []interface{}:
		f.Value = len(val) > 0
	case map[string]interface{}:
		f.Value = len(val) > 0
	}
	return nil
}

// Or returns the flag value, or def when the key was absent.
func (f Flag) Or(def bool) bool {
	if !f.Set {
		return def
	}
	return f.Value
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID    string
	Imported int
}

// Config holds importer options.
type Config struct {
	// RateLimit caps writes per second; 0 means unlimited.
	RateLimit float64
}

// Importer writes source records through a Writer, one at a time, in
// document order.
type Importer struct {
	writer  Writer
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates an importer.
func New(writer Writer, cfg Config, logger *slog.Logger) *Importer {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		writer:  writer,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Decode parses an export document. Nothing is written when it fails.
func Decode(r io.Reader) (*Source, error) {
	var src Source
	if err := json.NewDecoder(r).Decode(&src); err != nil {
		return nil, fmt.Errorf("decode import file: %w", err)
	}
	return &src, nil
}

// Run decodes the document from r and imports every record.
// The first failure stops the run; records written before it stay written.
func (i *Importer) Run(ctx context.Context, r io.Reader) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := i.logger.With("run_id", summary.RunID)

	src, err := Decode(r)
	if err != nil {
		return summary, err
	}

	logger.Info("import started", "records", len(src.Users))

	for idx, rec := range src.Users {
		user, err := BuildUser(rec)
		if err != nil {
			return summary, fmt.Errorf("record %d (%s): %w", idx, rec.User, err)
		}

		if err := i.limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("record %d (%s): %w", idx, rec.User, err)
		}

		if err := i.writer.CreateUser(ctx, user); err != nil {
			return summary, fmt.Errorf("record %d (%s): write: %w", idx, rec.User, err)
		}

		summary.Imported++
		logger.Info("user imported", "username", user.Username, "id", user.ID)
	}

	logger.Info("import completed", "imported", summary.Imported)
	return summary, nil
}

// BuildUser maps a legacy record onto a User.
func BuildUser(rec SourceUser) (*domain.User, error) {
	createdAt, err := ParseTimestamp(rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	active := rec.IsUserActive.Or(true)

	return domain.NewUser(domain.NewUserParams{
		Username:  rec.User,
		Password:  rec.Password,
		Roles:     deriveRoles(rec),
		Timezone:  rec.UserTimezone,
		Active:    &active,
		CreatedAt: createdAt,
	}), nil
}

func deriveRoles(rec SourceUser) []string {
	roles := make([]string, 0, 3)
	if rec.IsUserAdmin.Value {
		roles = append(roles, domain.RoleAdmin)
	}
	if rec.IsUserManager.Value {
		roles = append(roles, domain.RoleManager)
	}
	if rec.IsUserTester.Value {
		roles = append(roles, domain.RoleTester)
	}
	return roles
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing "Z" is rewritten
// to "+00:00" first; values without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	value := strings.TrimSpace(s)
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is required")
	}
	if strings.HasSuffix(value, "Z") {
		value = strings.TrimSuffix(value, "Z") + "+00:00"
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse created_at %q: not an ISO-8601 timestamp", s)
}
