package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	lru "github.com/hashicorp/golang-lru"

	"github.com/kkkkikiki/quizgift/internal/repository"
)

// OptionPrefix namespaces plugin settings inside the WordPress options table
const OptionPrefix = "qcm_"

// DBVersionOption records the schema version written by the migration
const DBVersionOption = OptionPrefix + "db_version"

const cacheSize = 128

// ErrUnknownSetting is returned for keys that have no default
var ErrUnknownSetting = errors.New("unknown setting")

// Setting keys
const (
	QuizTimeLimit     = "quiz_time_limit"
	QuestionsPerQuiz  = "questions_per_quiz"
	PassScore         = "pass_score"
	AllowRetake       = "allow_retake"
	RequirePhone      = "require_phone"
	RequireAddress    = "require_address"
	AutoAssignGift    = "auto_assign_gift"
	NotificationEmail = "notification_email"
	ResultsPerPage    = "results_per_page"
)

// Defaults maps every setting key to its default value
var Defaults = map[string]string{
	QuizTimeLimit:     "600",
	QuestionsPerQuiz:  "10",
	PassScore:         "7",
	AllowRetake:       "no",
	RequirePhone:      "yes",
	RequireAddress:    "yes",
	AutoAssignGift:    "yes",
	NotificationEmail: "",
	ResultsPerPage:    "50",
}

// Setting is a key with its default and effective value
type Setting struct {
	Key        string
	Default    string
	Value      string
	Overridden bool
}

type cached struct {
	value string
	ok    bool
}

// Store resolves settings from persisted overrides, falling back to Defaults
type Store struct {
	db      repository.DBExecutor
	options *repository.OptionRepository
	cache   *lru.Cache
}

// NewStore creates a settings store backed by the options table
func NewStore(db repository.DBExecutor, options *repository.OptionRepository) (*Store, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings cache: %w", err)
	}
	return &Store{db: db, options: options, cache: cache}, nil
}

func (s *Store) lookup(ctx context.Context, key string) (cached, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.(cached), nil
	}
	value, ok, err := s.options.GetOption(ctx, s.db, OptionPrefix+key)
	if err != nil {
		return cached{}, err
	}
	c := cached{value: value, ok: ok}
	s.cache.Add(key, c)
	return c, nil
}

// Get returns the effective value of a setting
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	def, known := Defaults[key]
	if !known {
		return "", fmt.Errorf("%s: %w", key, ErrUnknownSetting)
	}
	c, err := s.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !c.ok {
		return def, nil
	}
	return c.value, nil
}

// Int returns a numeric setting, falling back to the default when the stored value is not a number
func (s *Store) Int(ctx context.Context, key string) (int, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return strconv.Atoi(Defaults[key])
	}
	return n, nil
}

// Bool returns a yes/no setting
func (s *Store) Bool(ctx context.Context, key string) (bool, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	switch v {
	case "yes", "1", "true", "on":
		return true, nil
	default:
		return false, nil
	}
}

// Set persists an override
func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, known := Defaults[key]; !known {
		return fmt.Errorf("%s: %w", key, ErrUnknownSetting)
	}
	if err := s.options.SetOption(ctx, s.db, OptionPrefix+key, value); err != nil {
		return err
	}
	s.cache.Add(key, cached{value: value, ok: true})
	return nil
}

// Reset removes an override so the default applies again
func (s *Store) Reset(ctx context.Context, key string) error {
	if _, known := Defaults[key]; !known {
		return fmt.Errorf("%s: %w", key, ErrUnknownSetting)
	}
	if err := s.options.DeleteOption(ctx, s.db, OptionPrefix+key); err != nil {
		return err
	}
	s.cache.Remove(key)
	return nil
}

// All returns every setting sorted by key
func (s *Store) All(ctx context.Context) ([]Setting, error) {
	stored, err := s.options.ListOptions(ctx, s.db, OptionPrefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(Defaults))
	for k := range Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Setting, 0, len(keys))
	for _, k := range keys {
		st := Setting{Key: k, Default: Defaults[k], Value: Defaults[k]}
		if v, ok := stored[OptionPrefix+k]; ok {
			st.Value = v
			st.Overridden = true
		}
		out = append(out, st)
	}
	return out, nil
}

// Invalidate drops cached values, e.g. after the options table was changed elsewhere
func (s *Store) Invalidate() {
	s.cache.Purge()
}
