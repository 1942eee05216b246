// Package config loads application configuration from environment variables
// and an optional lane policy file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken  string
	Repo         string // owner/repo
	PollInterval time.Duration
	AdaptivePoll bool
	ListenAddr   string
	DBPath       string
	DryRun       bool
	Concurrency  int
	LogFormat    string
	LogLevel     string
	Policy       Policy
}

// Policy controls how commit status contexts become lanes and how override
// directives are written. It is read from OVERRIDEBOT_POLICY_FILE when set.
type Policy struct {
	Namespaces      []string `yaml:"namespaces"`
	ExcludedMarkers []string `yaml:"excluded_markers"`
	KnownProviders  []string `yaml:"known_providers"`
	OverrideMarker  string   `yaml:"override_marker"`
	Command         string   `yaml:"command"`
}

// DefaultPolicy returns the Prow defaults.
func DefaultPolicy() Policy {
	return Policy{
		Namespaces:      []string{"prow"},
		ExcludedMarkers: []string{"ci-index", "images"},
		KnownProviders:  []string{},
		OverrideMarker:  "Overridden",
		Command:         "/override",
	}
}

// Load reads configuration from environment variables and returns a validated Config.
// Required: OVERRIDEBOT_GITHUB_TOKEN, OVERRIDEBOT_REPO.
// Optional variables with defaults: OVERRIDEBOT_POLL_INTERVAL (10m),
// OVERRIDEBOT_LISTEN_ADDR (127.0.0.1:8080), OVERRIDEBOT_DB_PATH (overridebot.db),
// OVERRIDEBOT_ADAPTIVE_POLL (false), OVERRIDEBOT_DRY_RUN (false), OVERRIDEBOT_CONCURRENCY (4),
// OVERRIDEBOT_LOG_FORMAT (text), OVERRIDEBOT_LOG_LEVEL (info).
func Load() (*Config, error) {
	token := os.Getenv("OVERRIDEBOT_GITHUB_TOKEN")
	if token == "" {
		return nil, errors.New("OVERRIDEBOT_GITHUB_TOKEN is required")
	}

	repo := strings.TrimSpace(os.Getenv("OVERRIDEBOT_REPO"))
	if repo == "" {
		return nil, errors.New("OVERRIDEBOT_REPO is required")
	}
	if owner, name, ok := strings.Cut(repo, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("OVERRIDEBOT_REPO must be in owner/repo form, got %q", repo)
	}

	pollInterval := 10 * time.Minute
	if v, ok := os.LookupEnv("OVERRIDEBOT_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("OVERRIDEBOT_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("OVERRIDEBOT_POLL_INTERVAL must be positive, got %q", v)
		}
		pollInterval = parsed
	}

	adaptivePoll := false
	if v, ok := os.LookupEnv("OVERRIDEBOT_ADAPTIVE_POLL"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("OVERRIDEBOT_ADAPTIVE_POLL has invalid bool %q: %w", v, err)
		}
		adaptivePoll = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("OVERRIDEBOT_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "overridebot.db"
	if v, ok := os.LookupEnv("OVERRIDEBOT_DB_PATH"); ok {
		dbPath = v
	}

	dryRun := false
	if v, ok := os.LookupEnv("OVERRIDEBOT_DRY_RUN"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("OVERRIDEBOT_DRY_RUN has invalid bool %q: %w", v, err)
		}
		dryRun = parsed
	}

	concurrency := 4
	if v, ok := os.LookupEnv("OVERRIDEBOT_CONCURRENCY"); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("OVERRIDEBOT_CONCURRENCY must be a positive integer, got %q", v)
		}
		concurrency = parsed
	}

	logFormat := "text"
	if v := os.Getenv("OVERRIDEBOT_LOG_FORMAT"); v != "" {
		logFormat = strings.ToLower(v)
		if logFormat != "text" && logFormat != "json" {
			return nil, fmt.Errorf("OVERRIDEBOT_LOG_FORMAT must be text or json, got %q", v)
		}
	}

	logLevel := "info"
	if v := os.Getenv("OVERRIDEBOT_LOG_LEVEL"); v != "" {
		logLevel = strings.ToLower(v)
		if _, err := ParseLevel(logLevel); err != nil {
			return nil, fmt.Errorf("OVERRIDEBOT_LOG_LEVEL: %w", err)
		}
	}

	policy, err := LoadPolicy(os.Getenv("OVERRIDEBOT_POLICY_FILE"))
	if err != nil {
		return nil, err
	}

	// Env overrides (simple, explicit)
	if v, ok := lookupList("OVERRIDEBOT_NAMESPACES"); ok {
		policy.Namespaces = v
	}
	if v, ok := lookupList("OVERRIDEBOT_EXCLUDED_MARKERS"); ok {
		policy.ExcludedMarkers = v
	}
	if v, ok := lookupList("OVERRIDEBOT_KNOWN_PROVIDERS"); ok {
		policy.KnownProviders = v
	}

	if len(policy.Namespaces) == 0 {
		return nil, errors.New("lane policy needs at least one namespace")
	}

	return &Config{
		GitHubToken:  token,
		Repo:         repo,
		PollInterval: pollInterval,
		AdaptivePoll: adaptivePoll,
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		DryRun:       dryRun,
		Concurrency:  concurrency,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		Policy:       policy,
	}, nil
}

// LoadPolicy reads a YAML lane policy from path on top of DefaultPolicy.
// An empty path returns the defaults. Fields absent from the file keep their
// default values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	p.Namespaces = cleanList(p.Namespaces)
	p.ExcludedMarkers = cleanList(p.ExcludedMarkers)
	p.KnownProviders = cleanList(p.KnownProviders)
	p.OverrideMarker = strings.TrimSpace(p.OverrideMarker)
	p.Command = strings.TrimSpace(p.Command)

	return p, nil
}

// lookupList reads a comma-separated env var. ok is false when the variable is unset.
// An explicitly empty value yields an empty list.
func lookupList(key string) ([]string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil, false
	}
	return cleanList(strings.Split(v, ",")), true
}

func cleanList(in []string) []string {
	out := []string{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
