package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// UNIXSock is the IPC binding path. Overrides Addr and Port
	UNIXSock string
	// Data is the data directory
	Data string
	// DSN points to where studypace stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your studypace instance.
	InstanceURL string

	// Scheduling configuration. Every tunable the memory model and the
	// plan builder consume is set here, never hardcoded at call sites.

	// TargetRetention is the recall probability the scheduler aims for
	// at the moment a card comes due.
	TargetRetention float64 // STUDYPACE_TARGET_RETENTION (default: 0.9)
	// MaxIntervalDays caps any scheduled review interval.
	MaxIntervalDays int // STUDYPACE_MAX_INTERVAL_DAYS (default: 365)
	// EnableFuzz randomizes day-scale intervals to spread review load.
	EnableFuzz bool // STUDYPACE_ENABLE_FUZZ (default: true)
	// GraduateGoodFirstRating sends a brand-new card rated Good straight
	// to long-term review instead of through the learning steps.
	GraduateGoodFirstRating bool // STUDYPACE_GRADUATE_GOOD_FIRST (default: false)

	// RiskSafeFloor and RiskWarnFloor bucket projected retention for
	// readiness reports: >= safe floor is SAFE, >= warn floor is WARNING.
	RiskSafeFloor float64 // STUDYPACE_RISK_SAFE_FLOOR (default: 0.8)
	RiskWarnFloor float64 // STUDYPACE_RISK_WARN_FLOOR (default: 0.5)

	// Plan builder slot shares for the non-review pools, as fractions of
	// the budget left after due reviews are seated. Normalized at use.
	PlanCurrentShare float64 // STUDYPACE_PLAN_CURRENT_SHARE (default: 0.5)
	PlanBridgeShare  float64 // STUDYPACE_PLAN_BRIDGE_SHARE (default: 0.3)
	PlanStretchShare float64 // STUDYPACE_PLAN_STRETCH_SHARE (default: 0.2)
	// MaxPullForwardDays caps how far slightly-future reviews are pulled
	// into today's plan when the learner is behind.
	MaxPullForwardDays int // STUDYPACE_MAX_PULL_FORWARD_DAYS (default: 3)
	// StretchWindowDays is how far ahead of pace stretch topics may sit.
	StretchWindowDays int // STUDYPACE_STRETCH_WINDOW_DAYS (default: 7)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}

// FromEnv loads the scheduling configuration from STUDYPACE_* environment
// variables. Unset or unparsable values keep their defaults.
func (p *Profile) FromEnv() {
	p.TargetRetention = getFloatEnv("STUDYPACE_TARGET_RETENTION", 0.9)
	p.MaxIntervalDays = getIntEnv("STUDYPACE_MAX_INTERVAL_DAYS", 365)
	p.EnableFuzz = getBoolEnv("STUDYPACE_ENABLE_FUZZ", true)
	p.GraduateGoodFirstRating = getBoolEnv("STUDYPACE_GRADUATE_GOOD_FIRST", false)

	p.RiskSafeFloor = getFloatEnv("STUDYPACE_RISK_SAFE_FLOOR", 0.8)
	p.RiskWarnFloor = getFloatEnv("STUDYPACE_RISK_WARN_FLOOR", 0.5)

	p.PlanCurrentShare = getFloatEnv("STUDYPACE_PLAN_CURRENT_SHARE", 0.5)
	p.PlanBridgeShare = getFloatEnv("STUDYPACE_PLAN_BRIDGE_SHARE", 0.3)
	p.PlanStretchShare = getFloatEnv("STUDYPACE_PLAN_STRETCH_SHARE", 0.2)
	p.MaxPullForwardDays = getIntEnv("STUDYPACE_MAX_PULL_FORWARD_DAYS", 3)
	p.StretchWindowDays = getIntEnv("STUDYPACE_STRETCH_WINDOW_DAYS", 7)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "studypace")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/studypace"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("studypace_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.TargetRetention <= 0 || p.TargetRetention > 1 {
		return errors.Errorf("target retention %f outside (0, 1]", p.TargetRetention)
	}
	if p.MaxIntervalDays < 1 {
		return errors.Errorf("max interval %d days is below 1", p.MaxIntervalDays)
	}
	if p.RiskSafeFloor < p.RiskWarnFloor {
		return errors.Errorf("risk safe floor %f below warning floor %f", p.RiskSafeFloor, p.RiskWarnFloor)
	}
	if p.PlanCurrentShare < 0 || p.PlanBridgeShare < 0 || p.PlanStretchShare < 0 {
		return errors.New("plan pool shares must be non-negative")
	}

	return nil
}
