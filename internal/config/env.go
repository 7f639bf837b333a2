package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment keys. Runtime-mutable keys are echoed back to the .env file on
// change so a restart picks up the operator's last settings.
const (
	envBugsChat        = "BUGS_CHAT_ID"
	envReportsChat     = "REPORTS_CHAT_ID"
	envLeaderboardChat = "LEADERBOARD_CHAT_ID"
	envUpdateInterval  = "UPDATE_INTERVAL"

	envReportsEnabled = "REPORTS_ENABLED"
	envReportHour     = "REPORT_HOUR"
	envReportMinute   = "REPORT_MINUTE"

	envLeaderboardEnabled = "LEADERBOARD_ENABLED"
	envLeaderboardWeekday = "LEADERBOARD_WEEKLY_DAY"
	envLeaderboardHour    = "LEADERBOARD_HOUR"
	envLeaderboardMinute  = "LEADERBOARD_MINUTE"
	envLeaderboardDays    = "LEADERBOARD_DAYS"

	envNameMapping     = "NAME_MAPPING"
	envNameMappingFile = "NAME_MAPPING_FILE"
)

const (
	DefaultUpdateInterval  = 300 * time.Second
	DefaultLeaderboardDays = 30

	// Default report time kept from the original deployment.
	defaultReportHour   = 21
	defaultReportMinute = 37
)

// Static holds settings read once at startup and never mutated at runtime.
type Static struct {
	TelegramToken string
	OwnerIDs      []int64

	JiraServer   string
	JiraUsername string
	JiraAPIToken string
	JiraProject  string
	JiraBugJQL   string // optional override for the open-bugs query

	Timezone   string
	Loc        *time.Location
	LogLevel   string
	LogFile    string
	HealthSpec string
}

// LoadEnv loads the .env file into the process environment (best-effort; a
// missing file is fine, the environment may already be populated) and parses
// both the static settings and the runtime values.
func LoadEnv(path string) (Static, Values, error) {
	if path != "" {
		if err := godotenv.Overload(path); err != nil && !os.IsNotExist(err) {
			return Static{}, Values{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	st, err := staticFromEnv(osLookup)
	if err != nil {
		return Static{}, Values{}, err
	}
	v, err := valuesFrom(osLookup)
	if err != nil {
		return Static{}, Values{}, err
	}
	return st, v, nil
}

type lookupFunc func(key string) (string, bool)

func osLookup(key string) (string, bool) { return os.LookupEnv(key) }

func mapLookup(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// fileThenEnv prefers keys from a reloaded .env file and falls back to the
// process environment, so settings supplied only via the service manager
// (systemd Environment=...) survive a file edit.
func fileThenEnv(m map[string]string) lookupFunc {
	file := mapLookup(m)
	return func(key string) (string, bool) {
		if v, ok := file(key); ok {
			return v, ok
		}
		return os.LookupEnv(key)
	}
}

func staticFromEnv(get lookupFunc) (Static, error) {
	st := Static{
		TelegramToken: getString(get, "TELEGRAM_TOKEN", ""),
		JiraServer:    strings.TrimRight(getString(get, "JIRA_SERVER", ""), "/"),
		JiraUsername:  getString(get, "JIRA_USERNAME", ""),
		JiraAPIToken:  getString(get, "JIRA_API_TOKEN", ""),
		JiraProject:   getString(get, "JIRA_PROJECT", ""),
		JiraBugJQL:    getString(get, "JIRA_BUG_QUERY", ""),
		Timezone:      getString(get, "TIMEZONE", "Europe/Warsaw"),
		LogLevel:      getString(get, "LOG_LEVEL", "info"),
		LogFile:       getString(get, "LOG_FILE", ""),
		HealthSpec:    getString(get, "HEALTH_SPEC", "@every 10m"),
	}

	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		return Static{}, fmt.Errorf("TIMEZONE: invalid %q: %w", st.Timezone, err)
	}
	st.Loc = loc

	for _, raw := range strings.Split(getString(get, "TELEGRAM_OWNER_IDS", ""), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Static{}, fmt.Errorf("TELEGRAM_OWNER_IDS: invalid id %q", raw)
		}
		st.OwnerIDs = append(st.OwnerIDs, id)
	}
	return st, nil
}

func valuesFrom(get lookupFunc) (Values, error) {
	v := Values{}
	var err error

	if v.BugsChatID, err = getInt64(get, envBugsChat, 0); err != nil {
		return Values{}, err
	}
	if v.ReportsChatID, err = getInt64(get, envReportsChat, 0); err != nil {
		return Values{}, err
	}
	if v.LeaderboardChatID, err = getInt64(get, envLeaderboardChat, 0); err != nil {
		return Values{}, err
	}

	secs, err := getInt(get, envUpdateInterval, int(DefaultUpdateInterval.Seconds()))
	if err != nil {
		return Values{}, err
	}
	if secs <= 0 {
		return Values{}, fmt.Errorf("%s must be positive, got %d", envUpdateInterval, secs)
	}
	v.UpdateInterval = time.Duration(secs) * time.Second

	v.ReportsEnabled = getBool(get, envReportsEnabled, true)
	if v.ReportHour, err = getRange(get, envReportHour, defaultReportHour, 0, 23); err != nil {
		return Values{}, err
	}
	if v.ReportMinute, err = getRange(get, envReportMinute, defaultReportMinute, 0, 59); err != nil {
		return Values{}, err
	}

	v.LeaderboardEnabled = getBool(get, envLeaderboardEnabled, true)
	if v.LeaderboardWeekday, err = getRange(get, envLeaderboardWeekday, 1, 0, 6); err != nil {
		return Values{}, err
	}
	if v.LeaderboardHour, err = getRange(get, envLeaderboardHour, defaultReportHour, 0, 23); err != nil {
		return Values{}, err
	}
	if v.LeaderboardMinute, err = getRange(get, envLeaderboardMinute, defaultReportMinute, 0, 59); err != nil {
		return Values{}, err
	}
	if v.LeaderboardDays, err = getInt(get, envLeaderboardDays, DefaultLeaderboardDays); err != nil {
		return Values{}, err
	}
	if v.LeaderboardDays <= 0 {
		return Values{}, fmt.Errorf("%s must be positive", envLeaderboardDays)
	}

	v.Mapping = ParseMapping(getString(get, envNameMapping, ""))
	if file := getString(get, envNameMappingFile, ""); file != "" {
		fromFile, err := LoadMappingFile(file)
		if err != nil {
			return Values{}, fmt.Errorf("%s: %w", envNameMappingFile, err)
		}
		v.Mapping = v.Mapping.Merge(fromFile)
	}
	return v, nil
}

// echo writes a single key back to the .env file, preserving all other
// entries. Failure to echo is reported but the in-memory change stands.
func (s *Store) echo(key, value string) error {
	if s.envPath == "" {
		return nil
	}
	env, err := godotenv.Read(s.envPath)
	if err != nil {
		if os.IsNotExist(err) {
			env = map[string]string{}
		} else {
			return fmt.Errorf("echo %s: read %s: %w", key, s.envPath, err)
		}
	}
	env[key] = value
	if err := godotenv.Write(env, s.envPath); err != nil {
		return fmt.Errorf("echo %s: write %s: %w", key, s.envPath, err)
	}
	return nil
}

func getString(get lookupFunc, key, def string) string {
	if v, ok := get(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getInt(get lookupFunc, key string, def int) (int, error) {
	raw, ok := get(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}

func getInt64(get lookupFunc, key string, def int64) (int64, error) {
	raw, ok := get(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}

func getRange(get lookupFunc, key string, def, min, max int) (int, error) {
	n, err := getInt(get, key, def)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s: %d out of range [%d,%d]", key, n, min, max)
	}
	return n, nil
}

func getBool(get lookupFunc, key string, def bool) bool {
	raw, ok := get(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
