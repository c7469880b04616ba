package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "sprout"
	DefaultKeyringUser = "session-token"
	KeyringDSNUser     = "connection-string"
	DefaultConfigDir   = "~/.config/sprout"
	DefaultConfigFile  = "config.yaml"
	DefaultDataDirName = "data"
	Version            = "v0.3.0"

	// DateFormat is the calendar date format used for entry dates (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimestampFormat is the layout used when entry creation times are shown or exported
	TimestampFormat = "2006-01-02 15:04:05"

	// Credential rules
	MinUsernameLength = 4
	MaxUsernameLength = 64
	MinPasswordLength = 6

	// Storage backends
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	// JSON store layout
	UsersFileName     = "users.json"
	JournalsDirName   = "journals"
	EntriesFileName   = "entries.json"
	SummaryFileName   = "metrics.json"
	JournalLockName   = ".lock"
	SQLiteFileName    = "sprout.db"
	SessionKeyName    = "session.key"
	JournalLockRetry  = 25 * time.Millisecond
	JournalLockWait   = 5 * time.Second
	SessionKeyLength  = 32
	DefaultTokenTTL   = 30 * 24 * time.Hour
	DefaultBcryptCost = 12

	// Backup constants
	MaxBackups          = 14
	BackupDirName       = "backups"
	BackupFilePrefix    = "sprout-"
	BackupFileSuffix    = ".db"
	BackupArchiveSuffix = ".tar.gz"

	// Export
	ExportFileName = "growth_mindset_journal.csv"

	// Server
	DefaultServerAddress = ":8080"
	ShutdownTimeout      = 15 * time.Second
)

// Session States
const (
	StateLearn SessionState = iota
	StateChallenge
	StateReflect
	StateEntries
	StateProgress
	StateLogin
	StateWriting
)

// TabTitles are the TUI tab titles, indexed by SessionState
var TabTitles = []string{"Learn", "Challenge", "Reflect", "Entries", "Progress"}
