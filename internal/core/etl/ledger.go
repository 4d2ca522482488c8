package etl

import "time"

// FileStatus is the outcome recorded for a source file.
type FileStatus string

const (
	FileProcessed FileStatus = "processado"
	FileDuplicate FileStatus = "duplicado"
	FileFailed    FileStatus = "erro"
)

// ProcessedFile is one row of etl_arquivo_processado. Path is unique; recording the
// same path again replaces the previous outcome.
type ProcessedFile struct {
	ID         int64
	Path       string
	Name       string
	Hash       string
	Size       int64
	AccessKey  string
	DocumentID *int64
	ModifiedAt *time.Time
	Status     FileStatus
	Message    string
	BackupPath string
	Deleted    bool
}

// LogStatus is the outcome of one processing attempt.
type LogStatus string

const (
	LogSuccess   LogStatus = "sucesso"
	LogDuplicate LogStatus = "duplicado"
	LogError     LogStatus = "erro"
)

// LogEntry is one row of etl_log_processamento.
type LogEntry struct {
	ID        int64
	RunID     int64
	At        time.Time
	File      string
	AccessKey string
	Status    LogStatus
	Message   string
	Elapsed   time.Duration
	Size      int64
}
