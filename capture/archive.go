package capture

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// SummaryVersion is written to every summary to track format changes
const SummaryVersion = "1.1"

// SummaryFile is the default name of the summary written to a save directory
const SummaryFile = "capture_info.json"

// Summary is the record of a capture kept alongside its images
type Summary struct {
	ID          string        `json:"id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Status      Status        `json:"status"`
	CaptureMode Mode          `json:"capture_mode"`
	Brackets    []BracketSpec `json:"brackets"`
	Progress    Progress      `json:"progress"`
	Errors      []string      `json:"errors"`
	Version     string        `json:"version"`
}

// Archiver persists a summary for a capture saved to dir
type Archiver interface {
	Save(dir string, s Summary) error
}

// JSONArchiver writes the summary as indented JSON
type JSONArchiver struct {
	// FileName defaults to SummaryFile
	FileName string
}

func (a JSONArchiver) name() string {
	if a.FileName == "" {
		return SummaryFile
	}
	return a.FileName
}

// Save writes s to dir/FileName, replacing any previous summary
func (a JSONArchiver) Save(dir string, s Summary) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, a.name()), b, 0666)
}

// Load reads a summary back from dir
func (a JSONArchiver) Load(dir string) (Summary, error) {
	var s Summary
	b, err := os.ReadFile(filepath.Join(dir, a.name()))
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(b, &s)
	return s, err
}
