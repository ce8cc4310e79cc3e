package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrInvalidLogName rejects names that would reach outside the logs
// directory.
var ErrInvalidLogName = errors.New("invalid log name")

// Workspace is the agent's working directory on the managed server: a JSON
// config file plus a logs directory written by the processes the agent
// manages.
type Workspace struct {
	Directory  string
	ConfigPath string
	LogsDir    string
}

func NewWorkspace(directory string) *Workspace {
	return &Workspace{
		Directory:  directory,
		ConfigPath: filepath.Join(directory, "config.json"),
		LogsDir:    filepath.Join(directory, "logs"),
	}
}

// Config reads the workspace config file.
func (w *Workspace) Config() (map[string]any, error) {
	data, err := os.ReadFile(w.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// WriteConfig replaces the config file. Keys serialize sorted, so diffs of
// the file on disk stay readable.
func (w *Workspace) WriteConfig(cfg map[string]any) error {
	data, err := json.MarshalIndent(cfg, "", " ")
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if err := os.WriteFile(w.ConfigPath, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// UpdateConfig merges values into the existing config and writes it back,
// returning the merged result.
func (w *Workspace) UpdateConfig(values map[string]any) (map[string]any, error) {
	cfg, err := w.Config()
	if err != nil {
		return nil, err
	}
	for key, value := range values {
		cfg[key] = value
	}
	if err := w.WriteConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogFile describes one file in the logs directory.
type LogFile struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Logs lists the logs directory, most recently modified first. A missing
// directory is an empty listing, not an error.
func (w *Workspace) Logs() ([]LogFile, error) {
	entries, err := os.ReadDir(w.LogsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []LogFile{}, nil
		}
		return nil, fmt.Errorf("list logs: %w", err)
	}

	logs := make([]LogFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		logs = append(logs, LogFile{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Modified.After(logs[j].Modified)
	})
	return logs, nil
}

// ReadLog returns the content of one log file. The name must be a bare file
// name inside the logs directory.
func (w *Workspace) ReadLog(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidLogName, name)
	}
	data, err := os.ReadFile(filepath.Join(w.LogsDir, name))
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	return string(data), nil
}
