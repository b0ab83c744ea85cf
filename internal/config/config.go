package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDetectThreshold is the minimum detector confidence for a box
	// to be treated as a face. Shared by the capture and attendance paths.
	DefaultDetectThreshold = 0.7

	// DefaultRecognizeThreshold is the maximum prediction distance for a
	// recognizer match to be accepted. Lower distance = stronger match.
	DefaultRecognizeThreshold = 75.0

	// DefaultSampleTarget is the number of face samples captured per student.
	DefaultSampleTarget = 60
)

type Config struct {
	Camera  CameraConfig
	Vision  VisionConfig
	Remote  RemoteConfig
	Storage StorageConfig
	Speech  SpeechConfig
}

type CameraConfig struct {
	Index int // V4L2 device index (/dev/video<N>)
}

type VisionConfig struct {
	URL                string  // face detection/embedding server, defaults to http://localhost:8000
	DetectThreshold    float64 // minimum detection confidence
	RecognizeThreshold float64 // maximum accepted prediction distance
}

type RemoteConfig struct {
	URI      string // remote store URI (mongodb://, postgres:// or mysql://), empty = sync disabled
	Database string // database name, defaults to AiAttendance
}

type StorageConfig struct {
	DataDir string // root for all local artifacts, defaults to the working directory
}

type SpeechConfig struct {
	Command string // TTS command invoked with the utterance as its argument, empty = silent
}

// settingsFile mirrors the optional settings.yaml document. Environment
// variables take precedence over it.
type settingsFile struct {
	CameraIndex *int    `yaml:"camera_index"`
	RemoteURI   *string `yaml:"remote_uri"`
	VisionURL   *string `yaml:"vision_url"`
	DataDir     *string `yaml:"data_dir"`
	SpeechCmd   *string `yaml:"speech_command"`
}

// TrainingDir is the root directory for per-student face sample sets.
func (c *StorageConfig) TrainingDir() string {
	return filepath.Join(c.DataDir, "TrainingImage")
}

// ModelPath is the fixed storage slot for the trained recognition model.
func (c *StorageConfig) ModelPath() string {
	return filepath.Join(c.DataDir, "TrainingImageLabel", "model.gob")
}

// RosterPath is the append-only student roster CSV.
func (c *StorageConfig) RosterPath() string {
	return filepath.Join(c.DataDir, "StudentDetails", "studentdetails.csv")
}

// AttendanceDir is the root for per-subject attendance files.
func (c *StorageConfig) AttendanceDir() string {
	return filepath.Join(c.DataDir, "Attendance")
}

// PendingLogPath is the offline sync log listing attendance files that have
// not been confirmed uploaded to the remote store.
func (c *StorageConfig) PendingLogPath() string {
	return filepath.Join(c.DataDir, "offline_sync_log.txt")
}

// envInt reads an environment variable and parses it as a non-negative
// integer. The second return reports whether the variable was usable.
func envInt(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n, true
	}
	return 0, false
}

// Load builds the configuration from the optional settings.yaml in the
// working directory overlaid with environment variables. It never fails:
// a missing or corrupted settings file falls back to defaults.
func Load() *Config {
	return LoadFrom("settings.yaml")
}

// LoadFrom is Load with an explicit settings file path, used by tests.
func LoadFrom(settingsPath string) *Config {
	cfg := &Config{
		Camera: CameraConfig{Index: 0},
		Vision: VisionConfig{
			URL:                "http://localhost:8000",
			DetectThreshold:    DefaultDetectThreshold,
			RecognizeThreshold: DefaultRecognizeThreshold,
		},
		Remote: RemoteConfig{
			Database: "AiAttendance",
		},
		Storage: StorageConfig{DataDir: "."},
	}

	// settings.yaml is optional; ignore a missing or malformed file.
	if data, err := os.ReadFile(settingsPath); err == nil {
		var s settingsFile
		if err := yaml.Unmarshal(data, &s); err == nil {
			if s.CameraIndex != nil && *s.CameraIndex >= 0 {
				cfg.Camera.Index = *s.CameraIndex
			}
			if s.RemoteURI != nil {
				cfg.Remote.URI = *s.RemoteURI
			}
			if s.VisionURL != nil && *s.VisionURL != "" {
				cfg.Vision.URL = *s.VisionURL
			}
			if s.DataDir != nil && *s.DataDir != "" {
				cfg.Storage.DataDir = *s.DataDir
			}
			if s.SpeechCmd != nil {
				cfg.Speech.Command = *s.SpeechCmd
			}
		}
	}

	if v, ok := envInt("CAMERA_INDEX"); ok {
		cfg.Camera.Index = v
	}
	if v := os.Getenv("REMOTE_URI"); v != "" {
		cfg.Remote.URI = v
	}
	if v := os.Getenv("REMOTE_DATABASE"); v != "" {
		cfg.Remote.Database = v
	}
	if v := os.Getenv("VISION_URL"); v != "" {
		cfg.Vision.URL = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SPEECH_COMMAND"); v != "" {
		cfg.Speech.Command = v
	}

	return cfg
}
