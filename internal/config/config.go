package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	FFmpeg struct {
		FFmpegBin  string `yaml:"ffmpeg_bin"`
		FFprobeBin string `yaml:"ffprobe_bin"`
	} `yaml:"ffmpeg"`

	Canonical struct {
		FrameRate  int    `yaml:"frame_rate"`
		SampleRate int    `yaml:"sample_rate"`
		Preset     string `yaml:"preset"`
		CRF        int    `yaml:"crf"`
		GOPSeconds int    `yaml:"gop_seconds"`
	} `yaml:"canonical"`

	Segmenter struct {
		SilenceThresholdDb float64 `yaml:"silence_threshold_db"`
		MinSilenceSeconds  float64 `yaml:"min_silence_seconds"`
		PaddingSeconds     float64 `yaml:"padding_seconds"`
		Detector           string  `yaml:"detector"` // ffmpeg|wav
	} `yaml:"segmenter"`

	Transcription struct {
		Backend  string `yaml:"backend"` // whisper|openai|none
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
		Python   string `yaml:"python"`
	} `yaml:"transcription"`

	Render struct {
		LoudnessTarget float64 `yaml:"loudness_target"`
		TruePeak       float64 `yaml:"true_peak"`
		LoudnessRange  float64 `yaml:"loudness_range"`
		MusicGainDb    float64 `yaml:"music_gain_db"`
		DuckGainDb     float64 `yaml:"duck_gain_db"`
		DuckAttack     float64 `yaml:"duck_attack_seconds"`
		DuckRelease    float64 `yaml:"duck_release_seconds"`
		IntroSeconds   float64 `yaml:"intro_seconds"`
		FontsDir       string  `yaml:"fonts_dir"`
		SubtitleStyle  string  `yaml:"subtitle_style"`
	} `yaml:"render"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		ScratchDir string `yaml:"scratch_dir"`
		OutputDir  string `yaml:"output_dir"`
		Database   string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

// Default returns the built-in configuration. Segmenter values match the
// thresholds that work well for screen-capture commentary.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.FFmpeg.FFmpegBin = "ffmpeg"
	cfg.FFmpeg.FFprobeBin = "ffprobe"
	cfg.Canonical.FrameRate = 30
	cfg.Canonical.SampleRate = 44100
	cfg.Canonical.Preset = "fast"
	cfg.Canonical.CRF = 20
	cfg.Canonical.GOPSeconds = 2
	cfg.Segmenter.SilenceThresholdDb = -30
	cfg.Segmenter.MinSilenceSeconds = 0.5
	cfg.Segmenter.PaddingSeconds = 0.25
	cfg.Segmenter.Detector = "ffmpeg"
	cfg.Transcription.Backend = "whisper"
	cfg.Transcription.Model = "base"
	cfg.Transcription.Language = "en"
	cfg.Transcription.Python = "python3"
	cfg.Render.LoudnessTarget = -16
	cfg.Render.TruePeak = -1.5
	cfg.Render.LoudnessRange = 11
	cfg.Render.MusicGainDb = -18
	cfg.Render.DuckGainDb = -12
	cfg.Render.DuckAttack = 0.05
	cfg.Render.DuckRelease = 0.2
	cfg.Render.IntroSeconds = 2
	cfg.Workers.Count = 2
	cfg.Storage.ScratchDir = "scratch"
	cfg.Storage.OutputDir = "output"
	cfg.Storage.Database = "scratch/projects.db"
	cfg.Cleanup.IntervalMinutes = 60
	cfg.Cleanup.MaxAgeHours = 24
	cfg.Limits.MaxFileSizeMB = 4096
	return cfg
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists, defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Canonical.FrameRate <= 0 {
		return fmt.Errorf("canonical frame_rate must be positive, got %d", c.Canonical.FrameRate)
	}
	if c.Canonical.SampleRate <= 0 {
		return fmt.Errorf("canonical sample_rate must be positive, got %d", c.Canonical.SampleRate)
	}
	if c.Segmenter.MinSilenceSeconds <= 0 {
		return fmt.Errorf("segmenter min_silence_seconds must be positive, got %g", c.Segmenter.MinSilenceSeconds)
	}
	if c.Segmenter.PaddingSeconds < 0 {
		return fmt.Errorf("segmenter padding_seconds must not be negative, got %g", c.Segmenter.PaddingSeconds)
	}
	if c.Segmenter.SilenceThresholdDb >= 0 {
		return fmt.Errorf("segmenter silence_threshold_db must be negative, got %g", c.Segmenter.SilenceThresholdDb)
	}
	switch c.Segmenter.Detector {
	case "ffmpeg", "wav":
	default:
		return fmt.Errorf("unknown segmenter detector: %s", c.Segmenter.Detector)
	}
	switch c.Transcription.Backend {
	case "whisper", "openai", "none":
	default:
		return fmt.Errorf("unknown transcription backend: %s", c.Transcription.Backend)
	}
	if c.Render.LoudnessTarget >= 0 {
		return fmt.Errorf("render loudness_target must be negative LUFS, got %g", c.Render.LoudnessTarget)
	}
	return nil
}
