package factories

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voicebridge/core"
	contexthandler "voicebridge/handlers/context"
	"voicebridge/handlers/turn"
	openaillm "voicebridge/services/openai/llm"
	openaistt "voicebridge/services/openai/stt"
	openaitts "voicebridge/services/openai/tts"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "30s" or "1m30s" in settings files.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// ServerConfig configures the device-facing HTTP listener.
type ServerConfig struct {
	Addr            string   `json:"addr" yaml:"addr"`
	MaxCaptureBytes int64    `json:"max_capture_bytes" yaml:"max_capture_bytes"`
	ReadTimeout     Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	EnableWebSocket bool     `json:"websocket" yaml:"websocket"`
}

// LoggingConfig selects the global logger. Format is "text" or "json".
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// TurnSettings is the file form of turn.TurnConfig.
type TurnSettings struct {
	CaptureFormat       core.AudioFormat `json:"capture_format" yaml:"capture_format"`
	TranscriptionFormat core.AudioFormat `json:"transcription_format" yaml:"transcription_format"`
	PlaybackFormat      core.AudioFormat `json:"playback_format" yaml:"playback_format"`
	MinSpeechBytes      int              `json:"min_speech_bytes" yaml:"min_speech_bytes"`
	MinAudioBytes       int              `json:"min_audio_bytes" yaml:"min_audio_bytes"`
	STTTimeout          Duration         `json:"stt_timeout" yaml:"stt_timeout"`
	LLMTimeout          Duration         `json:"llm_timeout" yaml:"llm_timeout"`
	TTSTimeout          Duration         `json:"tts_timeout" yaml:"tts_timeout"`
	TurnTimeout         Duration         `json:"turn_timeout" yaml:"turn_timeout"`
}

// TurnConfig converts the settings to the orchestrator's immutable config.
func (t TurnSettings) TurnConfig() turn.TurnConfig {
	cfg := turn.DefaultConfig()
	cfg.STT.CaptureFormat = t.CaptureFormat
	cfg.STT.RequiredFormat = t.TranscriptionFormat
	cfg.STT.MinSpeechBytes = t.MinSpeechBytes
	cfg.STT.Timeout = t.STTTimeout.Std()
	cfg.LLM.Timeout = t.LLMTimeout.Std()
	cfg.TTS.PlaybackFormat = t.PlaybackFormat
	cfg.TTS.MinAudioBytes = t.MinAudioBytes
	cfg.TTS.Timeout = t.TTSTimeout.Std()
	cfg.TurnTimeout = t.TurnTimeout.Std()
	return cfg
}

func defaultTurnSettings() TurnSettings {
	cfg := turn.DefaultConfig()
	return TurnSettings{
		CaptureFormat:       cfg.STT.CaptureFormat,
		TranscriptionFormat: cfg.STT.RequiredFormat,
		PlaybackFormat:      cfg.TTS.PlaybackFormat,
		MinSpeechBytes:      cfg.STT.MinSpeechBytes,
		MinAudioBytes:       cfg.TTS.MinAudioBytes,
		STTTimeout:          Duration(cfg.STT.Timeout),
		LLMTimeout:          Duration(cfg.LLM.Timeout),
		TTSTimeout:          Duration(cfg.TTS.Timeout),
		TurnTimeout:         Duration(cfg.TurnTimeout),
	}
}

// SettingsConfig is the top-level config loaded from settings.json or settings.yaml.
// Provider sections default to OpenAI when left empty.
type SettingsConfig struct {
	Server       ServerConfig                           `json:"server" yaml:"server"`
	Logging      LoggingConfig                          `json:"logging" yaml:"logging"`
	Turn         TurnSettings                           `json:"turn" yaml:"turn"`
	Conversation contexthandler.ConversationStoreConfig `json:"conversation" yaml:"conversation"`
	STT          STTFactoryConfig                       `json:"stt" yaml:"stt"`
	LLM          LLMFactoryConfig                       `json:"llm" yaml:"llm"`
	TTS          TTSFactoryConfig                       `json:"tts" yaml:"tts"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with provider defaults.
func DefaultSettingsConfig() SettingsConfig {
	s := SettingsConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			MaxCaptureBytes: 10 << 20,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(2 * time.Minute),
			ShutdownTimeout: Duration(10 * time.Second),
			EnableWebSocket: true,
		},
		Logging:      LoggingConfig{Level: "info", Format: "text"},
		Turn:         defaultTurnSettings(),
		Conversation: contexthandler.DefaultConversationStoreConfig(),
	}
	s.applyProviderDefaults()
	return s
}

func (s *SettingsConfig) applyProviderDefaults() {
	if s.STT.count() == 0 {
		cfg := openaistt.DefaultConfig()
		s.STT.OpenAIConfig = &cfg
	}
	if s.LLM.count() == 0 {
		cfg := openaillm.DefaultConfig()
		s.LLM.OpenAIConfig = &cfg
	}
	if s.TTS.count() == 0 {
		cfg := openaitts.DefaultConfig()
		s.TTS.OpenAIConfig = &cfg
	}
}

// baseSettings is DefaultSettingsConfig without providers, so a file that
// names one provider does not end up with two.
func baseSettings() SettingsConfig {
	s := DefaultSettingsConfig()
	s.STT, s.LLM, s.TTS = STTFactoryConfig{}, LLMFactoryConfig{}, TTSFactoryConfig{}
	return s
}

// SettingsConfigFromJSON parses a JSON blob on top of the defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := baseSettings()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: %w", err)
	}
	return cfg.finish()
}

// SettingsConfigFromYAML parses a YAML document on top of the defaults.
func SettingsConfigFromYAML(data []byte) (SettingsConfig, error) {
	cfg := baseSettings()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: %w", err)
	}
	return cfg.finish()
}

// SettingsConfigFromFile reads settings, choosing YAML for .yaml/.yml and JSON otherwise.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SettingsConfigFromYAML(data)
	default:
		return SettingsConfigFromJSON(data)
	}
}

// SettingsConfigFromBase64 decodes a base64 JSON blob, as passed in SETTINGS_JSON_B64.
func SettingsConfigFromBase64(b64 string) (SettingsConfig, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: decode base64: %w", err)
	}
	return SettingsConfigFromJSON(data)
}

// DefaultSettingsPath is tried when no settings source is named.
const DefaultSettingsPath = "./settings.json"

// LoadedSettings is the outcome of LoadSettings.
type LoadedSettings struct {
	Settings SettingsConfig
	Source   string // SETTINGS_JSON_B64, a file path, or "defaults"
	Skipped  error  // why DefaultSettingsPath was not used, when it was not
}

// LoadSettings resolves settings from explicitPath, then SETTINGS_JSON_B64,
// then SETTINGS_PATH. A source named by any of these must load and validate.
// Only the implicit DefaultSettingsPath may be missing or invalid, in which
// case the defaults are returned along with the reason in Skipped.
func LoadSettings(explicitPath string, getenv func(string) string) (LoadedSettings, error) {
	if explicitPath == "" {
		if b64 := getenv("SETTINGS_JSON_B64"); b64 != "" {
			settings, err := SettingsConfigFromBase64(b64)
			if err != nil {
				return LoadedSettings{}, fmt.Errorf("SETTINGS_JSON_B64: %w", err)
			}
			return LoadedSettings{Settings: settings, Source: "SETTINGS_JSON_B64"}, nil
		}
		explicitPath = getenv("SETTINGS_PATH")
	}

	if explicitPath != "" {
		settings, err := SettingsConfigFromFile(explicitPath)
		if err != nil {
			return LoadedSettings{}, err
		}
		return LoadedSettings{Settings: settings, Source: explicitPath}, nil
	}

	settings, err := SettingsConfigFromFile(DefaultSettingsPath)
	if err != nil {
		return LoadedSettings{Settings: DefaultSettingsConfig(), Source: "defaults", Skipped: err}, nil
	}
	return LoadedSettings{Settings: settings, Source: DefaultSettingsPath}, nil
}

func (s SettingsConfig) finish() (SettingsConfig, error) {
	s.applyProviderDefaults()
	if err := s.Validate(); err != nil {
		return DefaultSettingsConfig(), err
	}
	return s, nil
}

// Validate checks everything that can be checked without credentials.
func (s SettingsConfig) Validate() error {
	if s.Server.Addr == "" {
		return errors.New("settings: server.addr is required")
	}
	if s.Server.MaxCaptureBytes <= 0 {
		return fmt.Errorf("settings: server.max_capture_bytes must be positive, got %d", s.Server.MaxCaptureBytes)
	}
	if err := s.Turn.TurnConfig().Validate(); err != nil {
		return fmt.Errorf("settings: turn: %w", err)
	}
	if err := s.Conversation.Validate(); err != nil {
		return fmt.Errorf("settings: conversation: %w", err)
	}
	if s.STT.count() > 1 {
		return errors.New("settings: stt: set exactly one provider")
	}
	if s.LLM.count() > 1 {
		return errors.New("settings: llm: set exactly one provider")
	}
	if s.TTS.count() > 1 {
		return errors.New("settings: tts: set exactly one provider")
	}
	return nil
}

// InjectAPIKeys fills every empty provider key from keys, so that secrets
// stay out of settings files.
func (s *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	s.STT.InjectAPIKeys(keys)
	s.LLM.InjectAPIKeys(keys)
	s.TTS.InjectAPIKeys(keys)
}

// NewLogger builds the logger described by the logging section.
func (l LoggingConfig) NewLogger() *core.Logger {
	level := core.ParseLevel(l.Level)
	if strings.EqualFold(l.Format, "json") {
		return core.NewJSONLogger(os.Stdout, level)
	}
	return core.NewDevelopmentLogger(level)
}
