// Package config loads optional default connection settings (host, port,
// timeouts, WebSocket template, TLS options) from a YAML file or environment
// variables. ConnectionConfig values supplied by the caller always win; this
// package only fills in gaps so examples and long-running agents don't have
// to hardcode connection parameters.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/Ganzzi/vnc-agent-bridge/internal/logging"
)

// Defaults holds fallback values for fields a caller may omit when building
// a ConnectionConfig.
type Defaults struct {
	Host              string   `mapstructure:"host"`
	Port              int      `mapstructure:"port"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds"`
	TransportKind     string   `mapstructure:"transport"` // "tcp" or "websocket"
	URLTemplate       string   `mapstructure:"url_template"`
	HostPort          string   `mapstructure:"host_port"`
	VNCPort           string   `mapstructure:"vnc_port"`
	VerifySSL         bool     `mapstructure:"verify_ssl"`
	CertificatePEMPath string  `mapstructure:"certificate_pem_path"`
	Headers           []string `mapstructure:"headers"` // "Key: Value" pairs

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns the library's built-in fallback values.
func Default() *Defaults {
	return &Defaults{
		Port:           5900,
		TimeoutSeconds: 10,
		TransportKind:  "tcp",
		VerifySSL:      true,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads defaults from cfgFile (or the platform default search path when
// empty) and from environment variables prefixed VNCBRIDGE_. When cfgFile is
// empty and no file is found on the search path, Load falls back to
// Default(); an explicitly named cfgFile that cannot be read is an error.
func Load(cfgFile string) (*Defaults, error) {
	v := viper.New()
	cfg := Default()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("vnc-agent-bridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("VNCBRIDGE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.ValidateTiered()
	log := logging.L("config")
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("defaults have fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "vnc-agent-bridge")
	case "darwin":
		return "/Library/Application Support/vnc-agent-bridge"
	default:
		return "/etc/vnc-agent-bridge"
	}
}
