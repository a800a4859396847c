package lifetime

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML schema accepted by Parse and LoadFile:
//
//	profiles:
//	  product:
//	    stale: 5m
//	    expire: 1h
//	    refresh: background
//	  report:
//	    stale: 1h
//	    expire: 24h
//	    refresh: blocking
type fileConfig struct {
	Profiles map[string]profileConfig `yaml:"profiles"`
}

type profileConfig struct {
	// Stale and Expire are Go duration strings ("90s", "5m", "24h").
	// Empty or "never" means the window never elapses.
	Stale  string `yaml:"stale"`
	Expire string `yaml:"expire"`

	// Refresh is "background" (default) or "blocking".
	Refresh string `yaml:"refresh"`
}

// Parse registers every profile found in YAML data. Profiles are
// validated individually; the first invalid one aborts with no further
// registrations, but profiles registered before it remain.
func (r *Registry) Parse(data []byte) error {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("lifetime: parse config: %w", err)
	}

	for name, pc := range cfg.Profiles {
		p, err := pc.profile()
		if err != nil {
			return fmt.Errorf("lifetime: profile %q: %w", name, err)
		}
		if err := r.Register(name, p); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a YAML profile file and registers its profiles.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("lifetime: read config: %w", err)
	}
	return r.Parse(data)
}

func (pc profileConfig) profile() (Profile, error) {
	var p Profile
	var err error

	if p.Stale, err = parseWindow(pc.Stale); err != nil {
		return Profile{}, fmt.Errorf("stale: %w", err)
	}
	if p.Expire, err = parseWindow(pc.Expire); err != nil {
		return Profile{}, fmt.Errorf("expire: %w", err)
	}

	switch pc.Refresh {
	case "", "background":
		p.Refresh = RefreshBackground
	case "blocking":
		p.Refresh = RefreshBlocking
	default:
		return Profile{}, fmt.Errorf("unknown refresh policy %q", pc.Refresh)
	}

	return p, nil
}

func parseWindow(s string) (time.Duration, error) {
	if s == "" || s == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %v", d)
	}
	return d, nil
}
