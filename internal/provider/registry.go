package provider

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Registry holds every named profile loaded from providers.json plus the
// name of the active one (defaults.profile).
type Registry struct {
	profiles map[string]Profile
	active   string
}

// LoadRegistry reads providers.json (via viper, the way the teacher
// loads config.yaml) from path and returns the resulting Registry.
func LoadRegistry(path string) (*Registry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read provider profiles %s: %w", path, err)
	}

	active := v.GetString("defaults.profile")
	if active == "" {
		return nil, fmt.Errorf("provider profiles %s: defaults.profile is required", path)
	}

	raw := v.Sub("profiles")
	if raw == nil {
		return nil, fmt.Errorf("provider profiles %s: no profiles section", path)
	}

	profiles := map[string]Profile{}
	for _, name := range namesIn(v, "profiles") {
		var p Profile
		sub := v.Sub("profiles." + name)
		if err := sub.Unmarshal(&p); err != nil {
			return nil, fmt.Errorf("provider profile %q: %w", name, err)
		}
		p.Name = name
		profiles[name] = p
	}

	if _, ok := profiles[active]; !ok {
		return nil, fmt.Errorf("provider profiles %s: active profile %q not defined", path, active)
	}

	return &Registry{profiles: profiles, active: active}, nil
}

func namesIn(v *viper.Viper, key string) []string {
	m := v.GetStringMap(key)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

// Active returns the currently selected profile.
func (r *Registry) Active() Profile {
	return r.profiles[r.active]
}

// Get looks up a named profile.
func (r *Registry) Get(name string) (Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// APIKeyFromEnv resolves the active profile's auth token, reading
// APIKeyEnv if set, else the ANTHROPIC_API_KEY convention.
func (r *Registry) APIKeyFromEnv() string {
	p := r.Active()
	envVar := p.APIKeyEnv
	if envVar == "" {
		envVar = "ANTHROPIC_API_KEY"
	}
	return os.Getenv(envVar)
}
