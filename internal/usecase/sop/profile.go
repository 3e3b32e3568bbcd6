package sop

import (
	"errors"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"supplyguard/internal/domain/risk"
)

const profileVersion = 1

type Playbook struct {
	Name           string   `toml:"name"`
	Owner          string   `toml:"owner"`
	Steps          []string `toml:"steps"`
	CheckPartUsage bool     `toml:"check_part_usage"`
}

// Profile maps intents to playbooks. Intents without an entry use Default.
type Profile struct {
	Version   int                 `toml:"version"`
	Default   Playbook            `toml:"default"`
	Playbooks map[string]Playbook `toml:"playbooks"`
}

func LoadProfile(path string) (Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Profile{}, errors.New("sop file is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	return ParseProfile(raw)
}

func ParseProfile(raw []byte) (Profile, error) {
	var profile Profile
	if err := toml.Unmarshal(raw, &profile); err != nil {
		return Profile{}, err
	}
	if err := validateProfile(profile); err != nil {
		return Profile{}, err
	}
	return normalizeProfile(profile), nil
}

// DefaultProfile is used when no sop file is configured.
func DefaultProfile() Profile {
	return Profile{
		Version: profileVersion,
		Default: Playbook{Name: "log-and-review", Owner: "supply-chain", Steps: []string{"record {intent} for {subject}"}},
	}
}

func validateProfile(profile Profile) error {
	if profile.Version != profileVersion {
		return errors.New("unsupported sop version: expected version = 1")
	}
	if strings.TrimSpace(profile.Default.Name) == "" {
		return errors.New("default.name is required")
	}

	for key, playbook := range profile.Playbooks {
		name := strings.TrimSpace(key)
		if _, err := risk.ParseIntent(name); err != nil {
			return errors.New("playbooks." + name + ": unknown intent")
		}
		if strings.TrimSpace(playbook.Name) == "" {
			return errors.New("playbooks." + name + ".name is required")
		}
		if len(playbook.Steps) == 0 {
			return errors.New("playbooks." + name + ".steps must not be empty")
		}
	}
	return nil
}

func normalizeProfile(profile Profile) Profile {
	playbooks := make(map[string]Playbook, len(profile.Playbooks))
	for key, playbook := range profile.Playbooks {
		playbook.Name = strings.TrimSpace(playbook.Name)
		playbook.Owner = strings.TrimSpace(playbook.Owner)
		playbooks[strings.ToUpper(strings.TrimSpace(key))] = playbook
	}
	profile.Playbooks = playbooks
	profile.Default.Name = strings.TrimSpace(profile.Default.Name)
	return profile
}

func (p Profile) PlaybookFor(intent risk.Intent) Playbook {
	if playbook, ok := p.Playbooks[string(intent)]; ok {
		return playbook
	}
	return p.Default
}
