package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cam-per/gsframes/gsc/frames"
	"github.com/cam-per/gsframes/gsc/rlezero"
)

// Profile is an encode profile for gsctool.
type Profile struct {
	ChainGuard bool   `yaml:"chain_guard"`
	Dedup      bool   `yaml:"dedup"`
	RLEVariant string `yaml:"rle_variant"` // byte, word
	Workers    int    `yaml:"workers"`     // 0: one per CPU
	Zstd       bool   `yaml:"zstd"`        // compress the bundle payload
	ZstdLevel  int    `yaml:"zstd_level"`  // 1..22
}

func Default() *Profile {
	return &Profile{
		ChainGuard: true,
		Dedup:      true,
		RLEVariant: rlezero.VariantByte.String(),
		ZstdLevel:  3,
	}
}

// Load reads a YAML profile on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Profile, error) {
	profile := Default()
	if path == "" {
		return profile, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return profile, nil
}

func (p *Profile) Validate() error {
	if _, err := rlezero.ParseVariant(p.RLEVariant); err != nil {
		return err
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", p.Workers)
	}
	if p.ZstdLevel < 1 || p.ZstdLevel > 22 {
		return fmt.Errorf("zstd_level must be within 1..22, got %d", p.ZstdLevel)
	}
	return nil
}

func (p *Profile) FrameOptions() (frames.Options, error) {
	variant, err := rlezero.ParseVariant(p.RLEVariant)
	if err != nil {
		return frames.Options{}, err
	}
	opts := frames.DefaultOptions()
	opts.ChainGuard = p.ChainGuard
	opts.Dedup = p.Dedup
	opts.Variant = variant
	if p.Workers > 0 {
		opts.Workers = p.Workers
	}
	return opts, nil
}
