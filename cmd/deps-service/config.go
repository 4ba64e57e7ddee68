package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAcquireTimeout = 30 * time.Second
	defaultMaxBodyBytes   = 1 << 20
	defaultAuditLogPath   = "/var/log/deps-service/audit.log"
)

// LoadConfig reads, validates and compiles the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.compile(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// Command returns the whitelisted command called name.
func (c *Config) Command(name string) (*CommandConfig, bool) {
	for i := range c.Commands {
		if c.Commands[i].Name == name {
			return &c.Commands[i], true
		}
	}
	return nil, false
}

// compile validates the configuration, fills defaults and precompiles
// argument patterns. Every problem is reported, not only the first.
func (c *Config) compile() error {
	var errs []error
	if len(c.Commands) == 0 {
		errs = append(errs, errors.New("commands cannot be empty"))
	}

	seen := make(map[string]bool, len(c.Commands))
	for i := range c.Commands {
		cmd := &c.Commands[i]
		prefix := fmt.Sprintf("command[%d] (%s)", i, cmd.Name)
		if cmd.Name == "" {
			errs = append(errs, fmt.Errorf("command[%d]: name cannot be empty", i))
		} else if seen[cmd.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name", prefix))
		}
		seen[cmd.Name] = true

		if cmd.BinaryPath == "" {
			errs = append(errs, fmt.Errorf("%s: binary_path cannot be empty", prefix))
		}
		if len(cmd.AllowedArgsPatterns) == 0 {
			errs = append(errs, fmt.Errorf("%s: allowed_args_patterns cannot be empty", prefix))
		}
		cmd.patterns = cmd.patterns[:0]
		for _, p := range cmd.AllowedArgsPatterns {
			re, err := regexp.Compile(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: bad pattern %q: %w", prefix, p, err))
				continue
			}
			cmd.patterns = append(cmd.patterns, re)
		}
		d, err := time.ParseDuration(cmd.Timeout)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid timeout %q", prefix, cmd.Timeout))
		}
		cmd.timeout = d
		if cmd.MaxConcurrent <= 0 {
			errs = append(errs, fmt.Errorf("%s: max_concurrent must be greater than 0", prefix))
		}
	}

	sec := &c.Security
	if sec.SharedVolumePath == "" {
		errs = append(errs, errors.New("security.shared_volume_path cannot be empty"))
	} else {
		sec.SharedVolumePath = filepath.Clean(sec.SharedVolumePath)
	}
	if len(sec.ForbiddenPaths) == 0 {
		errs = append(errs, errors.New("security.forbidden_paths cannot be empty"))
	}
	if sec.MaxCommandLength <= 0 {
		errs = append(errs, errors.New("security.max_command_length must be greater than 0"))
	}
	if sec.AuditLogPath == "" {
		sec.AuditLogPath = defaultAuditLogPath
	}

	lim := &c.Limits
	lim.acquireTimeout = defaultAcquireTimeout
	if lim.AcquireTimeout != "" {
		d, err := time.ParseDuration(lim.AcquireTimeout)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("limits.acquire_timeout: invalid duration %q", lim.AcquireTimeout))
		} else {
			lim.acquireTimeout = d
		}
	}
	if lim.MaxBodyBytes <= 0 {
		lim.MaxBodyBytes = defaultMaxBodyBytes
	}

	return errors.Join(errs...)
}
