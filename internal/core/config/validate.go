package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/bflex/internal/core/styles"
)

// Validate checks that the configuration is structurally valid. Every
// problem is reported as a criterio.FieldErrors entry.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", errors.New("cannot be empty"))
	}

	if !c.Dialogs.Kind.IsValid() {
		errs = errs.Append("dialogs.type", fmt.Errorf("invalid dialog type %q", c.Dialogs.Kind))
	}
	if !c.Dialogs.Variant.IsValid() {
		errs = errs.Append("dialogs.variant", fmt.Errorf("invalid variant %q", c.Dialogs.Variant))
	}
	if !c.Dialogs.Size.IsValid() {
		errs = errs.Append("dialogs.size", fmt.Errorf("invalid size %q", c.Dialogs.Size))
	}
	if c.Dialogs.TransitionDelay < 0 {
		errs = errs.Append("dialogs.transition_delay", errors.New("must not be negative"))
	}

	if !c.Notifications.Position.IsValid() {
		errs = errs.Append("notifications.position", fmt.Errorf("invalid position %q", c.Notifications.Position))
	}
	if c.Notifications.Duration < 0 {
		errs = errs.Append("notifications.duration", errors.New("must not be negative, use 0 for sticky"))
	}
	if c.Notifications.RemovalDelay < 0 {
		errs = errs.Append("notifications.removal_delay", errors.New("must not be negative"))
	}

	for i, pattern := range c.Bridge.Allow {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("bridge.allow[%d]", i), fmt.Errorf("invalid glob %q", pattern))
		}
	}

	if c.Database.MaxOpenConns < 1 {
		errs = errs.Append("database.max_open_conns", errors.New("must be at least 1"))
	}
	if c.Database.MaxIdleConns < 0 {
		errs = errs.Append("database.max_idle_conns", errors.New("must not be negative"))
	}
	if c.Database.BusyTimeout < 0 {
		errs = errs.Append("database.busy_timeout", errors.New("must not be negative"))
	}

	if c.API.Timeout < 0 {
		errs = errs.Append("api.timeout", errors.New("must not be negative"))
	}
	if !c.API.Edition.IsValid() {
		errs = errs.Append("api.edition", fmt.Errorf("invalid edition %q, use free or pro", c.API.Edition))
	}

	if _, ok := styles.GetPalette(c.TUI.Theme); !ok {
		errs = errs.Append("tui.theme", fmt.Errorf("unknown theme %q, available: %v", c.TUI.Theme, styles.ThemeNames()))
	}

	return errs.ToError()
}

// ValidateDeep runs Validate and then checks the file system: the config
// file must be a regular file and the data directory a directory.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if len(c.Bridge.Allow) == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "bridge",
			Message:  "allow list is empty, every legacy event will be dropped",
		})
	}
	if c.API.BaseURL == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "api",
			Message:  "base_url is not set, REST calls are disabled",
		})
	}
	if c.Notifications.Duration == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "notifications",
			Message:  "default duration is 0, notifications stay until closed",
		})
	}

	return warnings
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
