// Package config resolves run configuration from the environment and
// validates it before a run starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ourobouros/samlocal/internal/apperror"
	"github.com/ourobouros/samlocal/internal/orchestrator"
)

// Environment variables understood by the binaries. SAMLOCAL_CLI is read by
// the launcher itself; the rest are read here.
const (
	EnvTemplate    = "SAMLOCAL_TEMPLATE"
	EnvWorkDir     = "SAMLOCAL_WORKDIR"
	EnvDebugPort   = "SAMLOCAL_DEBUG_PORT"
	EnvAttachGrace = "SAMLOCAL_ATTACH_GRACE"
)

// DefaultDebugPort is used when debug mode is requested without a port.
const DefaultDebugPort = 5890

var validate = validator.New(validator.WithRequiredStructEnabled())

// RunConfigFromEnv builds a RunConfig for the request, filling environment
// resolution (template, working directory, debug port, attach grace) from
// the process environment.
func RunConfigFromEnv(req orchestrator.RunRequest) orchestrator.RunConfig {
	cfg := orchestrator.RunConfig{
		Request:      req,
		TemplatePath: os.Getenv(EnvTemplate),
		WorkingDir:   os.Getenv(EnvWorkDir),
		DebugPort:    DefaultDebugPort,
	}
	if v := os.Getenv(EnvDebugPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.DebugPort = port
		}
	}
	if v := os.Getenv(EnvAttachGrace); v != "" {
		if grace, err := time.ParseDuration(v); err == nil {
			cfg.AttachGrace = grace
		}
	}
	return cfg
}

// ValidateRun checks a RunConfig against its validate tags. Violations come
// back as apperror.ErrValidation with the offending field named.
func ValidateRun(cfg orchestrator.RunConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		return apperror.ValidationFailed(field,
			fmt.Sprintf("field %s failed %q validation", field, fe.Tag()))
	}
	return err
}
