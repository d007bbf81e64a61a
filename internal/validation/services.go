package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/feek13/mini-social-sub003/internal/logger"
	"go.uber.org/zap"
)

// ServiceCheck probes one backing service.
type ServiceCheck func(ctx context.Context) error

// ServiceValidator fails startup when a service listed in REQUIRED_SERVICES
// is unreachable. Services not listed are never probed.
type ServiceValidator struct {
	requiredServices []string
	checks           map[string]ServiceCheck
	timeout          time.Duration
}

// NewServiceValidator takes the comma-separated REQUIRED_SERVICES value.
func NewServiceValidator(required string) *ServiceValidator {
	return &ServiceValidator{
		requiredServices: parseRequiredServices(required),
		checks:           make(map[string]ServiceCheck),
		timeout:          10 * time.Second,
	}
}

// Register adds the probe for a named service ("redis", "database", ...).
func (sv *ServiceValidator) Register(name string, check ServiceCheck) *ServiceValidator {
	sv.checks[strings.ToLower(name)] = check
	return sv
}

func (sv *ServiceValidator) Required() []string {
	return sv.requiredServices
}

// ValidateServices runs the probe of every required service, stopping at the
// first failure. A required service without a registered probe is an error.
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", sv.requiredServices))

	for _, name := range sv.requiredServices {
		check, ok := sv.checks[name]
		if !ok {
			return fmt.Errorf("required service %q has no health check", name)
		}

		checkCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			logger.Log.Error("Required service validation failed", zap.String("service", name), zap.Error(err))
			return fmt.Errorf("required service %q validation failed: %w", name, err)
		}
		logger.Log.Info("Service validated", zap.String("service", name))
	}
	return nil
}

func parseRequiredServices(value string) []string {
	seen := make(map[string]bool)
	var required []string
	for _, s := range strings.Split(value, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !seen[s] {
			seen[s] = true
			required = append(required, s)
		}
	}
	sort.Strings(required)
	return required
}
