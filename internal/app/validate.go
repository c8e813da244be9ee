package app

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// validateRequest rejects malformed queries before any solver state is
// built: unknown ecosystems and platforms fail fast, empty fields fail as invalid
// arguments.
func validateRequest(req Request) error {
	if strings.TrimSpace(req.Package) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package must be set")
	}
	if strings.TrimSpace(req.Version) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("version must be set")
	}
	switch req.Ecosystem {
	case EcosystemOpam, EcosystemDebian, EcosystemAlpine, EcosystemCargo:
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported ecosystem: " + req.Ecosystem)
	}
	switch req.Platform {
	case "", PlatformDebian, PlatformAlpine:
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported platform: " + req.Platform)
	}
	return nil
}
