package app

import (
	"context"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"crossdep/internal/opam"
	"crossdep/internal/repo"
	"crossdep/internal/solve"
	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// Service hosts resolution over one loaded repository snapshot. The
// indices are read-only after construction; every Resolve call builds its
// own interner, caches and provider, so concurrent calls never share
// mutable state.
type Service struct {
	Indices   *repo.Indices
	Debug     bool
	VerifySAT bool
}

// NewService wraps loaded indices.
func NewService(indices *repo.Indices) *Service {
	return &Service{Indices: indices}
}

// Resolve runs one query end to end.
// On NoSolution the returned error carries the rendered derivation tree.
func (s *Service) Resolve(ctx context.Context, req Request) (Response, error) {
	assert.NotEmpty(ctx, req.Ecosystem, "ecosystem must be set")
	if err := validateRequest(req); err != nil {
		return Response{}, err
	}
	log.Ctx(ctx).Info().
		Str("ecosystem", req.Ecosystem).
		Str("package", req.Package).
		Str("version", req.Version).
		Str("platform", req.Platform).
		Msg("resolving")

	interner := unified.NewInterner()
	qctx := unified.NewContext()
	delegate := opam.NewDelegate(s.Indices.Opam, interner, qctx, s.Debug)
	idx := unified.NewIndex(interner, qctx, s.Indices.Debian, s.Indices.Alpine, s.Indices.Cargo, delegate)

	rootRef, rootPkgRef, err := s.buildRoot(interner, req)
	if err != nil {
		return Response{}, err
	}

	provider := &solve.Provider{Index: idx, Ctx: ctx}
	result, tree, err := solve.Resolve(ctx, provider, rootRef)
	if err != nil {
		return Response{}, err
	}
	if tree != nil {
		tree.CollapseNoVersions()
		rendering := solve.StringReporter{}.Report(tree)
		return Response{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("dep_resolution_error: no solution\n" + rendering)
	}

	if s.VerifySAT {
		verified, err := solve.VerifySolution(ctx, provider, rootRef, result)
		if err != nil {
			return Response{}, err
		}
		if !verified {
			return Response{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("solver internal error: sat cross-check refuted the solution")
		}
	}

	response := Response{
		Ecosystem: req.Ecosystem,
		Package:   req.Package,
		Version:   req.Version,
		Resolved:  true,
		Platform:  req.Platform,
	}
	response.Dependencies = present(interner, result, rootPkgRef)
	log.Ctx(ctx).Info().Int("dependencies", len(response.Dependencies)).Msg("resolved")
	return response, nil
}

// Search is part of the invocation surface but intentionally
// unimplemented.
func (s *Service) Search(ctx context.Context, query string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeUnimplemented).
		WithMsg("not_implemented: search_package")
}

// buildRoot synthesises the Root unified package: the queried package
// pinned to its version, plus the platform pin when requested. It returns the root's ref and the queried package's ref.
func (s *Service) buildRoot(interner *unified.Interner, req Request) (unified.Ref, unified.Ref, error) {
	var pkg unified.Package
	var constraint unified.VersionSet
	switch req.Ecosystem {
	case EcosystemOpam:
		pkg = unified.Package{Kind: unified.KindOpam, Name: req.Package}
		constraint = unified.SingletonOpam(version.OpamVersion(req.Version))
	case EcosystemDebian:
		pkg = unified.Package{Kind: unified.KindDebian, Name: req.Package}
		constraint = unified.SingletonDebian(version.ParseDebianVersion(req.Version))
	case EcosystemAlpine:
		pkg = unified.Package{Kind: unified.KindAlpine, Name: req.Package}
		constraint = unified.SingletonAlpine(version.ParseAlpineVersion(req.Version))
	case EcosystemCargo:
		ver, ok := version.ParseCargoVersion(req.Version)
		if !ok {
			return 0, 0, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid cargo version: " + req.Version)
		}
		pkg = unified.Package{Kind: unified.KindCargo, Name: req.Package, CargoBucket: ver.Bucket()}
		constraint = unified.SingletonCargo(ver)
	}
	pkgRef := interner.Intern(pkg)

	children := []unified.RootChild{{Child: pkgRef, Constraint: constraint}}
	if req.Platform != "" {
		platformRef := interner.Intern(unified.Package{Kind: unified.KindPlatform})
		children = append(children, unified.RootChild{
			Child:      platformRef,
			Constraint: unified.SingletonPlatform(version.PlatformVersion(req.Platform)),
		})
	}
	rootRef := interner.Intern(unified.Package{Kind: unified.KindRoot, Children: children})
	return rootRef, pkgRef, nil
}

// ecosystemName maps a real package kind back to its query-surface name.
func ecosystemName(kind unified.PackageKind) (string, bool) {
	switch kind {
	case unified.KindOpam:
		return EcosystemOpam, true
	case unified.KindDebian:
		return EcosystemDebian, true
	case unified.KindAlpine:
		return EcosystemAlpine, true
	case unified.KindCargo:
		return EcosystemCargo, true
	default:
		return "", false
	}
}

// sharedObjectMarker reports an Alpine `so:` transitive marker, hidden
// from presentation.
func sharedObjectMarker(pkg unified.Package) bool {
	return pkg.Kind == unified.KindAlpine && strings.HasPrefix(pkg.Name, "so:")
}
