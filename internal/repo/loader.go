package repo

import (
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"crossdep/internal/index"
	"crossdep/internal/opam"
	"crossdep/internal/version"
)

// Indices is the materialised output of one snapshot: every sub-index a
// query needs, built before resolution starts.
type Indices struct {
	Opam   *opam.Store
	Debian *index.Debian
	Alpine *index.Alpine
	Cargo  *index.Cargo
}

// Load reads and materialises a snapshot file.
func Load(path string, debug bool) (*Indices, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("repository snapshot not found: " + path).
			WithCause(err)
	}
	var snapshot Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid repository snapshot: " + path).
			WithCause(err)
	}
	return Build(&snapshot, debug)
}

// Build materialises an already-decoded snapshot into indices.
func Build(snapshot *Snapshot, debug bool) (*Indices, error) {
	store, err := buildOpam(snapshot.Opam)
	if err != nil {
		return nil, err
	}
	debian, err := buildDebian(snapshot.Debian, debug)
	if err != nil {
		return nil, err
	}
	alpine, err := buildAlpine(snapshot.Alpine, debug)
	if err != nil {
		return nil, err
	}
	cargo, err := buildCargo(snapshot.Cargo, debug)
	if err != nil {
		return nil, err
	}
	return &Indices{Opam: store, Debian: debian, Alpine: alpine, Cargo: cargo}, nil
}

func buildOpam(section OpamSection) (*opam.Store, error) {
	store := opam.NewStore()
	for name, versions := range section.Packages {
		for ver, entry := range versions {
			var depends []opam.PackageFormula
			for _, raw := range entry.Depends {
				f, err := opam.ParseFormula(raw)
				if err != nil {
					return nil, indexLoadError("opam", name, ver, err)
				}
				depends = append(depends, f)
			}
			var depexts []opam.DepextDecl
			for _, d := range entry.Depexts {
				expr := opam.VersionExpr(opam.VersionRange{Range: version.Full[version.OpamVersion]()})
				if d.Condition != "" {
					parsed, err := opam.ParseVersionExpr(d.Condition)
					if err != nil {
						return nil, indexLoadError("opam", name, ver, err)
					}
					expr = parsed
				}
				depexts = append(depexts, opam.DepextDecl{Names: d.Names, Expr: expr})
			}
			store.Add(name, version.OpamVersion(ver), opam.Metadata{
				Depends:         depends,
				Depexts:         depexts,
				ConflictClasses: entry.ConflictClasses,
			})
		}
	}
	return store, nil
}

func buildDebian(section DebianSection, debug bool) (*index.Debian, error) {
	packages := make(map[string][]index.DebianPackageVersion)
	for name, versions := range section.Packages {
		for ver, entry := range versions {
			deps, err := parseDebianDepends(entry.Depends)
			if err != nil {
				return nil, indexLoadError("debian", name, ver, err)
			}
			preDeps, err := parseDebianDepends(entry.PreDepends)
			if err != nil {
				return nil, indexLoadError("debian", name, ver, err)
			}
			packages[name] = append(packages[name], index.DebianPackageVersion{
				Version:  version.ParseDebianVersion(ver),
				Depends:  append(deps, preDeps...),
				Provides: splitProvides(entry.Provides),
			})
		}
	}
	return index.NewDebian(packages, debug), nil
}

func buildAlpine(section AlpineSection, debug bool) (*index.Alpine, error) {
	packages := make(map[string][]index.AlpinePackageVersion)
	for name, versions := range section.Packages {
		for ver, entry := range versions {
			deps := make([]index.AlpineDependency, 0, len(entry.Depends))
			for _, raw := range entry.Depends {
				dep, ok := parseAlpineDependency(raw)
				if !ok {
					continue // conflict markers (`!name`) and malformed entries are skipped
				}
				deps = append(deps, dep)
			}
			packages[name] = append(packages[name], index.AlpinePackageVersion{
				Version:  version.ParseAlpineVersion(ver),
				Depends:  deps,
				Provides: entry.Provides,
			})
		}
	}
	return index.NewAlpine(packages, debug), nil
}

func buildCargo(section CargoSection, debug bool) (*index.Cargo, error) {
	crates := make(map[string][]index.CargoCrateVersion)
	for name, rows := range section.Crates {
		for _, row := range rows {
			if row.Yanked {
				continue
			}
			ver, ok := version.ParseCargoVersion(row.Version)
			if !ok {
				return nil, indexLoadError("cargo", name, row.Version,
					errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg("invalid semver"))
			}
			deps := make([]index.CargoDependency, 0, len(row.Deps))
			for _, d := range row.Deps {
				deps = append(deps, index.CargoDependency{
					Name:     d.Name,
					Req:      d.Req,
					Optional: d.Optional,
					Kind:     d.Kind,
				})
			}
			crates[name] = append(crates[name], index.CargoCrateVersion{Version: ver, Deps: deps})
		}
	}
	return index.NewCargo(crates, debug), nil
}

func indexLoadError(ecosystem, name, ver string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("failed to load " + ecosystem + " entry " + name + "@" + ver).
		WithCause(cause)
}

// parseDebianDepends parses a `Depends:` field: comma-separated groups of
// `|`-separated alternatives, each `name [(op version)] [arch-qualifier]`
// with op in `<< <= = >= >>`.
func parseDebianDepends(field string) ([]index.DebianDependency, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}
	var groups []index.DebianDependency
	for _, rawGroup := range strings.Split(field, ",") {
		rawGroup = strings.TrimSpace(rawGroup)
		if rawGroup == "" {
			continue
		}
		var group index.DebianDependency
		for _, rawAlt := range strings.Split(rawGroup, "|") {
			alt, err := parseDebianAlternative(strings.TrimSpace(rawAlt))
			if err != nil {
				return nil, err
			}
			group.Alternatives = append(group.Alternatives, alt)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func parseDebianAlternative(raw string) (index.DebianAlternative, error) {
	name := raw
	rng := version.Full[version.DebianVersion]()
	if i := strings.IndexByte(raw, '('); i >= 0 {
		j := strings.IndexByte(raw, ')')
		if j < i {
			return index.DebianAlternative{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("unbalanced version constraint in " + raw)
		}
		name = strings.TrimSpace(raw[:i])
		constraint := strings.TrimSpace(raw[i+1 : j])
		parsed, err := parseDebianConstraint(constraint)
		if err != nil {
			return index.DebianAlternative{}, err
		}
		rng = parsed
	}
	// drop architecture qualifiers ([amd64], :any)
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	return index.DebianAlternative{Name: name, Range: rng}, nil
}

func parseDebianConstraint(constraint string) (version.DebianRange, error) {
	fields := strings.Fields(constraint)
	if len(fields) != 2 {
		return version.DebianRange{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid debian version constraint: " + constraint)
	}
	op, raw := fields[0], fields[1]
	v := version.ParseDebianVersion(raw)
	switch op {
	case "<<":
		return version.LessThan(v), nil
	case "<=":
		return version.AtMost(v), nil
	case "=":
		return version.Singleton(v), nil
	case ">=":
		return version.AtLeast(v), nil
	case ">>":
		return version.GreaterThan(v), nil
	default:
		return version.DebianRange{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown debian constraint operator: " + op)
	}
}

// parseAlpineDependency parses one `D:` token, `name[op version]` with op
// in `= < > <= >= ~`. A leading `!` marks a conflict, which this loader
// does not model.
func parseAlpineDependency(raw string) (index.AlpineDependency, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "!") {
		return index.AlpineDependency{}, false
	}
	for _, op := range []string{">=", "<=", "=", "<", ">", "~"} {
		if i := strings.Index(raw, op); i > 0 {
			name := raw[:i]
			ver := version.ParseAlpineVersion(raw[i+len(op):])
			var rng version.AlpineRange
			switch op {
			case ">=":
				rng = version.AtLeast(ver)
			case "<=":
				rng = version.AtMost(ver)
			case "=", "~":
				rng = version.Singleton(ver)
			case "<":
				rng = version.LessThan(ver)
			case ">":
				rng = version.GreaterThan(ver)
			}
			return index.AlpineDependency{Name: name, Range: rng}, true
		}
	}
	return index.AlpineDependency{Name: raw, Range: version.Full[version.AlpineVersion]()}, true
}

func splitProvides(field string) []string {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		// versioned provides (`foo (= 1.0)`) keep the name only
		if i := strings.IndexByte(p, '('); i >= 0 {
			p = strings.TrimSpace(p[:i])
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
