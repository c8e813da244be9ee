package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"crossdep/internal/app"
	"crossdep/internal/compat"
	"crossdep/internal/repo"
)

type resolveOptions struct {
	Snapshot    string
	Ecosystem   string
	Package     string
	Version     string
	Platform    string
	SchemaFiles []string
	VerifySAT   bool
	Debug       bool
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a package's full dependency closure",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), opts)
		},
	}
	addQueryFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.VerifySAT, "verify-sat", false, "Cross-check the solution with an independent SAT encoding")
	_ = viper.BindPFlag("verify_sat", cmd.Flags().Lookup("verify-sat"))
	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *resolveOptions) {
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "Repository snapshot file")
	cmd.Flags().StringVar(&opts.Ecosystem, "ecosystem", "opam", "Ecosystem (opam|debian|alpine|cargo)")
	cmd.Flags().StringVar(&opts.Package, "package", "", "Package name, or an abstract key when schemas are given")
	cmd.Flags().StringVar(&opts.Version, "package-version", "", "Package version")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "Host platform (alpine|debian)")
	cmd.Flags().StringSliceVar(&opts.SchemaFiles, "schema", nil, "Schema mapping file(s) for abstract key resolution (layered, last wins)")
	cmd.Flags().BoolVar(&opts.Debug, "trace", false, "Trace provider callbacks")
	_ = viper.BindPFlag("snapshot", cmd.Flags().Lookup("snapshot"))
	_ = viper.BindPFlag("ecosystem", cmd.Flags().Lookup("ecosystem"))
	_ = viper.BindPFlag("platform", cmd.Flags().Lookup("platform"))
}

func runResolve(ctx context.Context, opts resolveOptions) error {
	service, req, err := buildService(opts)
	if err != nil {
		return err
	}
	response, err := service.Resolve(ctx, req)
	if err != nil {
		return err
	}
	rendered, err := yaml.Marshal(response)
	if err != nil {
		return err
	}
	fmt.Print(string(rendered))
	return nil
}

func buildService(opts resolveOptions) (*app.Service, app.Request, error) {
	indices, err := repo.Load(opts.Snapshot, opts.Debug)
	if err != nil {
		return nil, app.Request{}, err
	}
	service := app.NewService(indices)
	service.Debug = opts.Debug
	service.VerifySAT = opts.VerifySAT

	req := app.Request{
		Ecosystem: opts.Ecosystem,
		Package:   opts.Package,
		Version:   opts.Version,
		Platform:  opts.Platform,
	}
	if len(opts.SchemaFiles) > 0 {
		resolver := compat.NewResolver()
		for _, path := range opts.SchemaFiles {
			if err := resolver.LoadSchema(path); err != nil {
				return nil, app.Request{}, err
			}
		}
		if dep, ok := resolver.Resolve(opts.Package); ok {
			req.Ecosystem = dep.Ecosystem
			req.Package = dep.Package
		}
	}
	return service, req, nil
}
