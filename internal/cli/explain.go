package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
)

// explain runs the same query as resolve but treats "no solution" as the
// expected outcome: the derivation trace prints to stdout and the command
// exits cleanly, so the trace is easy to pipe around.
func newExplainCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain why a query resolves, or why it cannot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplain(cmd.Context(), opts)
		},
	}
	addQueryFlags(cmd, &opts)
	return cmd
}

func runExplain(ctx context.Context, opts resolveOptions) error {
	service, req, err := buildService(opts)
	if err != nil {
		return err
	}
	response, err := service.Resolve(ctx, req)
	if err != nil {
		if errbuilder.CodeOf(err) == errbuilder.CodeFailedPrecondition {
			fmt.Println(errorMessage(err))
			return nil
		}
		return err
	}
	fmt.Printf("%s %s resolves with %d dependencies\n", req.Package, req.Version, len(response.Dependencies))
	for _, dep := range response.Dependencies {
		fmt.Printf("\t(%s, %s, %s)\n", dep.Ecosystem, dep.Name, dep.Version)
	}
	return nil
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
