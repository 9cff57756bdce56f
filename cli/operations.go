package cli

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trialbridge/toolhost/host"
	"github.com/trialbridge/toolhost/tools/clinical"
	"github.com/trialbridge/toolhost/tools/database"
	"github.com/trialbridge/toolhost/tools/fsops"
)

// NewOperationsCmd creates the "operations" subcommand.
func NewOperationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations <clinical|database|filesystem>",
		Short: "List the operations a tool family serves",
		Args:  cobra.ExactArgs(1),
		RunE:  runOperations,
	}
}

func runOperations(cmd *cobra.Command, args []string) error {
	family := strings.ToLower(strings.TrimSpace(args[0]))
	ops, err := familyOperations(family)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREQUIRED\tOPTIONAL\tDESCRIPTION")
	for _, op := range ops {
		required, optional := splitFields(op.Input)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", op.Name, joinOrDash(required), joinOrDash(optional), op.Description)
	}
	return w.Flush()
}

// familyOperations builds a family's operation set with placeholder wiring,
// enough to inspect names and schemas without reaching any dependency.
func familyOperations(family string) ([]host.Operation, error) {
	switch family {
	case "clinical":
		return clinical.New(clinical.Config{}).Operations(), nil
	case "database":
		db, err := sql.Open(defaultDBDriver, ":memory:")
		if err != nil {
			return nil, fmt.Errorf("opening placeholder database: %w", err)
		}
		defer func() {
			_ = db.Close()
		}()
		querier, err := database.New(db)
		if err != nil {
			return nil, err
		}
		return querier.Operations(), nil
	case "filesystem":
		return fsops.New(fsops.Config{}).Operations(), nil
	default:
		return nil, exitError(exitUsage, "unknown tool family %q; expected clinical, database, or filesystem", family)
	}
}

func splitFields(schema host.InputSchema) (required, optional []string) {
	for name, spec := range schema {
		if spec.Required {
			required = append(required, name)
		} else {
			optional = append(optional, name)
		}
	}
	slices.Sort(required)
	slices.Sort(optional)
	return required, optional
}

func joinOrDash(fields []string) string {
	if len(fields) == 0 {
		return "-"
	}
	return strings.Join(fields, ",")
}
