// Record commands: get, list, set, and delete over any registered kind.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/entity"
	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// assignment is one field=value argument.
type assignment struct {
	field string
	value string
}

// parseAssignments splits field=value arguments. Only the first '=' is
// significant, so values may contain '='.
func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, userErrorf("invalid assignment %q (want field=value)", arg)
		}
		out = append(out, assignment{field: field, value: value})
	}
	return out, nil
}

// withKind opens the backend, resolves the kind called name, and runs fn
// with it.
func (a *app) withKind(cmd *cobra.Command, name string, fn func(k entity.Kind) error) error {
	reg, closer, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	defer closer.Close()
	k, err := a.kind(reg, name)
	if err != nil {
		return err
	}
	return fn(k)
}

func (a *app) load(cmd *cobra.Command, k entity.Kind, id string) (record.Handle, error) {
	h, err := k.Load(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, userErrorf("%s %s: %w", k.Name, id, types.ErrNotFound)
	}
	return h, nil
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKind(cmd, args[0], func(k entity.Kind) error {
				h, err := a.load(cmd, k, args[1])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), a.flags.output, k.Render(h))
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List records ordered by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKind(cmd, args[0], func(k entity.Kind) error {
				hs, err := k.List(cmd.Context(), fields...)
				if err != nil {
					return err
				}
				out := make([]map[string]any, 0, len(hs))
				for _, h := range hs {
					out = append(out, k.Render(h))
				}
				return printResult(cmd.OutOrStdout(), a.flags.output, out)
			})
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "restrict output to these fields")
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "set <kind> field=value...",
		Short: "Create a record, or update one with --id",
		Example: `  pantry set users name=Ada email=ada@example.com password=s3cret
  pantry set products --id 3 price=12.50 stock=4`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assigns, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return a.withKind(cmd, args[0], func(k entity.Kind) error {
				var h record.Handle
				if id == "" {
					h, err = k.New()
				} else {
					h, err = a.load(cmd, k, id)
				}
				if err != nil {
					return err
				}
				for _, as := range assigns {
					if as.field == k.Schema.PrimaryKey {
						return userErrorf("%s: primary key is assigned by the backend", as.field)
					}
					if err := k.Assign(h, as.field, as.value); err != nil {
						return err
					}
				}
				if id == "" {
					_, err = h.Insert(cmd.Context())
				} else {
					_, err = h.Update(cmd.Context())
				}
				if err != nil {
					return fmt.Errorf("save %s: %w", k.Name, err)
				}
				return printResult(cmd.OutOrStdout(), a.flags.output, k.Render(h))
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "update the record with this id instead of creating one")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKind(cmd, args[0], func(k entity.Kind) error {
				h, err := a.load(cmd, k, args[1])
				if err != nil {
					return err
				}
				n, err := h.Delete(cmd.Context())
				if err != nil {
					return fmt.Errorf("delete %s: %w", k.Name, err)
				}
				return printResult(cmd.OutOrStdout(), a.flags.output, map[string]any{
					"kind":    k.Name,
					"id":      args[1],
					"deleted": n,
				})
			})
		},
	}
}
