package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mrz1836/taskgraph/internal/domain"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
)

// run dispatches on the flag combination present in flags, per §6's flat
// flag surface: deleteALL and delete are checked first (they are
// exclusive of everything else), then an id+file update, then a bare
// id get/rewind, then a bare file execute.
func run(ctx context.Context, flags *Flags, out io.Writer) error {
	a, err := loadAPI(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	a.SetLogLevel(flags.Log)

	switch {
	case flags.DeleteAll:
		return a.DeleteAll(ctx)

	case flags.Delete != "":
		return a.Delete(ctx, flags.Delete)

	case flags.ID != "" && flags.File != "":
		updates, loadErr := loadInjectionBundle(flags.File)
		if loadErr != nil {
			return loadErr
		}
		inst, updErr := a.Update(ctx, flags.ID, updates)
		if updErr != nil {
			return updErr
		}
		return printInstance(out, inst)

	case flags.ID != "":
		inst, getErr := a.Get(ctx, flags.ID, flags.Rewind)
		if getErr != nil {
			return getErr
		}
		return printInstance(out, inst)

	case flags.File != "":
		def, loadErr := a.LoadDefinition(ctx, flags.File)
		if loadErr != nil {
			return loadErr
		}
		inst := domain.NewInstance(def)
		if inst == nil {
			return tgerrors.Validation("definition %q produced no instance", flags.File)
		}
		out2, execErr := a.Execute(ctx, inst)
		if execErr != nil {
			return execErr
		}
		return printInstance(out, out2)

	default:
		return tgerrors.Validation("one of --file, --id, --delete, or --deleteALL is required")
	}
}

// printInstance writes inst as indented JSON, the one output shape the
// §6 surface needs — there is no separate --output flag in this spec's
// CLI, unlike the teacher's text/json split.
func printInstance(w io.Writer, inst *domain.WorkflowInstance) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(inst); err != nil {
		return fmt.Errorf("encode instance: %w", err)
	}
	return nil
}
