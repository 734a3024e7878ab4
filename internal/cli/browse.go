package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/forevershiningA/memorial/pkg/store"
)

// browseCommand creates the browse command, an interactive picker over the
// design directory.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Pick a saved design interactively",
		Long: `Browse lists the designs in the --designs directory. Selecting one offers
to print its layout, write its scene, or summarize its profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context())
		},
	}
}

func (c *CLI) runBrowse(ctx context.Context) error {
	st, err := store.NewFileStore(c.designDir)
	if err != nil {
		return err
	}
	designs, err := listDesigns(ctx, st)
	if err != nil {
		return err
	}
	if len(designs) == 0 {
		printInfo("No designs in %s", c.designDir)
		return nil
	}

	p := tea.NewProgram(NewDesignListModel(designs), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("design picker: %w", err)
	}
	fm, ok := finalModel.(DesignListModel)
	if !ok || fm.Selected == nil {
		return nil
	}
	picked := fm.Selected

	ap := tea.NewProgram(NewActionListModel(picked.ID), tea.WithContext(ctx))
	actionModel, err := ap.Run()
	if err != nil {
		return fmt.Errorf("action picker: %w", err)
	}
	am, ok := actionModel.(ActionListModel)
	if !ok {
		return nil
	}
	switch am.Selected {
	case actionLayout:
		return c.runLayout(ctx, picked.ID)
	case actionScene:
		out := picked.ID + ".svg"
		if err := c.runRender(ctx, picked.ID, renderOpts{output: out}); err != nil {
			return err
		}
		printNextStep("Inspect placements", appName+" layout "+picked.ID)
	case actionProfile:
		res, err := c.render(ctx, picked.ID, (&renderOpts{}).pipelineOptions())
		if err != nil {
			return err
		}
		if res.Profile == nil {
			printWarning("Design %s has no shape to profile", picked.ID)
			return nil
		}
		printProfile(res.Profile)
	}
	return nil
}

// listDesigns loads a summary of every design in st. Designs that fail to
// load are listed with their error.
func listDesigns(ctx context.Context, st store.Store) ([]DesignSummary, error) {
	ids, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DesignSummary, 0, len(ids))
	for _, id := range ids {
		e, err := st.Load(ctx, id)
		if err != nil {
			out = append(out, DesignSummary{ID: id, Err: err})
			continue
		}
		out = append(out, summarize(e))
	}
	return out, nil
}
