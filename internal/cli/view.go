package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/phaseflow/pkg/layout"
	"github.com/matzehuels/phaseflow/pkg/session"
	"github.com/matzehuels/phaseflow/pkg/state"
)

type viewOpts struct {
	session string
	save    bool
	policy  string
	url     string
	layout  layoutFlags
}

func (c *CLI) viewCommand() *cobra.Command {
	var opts viewOpts

	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Explore a process flow interactively in the terminal",
		Long: `Open a process flow in an interactive terminal viewer.

Select nodes with the arrow keys and press enter to expand or collapse their
code. Press e to edit the flow JSON (ctrl+s submits) or u to upload a source
file to the summarization service. A failed submission keeps the current
diagram and shows the error below it.

With --session the flow and expand state are loaded from the session store
and written back on every change.`,
		Example: `  phaseflow view flow.json
  phaseflow view --save flow.json
  phaseflow view --session 1b4e28ba-2fa1-41d2-883f-0016d3cca427`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return c.runView(cmd, input, opts)
		},
	}

	cmd.Flags().StringVar(&opts.session, "session", "", "resume a stored session by id")
	cmd.Flags().BoolVar(&opts.save, "save", false, "store the flow in a new session")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "expand state on new flows: reset or preserve (default from config)")
	cmd.Flags().StringVar(&opts.url, "url", "", "summarization endpoint (default from config)")
	opts.layout.register(cmd)
	return cmd
}

func (c *CLI) runView(cmd *cobra.Command, input string, opts viewOpts) error {
	ctx := cmd.Context()
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if opts.policy == "" {
		opts.policy = cfg.State.Policy
	}
	policy, err := state.ParsePolicy(opts.policy)
	if err != nil {
		return err
	}
	popts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	opts.layout.apply(cmd, &popts.Layout)

	ctrl := state.NewController(
		state.WithPolicy(policy),
		state.WithLayout(layout.WithOptions(popts.Layout)),
		state.WithLogger(c.Logger),
	)

	if input != "" {
		raw, err := c.readInput(input)
		if err != nil {
			return err
		}
		// A bad file still opens the viewer so it can be fixed in the editor.
		if err := ctrl.SubmitJSON(raw); err != nil {
			c.Logger.Warn("flow rejected", "file", input, "err", err)
		}
	}

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return err
	}
	defer runner.Close()
	client, err := c.newSummaryClient(opts.url, runner.Cache)
	if err != nil {
		return err
	}

	model := NewViewModel(ctx, ctrl, client)

	var (
		store session.Store
		sess  *session.Session
	)
	if opts.session != "" || opts.save {
		store, err = c.newSessionStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		if sess, err = c.attachSession(ctx, store, ctrl, opts.session, cfg.Sessions.TTL); err != nil {
			return err
		}
		model.persist = func([]string) {
			if err := saveSession(ctx, store, sess, ctrl, cfg.Sessions.TTL); err != nil {
				c.Logger.Warn("session not saved", "id", sess.ID, "err", err)
			}
		}
	}

	c.Logger.Debug("viewer starting", "policy", policy, "nodes", len(ctrl.Graph().Nodes))
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}

	if sess != nil {
		if err := saveSession(ctx, store, sess, ctrl, cfg.Sessions.TTL); err != nil {
			return err
		}
		printSuccess("Session saved")
		printDetail("%s", sess.ID)
		printNextStep("Resume", appName+" view --session "+sess.ID)
	}
	return nil
}

// attachSession loads session id into ctrl, or creates a new session from
// the controller's current flow when id is empty.
func (c *CLI) attachSession(ctx context.Context, store session.Store, ctrl *state.Controller, id string, ttl time.Duration) (*session.Session, error) {
	if id == "" {
		sess, err := session.New(ctrl.Flow(), ttl)
		if err != nil {
			return nil, err
		}
		return sess, store.Set(ctx, sess)
	}

	sess, err := session.Load(ctx, store, id)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(sess.Flow)
	if err != nil {
		return nil, err
	}
	if err := ctrl.SubmitJSON(string(data)); err != nil {
		return nil, err
	}
	ctrl.SetInput(string(data))
	ctrl.Dispatch(state.Restore{NodeIDs: sess.Expanded})
	c.Logger.Debug("session loaded", "id", sess.ID, "expanded", len(sess.Expanded))
	return sess, nil
}

func saveSession(ctx context.Context, store session.Store, sess *session.Session, ctrl *state.Controller, ttl time.Duration) error {
	sess.Flow = ctrl.Flow()
	sess.SetExpanded(ctrl.Expanded(), ttl)
	return store.Set(ctx, sess)
}
