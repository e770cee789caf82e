package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scoreview/internal/config"
	"scoreview/internal/console"
	"scoreview/internal/gameserver"
	"scoreview/internal/loader"
	"scoreview/internal/logging"
	"scoreview/internal/query"
	"scoreview/internal/storage"
	"scoreview/internal/view"
)

type renderRequest struct {
	Kind    string
	Service string
	MinTick string
	MaxTick string
	Current bool
	Offline bool
}

var renderCmd = &cobra.Command{
	Use:       "render <view>",
	Short:     "Render a view on the terminal",
	Long:      `Fetch a view from the gameserver, or read its latest stored snapshot with --offline, and print it. Views: scoreboard, status, history, missing-checks.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: view.Kinds,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		req := renderRequest{Kind: args[0]}
		req.Service, _ = cmd.Flags().GetString("service")
		req.MinTick, _ = cmd.Flags().GetString("from-tick")
		req.MaxTick, _ = cmd.Flags().GetString("max-tick")
		req.Current, _ = cmd.Flags().GetBool("current")
		req.Offline, _ = cmd.Flags().GetBool("offline")

		var page view.Page
		if req.Offline {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			page, err = renderStored(store, cfg, req)
			if err != nil {
				return err
			}
		} else {
			client := gameserver.New(cfg.Gameserver, gameserver.WithLogger(logging.Component(logger, "gameserver")))
			page, err = renderLive(cmd.Context(), client, cfg, req, logger)
			if err != nil {
				return err
			}
		}
		return console.New(os.Stdout).Fprint(os.Stdout, page)
	},
}

func init() {
	renderCmd.Flags().String("service", "", "service slug, required by history and missing-checks")
	renderCmd.Flags().String("from-tick", "", "first tick to show (defaults to the last 30 ticks)")
	renderCmd.Flags().String("max-tick", "", "last tick to show, inclusive")
	renderCmd.Flags().Bool("current", false, "load up to the latest tick, ignoring --max-tick")
	renderCmd.Flags().Bool("offline", false, "render the latest stored snapshot instead of fetching")
	rootCmd.AddCommand(renderCmd)
}

func newView(cfg config.Config, kind string) (view.View, string, error) {
	endpoint, ok := cfg.Endpoint(kind)
	if !ok {
		return nil, "", fmt.Errorf("unknown view %q", kind)
	}
	v, err := view.New(kind, viewOptions(cfg))
	if err != nil {
		return nil, "", err
	}
	return v, endpoint, nil
}

// renderLive fetches and renders a view. Selectable views go through the loader, so
// the same selection and tick validation applies as in the browser.
func renderLive(ctx context.Context, fetcher loader.Fetcher, cfg config.Config, req renderRequest, logger zerolog.Logger) (view.Page, error) {
	v, endpoint, err := newView(cfg, req.Kind)
	if err != nil {
		return view.Page{}, err
	}
	if !view.Selectable(req.Kind) {
		payload, err := fetcher.FetchJSON(ctx, endpoint, nil)
		if err != nil {
			return view.Page{}, err
		}
		if err := v.Render(payload); err != nil {
			return view.Page{}, err
		}
		return v.Page(), nil
	}

	form := query.Form{Fragment: req.Service, MinTick: req.MinTick, MaxTick: req.MaxTick}
	if form.MinTick == "" || form.MaxTick == "" {
		current, err := currentTick(ctx, fetcher, cfg)
		if err != nil {
			return view.Page{}, fmt.Errorf("resolve current tick: %w", err)
		}
		minTick, maxTick := query.DefaultBounds(current, req.Kind == view.KindMissingChecks)
		if form.MinTick == "" {
			form.MinTick = strconv.Itoa(minTick)
		}
		if form.MaxTick == "" {
			form.MaxTick = strconv.Itoa(maxTick)
		}
	}

	l := loader.New(fetcher, endpoint, v, loader.WithLogger(logging.Component(logger, "loader")))
	res := l.Load(ctx, form, req.Current)
	switch res.Outcome {
	case loader.Loaded:
		return v.Page(), nil
	case loader.NoSelection:
		return view.Page{}, errors.New("--service is required for this view")
	default:
		return view.Page{}, res.Err
	}
}

// currentTick reads the tick the scoreboard was last computed for.
func currentTick(ctx context.Context, fetcher loader.Fetcher, cfg config.Config) (int, error) {
	payload, err := fetcher.FetchJSON(ctx, cfg.Gameserver.Endpoints.Scoreboard, nil)
	if err != nil {
		return 0, err
	}
	board := view.NewScoreboardView("")
	if err := board.Render(payload); err != nil {
		return 0, err
	}
	page := board.Page()
	if page.Tick == nil {
		return 0, nil
	}
	return *page.Tick, nil
}

// renderStored renders the newest snapshot of a view. For selectable views the
// service narrows the lookup.
func renderStored(store storage.Store, cfg config.Config, req renderRequest) (view.Page, error) {
	v, _, err := newView(cfg, req.Kind)
	if err != nil {
		return view.Page{}, err
	}
	slug := ""
	if view.Selectable(req.Kind) {
		slug = query.SlugFromFragment(req.Service)
	}
	snap, err := store.Latest(req.Kind, slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return view.Page{}, fmt.Errorf("no stored %s snapshot", req.Kind)
		}
		return view.Page{}, err
	}
	if err := v.Render(snap.Payload); err != nil {
		return view.Page{}, err
	}
	return v.Page(), nil
}
