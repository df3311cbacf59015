package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/vendsync/internal/catalog"
	"github.com/mamadbah2/vendsync/internal/domain/models"
	catalogclient "github.com/mamadbah2/vendsync/pkg/clients/catalog"
)

// NewNearestCommand creates the nearest command.
func NewNearestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "nearest",
		Short: "Resolve the position once and print machines by distance",
		Long: `Resolve the client position, fetch the machine catalog and print the
machines ordered by distance, closest first.

Example:
  vendsync nearest
  vendsync nearest --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runNearest(ctx, rootOpts, cmd.OutOrStdout())
		},
	}
}

func runNearest(parent context.Context, opts *RootOptions, out io.Writer) error {
	cfg, baseLogger, err := setup(opts, "warn")
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	hub := catalog.NewHub(baseLogger.Named("catalog.hub"))
	go func() { _ = hub.Run(ctx) }()

	session := models.Session{Token: cfg.Session.Token, UserID: cfg.Session.UserID}
	discovery := catalog.NewService(catalogclient.NewClient(cfg.Catalog, session), hub, nil, cfg.Catalog.SearchDebounce, baseLogger.Named("svc.catalog"))
	defer discovery.Close()

	res := newResolver(cfg.Position, baseLogger.Named("position")).Resolve(ctx)
	if err := hub.SetPosition(ctx, res); err != nil {
		return err
	}
	if err := discovery.LoadMachines(ctx); err != nil {
		return err
	}

	view, err := discovery.Nearest(ctx)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return writeNearestText(out, view)
}

func writeNearestText(out io.Writer, view catalog.NearestView) error {
	switch {
	case view.Position.Resolved():
		c := view.Position.Coordinate
		fmt.Fprintf(out, "Position: %.5f, %.5f (%s)\n", c.Lat, c.Lon, c.Source)
	default:
		fmt.Fprintf(out, "Position: unavailable. %s\n", view.Position.Reason)
	}

	if len(view.Machines) == 0 {
		_, err := fmt.Fprintln(out, "No machines found.")
		return err
	}

	for i, m := range view.Machines {
		marker := " "
		if view.Nearest != nil && view.Nearest.ID == m.ID {
			marker = "*"
		}
		distance := "distance unknown"
		if m.DistanceMeters != nil {
			distance = formatDistance(*m.DistanceMeters)
		}
		if _, err := fmt.Fprintf(out, "%s %d. %s (%s) - %s\n", marker, i+1, m.Name, m.Location, distance); err != nil {
			return err
		}
	}
	return nil
}

func formatDistance(meters int64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}
