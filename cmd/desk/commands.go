package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/api"
	"github.com/rxtech-lab/trading-desk/internal/config"
	"github.com/rxtech-lab/trading-desk/internal/desk"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// withApp builds the app around action and releases it afterwards.
func withApp(action func(ctx context.Context, cmd *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		return action(ctx, cmd, a)
	}
}

func requireKey(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one instrument key such as cg:bitcoin or fx:EURUSD")
	}

	return strings.TrimSpace(cmd.Args().First()), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the refresh schedule and the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; overrides the config file",
			},
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			addr := a.cfg.Server.Addr
			if cmd.IsSet("addr") {
				addr = cmd.String("addr")
			}

			sched, err := a.newScheduler()
			if err != nil {
				return err
			}

			server := api.NewServer(addr, a.desk, a.log)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return sched.Run(gctx)
			})
			g.Go(server.Start)
			g.Go(func() error {
				<-gctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				a.log.Info("Shutting down")

				return server.Shutdown(shutdownCtx)
			})

			return g.Wait()
		}),
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search crypto assets by name or symbol, or resolve a currency pair",
		ArgsUsage: "<query>",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			query := strings.Join(cmd.Args().Slice(), " ")

			candidates, err := a.desk.Search(ctx, query)
			if err != nil {
				return err
			}

			if len(candidates) == 0 {
				fmt.Fprintln(cmd.Root().Writer, HelpStyle.Render("No matches."))
				return nil
			}

			fmt.Fprintln(cmd.Root().Writer, RenderCandidates(candidates))

			return nil
		}),
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Track an instrument and make it active",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbol", Usage: "Display symbol; derived from the key when empty"},
			&cli.StringFlag{Name: "name", Usage: "Display name; derived from the key when empty"},
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			key, err := requireKey(cmd)
			if err != nil {
				return err
			}

			req, err := desk.NewAddRequest(key, cmd.String("symbol"), cmd.String("name"))
			if err != nil {
				return err
			}

			view, created, err := a.desk.Add(ctx, req)
			if err != nil {
				return err
			}

			verb := "Already tracking"
			if created {
				verb = "Added"
			}

			fmt.Fprintf(cmd.Root().Writer, "%s %s\n", verb, TitleStyle.Render(view.Instrument.Key))
			fmt.Fprintln(cmd.Root().Writer, RenderInstruments([]desk.InstrumentView{view}))

			return nil
		}),
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Stop tracking an instrument",
		ArgsUsage: "<key>",
		Action: withApp(func(_ context.Context, cmd *cli.Command, a *app) error {
			key, err := requireKey(cmd)
			if err != nil {
				return err
			}

			if err := a.desk.Remove(key); err != nil {
				return err
			}

			fmt.Fprintf(cmd.Root().Writer, "Removed %s\n", key)

			return nil
		}),
	}
}

func selectCommand() *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "Make an instrument active and refresh its history",
		ArgsUsage: "<key>",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			key, err := requireKey(cmd)
			if err != nil {
				return err
			}

			result, err := a.desk.Select(ctx, key)
			if err != nil {
				return err
			}

			if result.Err != nil {
				a.log.Warn("Refresh failed", zap.String("instrument", key), zap.Error(result.Err))
			}

			view, err := a.desk.Instrument(key)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.Root().Writer, RenderDetail(view))

			return nil
		}),
	}
}

func orderCommand() *cli.Command {
	return &cli.Command{
		Name:      "order",
		Usage:     "Place a market or limit order",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "side", Usage: "buy or sell", Required: true},
			&cli.StringFlag{Name: "kind", Usage: "market or limit", Value: string(types.OrderKindMarket)},
			&cli.FloatFlag{Name: "qty", Aliases: []string{"q"}, Usage: "Quantity", Required: true},
			&cli.FloatFlag{Name: "limit", Usage: "Limit price, required for limit orders"},
			&cli.FloatFlag{Name: "fee", Usage: "Fee rate as a fraction of the notional, e.g. 0.001"},
			&cli.StringFlag{Name: "player", Usage: "Player label; defaults to the saved player"},
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			key, err := requireKey(cmd)
			if err != nil {
				return err
			}

			// Orders fill against the current price, so make sure there is one.
			if _, err := a.desk.Instrument(key); err != nil {
				return err
			}

			a.desk.RefreshAll(ctx)

			limit := optional.None[float64]()
			if cmd.IsSet("limit") {
				limit = optional.Some(cmd.Float("limit"))
			}

			order, err := a.desk.PlaceOrder(key, types.OrderRequest{
				Kind:       types.OrderKind(strings.ToLower(cmd.String("kind"))),
				Side:       types.Side(strings.ToLower(cmd.String("side"))),
				Quantity:   cmd.Float("qty"),
				LimitPrice: limit,
				FeeRate:    cmd.Float("fee"),
				Player:     cmd.String("player"),
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.Root().Writer, RenderOrders([]types.Order{order}))

			return nil
		}),
	}
}

func closeCommand() *cli.Command {
	return &cli.Command{
		Name:      "close",
		Usage:     "Sell the whole position of an instrument at market",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "fee", Usage: "Fee rate as a fraction of the notional"},
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			key, err := requireKey(cmd)
			if err != nil {
				return err
			}

			if _, err := a.desk.Instrument(key); err != nil {
				return err
			}

			a.desk.RefreshAll(ctx)

			order, err := a.desk.ClosePosition(key, cmd.Float("fee"))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.Root().Writer, RenderOrders([]types.Order{order}))

			return nil
		}),
	}
}

func portfolioCommand() *cli.Command {
	return &cli.Command{
		Name:  "portfolio",
		Usage: "Refresh prices and show holdings marked to market",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			report := a.desk.RefreshAll(ctx)
			if err := report.Err(); err != nil {
				a.log.Warn("Some prices could not be refreshed", zap.Strings("failed", report.Failed()))
			}

			fmt.Fprintln(cmd.Root().Writer, RenderPortfolio(a.desk.Portfolio(), a.desk.Preferences().Base))

			return nil
		}),
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Refresh every price and list the instruments",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			report := a.desk.RefreshAll(ctx)
			a.desk.RefreshActive(ctx, false)

			fmt.Fprintln(cmd.Root().Writer, RenderInstruments(a.desk.Instruments()))
			fmt.Fprintln(cmd.Root().Writer, RenderDigest(report.Status(), report.Digest()))

			return nil
		}),
	}
}

func prefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Show or change the theme, base currency and player",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "theme", Usage: "dark or light"},
			&cli.StringFlag{Name: "base", Usage: "Base currency code such as EUR or USD"},
			&cli.StringFlag{Name: "player", Usage: "Player label"},
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			if cmd.IsSet("theme") {
				if err := a.desk.SetTheme(types.Theme(cmd.String("theme"))); err != nil {
					return err
				}
			}

			if cmd.IsSet("player") {
				if err := a.desk.SetPlayer(cmd.String("player")); err != nil {
					return err
				}
			}

			if cmd.IsSet("base") {
				report, err := a.desk.SetBase(ctx, cmd.String("base"))
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.Root().Writer, RenderDigest(report.Status(), report.Digest()))
			}

			fmt.Fprintln(cmd.Root().Writer, RenderPreferences(a.desk.Preferences(), a.desk.Active()))

			return nil
		}),
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the config file",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := config.Defaults()

			schema, err := cfg.GenerateSchemaJSON()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.Root().Writer, schema)

			return nil
		},
	}
}
