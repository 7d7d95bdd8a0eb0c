// Command txverify runs the non-contextual transaction checks over JSON
// transaction files and manages the peer ban list.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/bitfsorg/libtxverify-go/config"
	"github.com/bitfsorg/libtxverify-go/logging"
	"github.com/bitfsorg/libtxverify-go/peers"
	"github.com/bitfsorg/libtxverify-go/relay"
	"github.com/bitfsorg/libtxverify-go/types"
)

// Version is set at build time.
var Version = "dev"

const banDBFile = "bans.db"

var errNotAccepted = errors.New("some transactions were not accepted")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "txverify:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "txverify"
	app.Version = Version
	app.Usage = "verify transactions and manage banned peers"
	app.UsageText = "txverify [global options] command [command options] [args]"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "configuration file (default: ~/.txverify/config.yaml)",
		},
	}
	app.Commands = []cli.Command{
		verifyCommand(),
		bansCommand(),
	}
	return app
}

// loadConfig reads the file named by --config. Without the flag a missing
// default file falls back to the built-in configuration.
func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.GlobalString("config")
	explicit := path != ""
	if !explicit {
		path = config.ConfigPath(config.DefaultDataDir())
	}

	cfg, err := config.LoadConfig(path)
	if errors.Is(err, config.ErrConfigNotFound) && !explicit {
		cfg, err = config.DefaultConfig(), nil
	}
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func relayConfig(cfg config.Config) relay.Config {
	return relay.Config{
		Workers:       cfg.Workers,
		MaxBlockBytes: cfg.MaxBlockBytes,
		BanDuration:   cfg.BanDuration,
		MaxDeferred:   cfg.MaxDeferred,
	}
}

func openBans(cfg config.Config) (*peers.BoltStore, error) {
	return peers.OpenBoltStore(filepath.Join(cfg.DataDir, banDBFile))
}

func verifyCommand() cli.Command {
	return cli.Command{
		Name:      "verify",
		Usage:     "verify transaction files",
		ArgsUsage: "tx.json [tx.json...]",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "peer, p",
				Usage: "peer the transactions were received from; empty for local submissions",
			},
		},
		Action: verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
	if len(c.Args()) == 0 {
		return errors.New("no transaction files given")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	peer := c.String("peer")
	subs := make([]relay.Submission, 0, len(c.Args()))
	for _, path := range c.Args() {
		tx, err := readTransaction(path)
		if err != nil {
			return err
		}
		subs = append(subs, relay.Submission{Peer: peer, Tx: types.NewTransactionView(tx)})
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openBans(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := relay.New(relayConfig(cfg),
		relay.WithBanList(store.Bans()),
		relay.WithLogger(logger.Named("relay")),
	)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	allAccepted := true
	for _, res := range p.Process(ctx, subs) {
		fmt.Fprintln(c.App.Writer, formatResult(res))
		if res.Outcome != relay.Accepted {
			allAccepted = false
		}
	}
	if !allAccepted {
		return errNotAccepted
	}
	return nil
}

// formatResult renders one line: hash, outcome and, on failure, the error
// with its category.
func formatResult(res relay.Result) string {
	line := fmt.Sprintf("%s %s", types.HashString(res.Hash), res.Outcome)
	if res.Err != nil {
		line += fmt.Sprintf(" %s: %v", res.Category, res.Err)
	}
	return line
}
