package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"
)

func bansCommand() cli.Command {
	return cli.Command{
		Name:  "bans",
		Usage: "inspect and edit the peer ban list",
		Subcommands: []cli.Command{
			{
				Name:   "list",
				Usage:  "list banned peers",
				Action: bansListAction,
			},
			{
				Name:      "remove",
				Usage:     "lift the ban of a peer",
				ArgsUsage: "<peer>",
				Action:    bansRemoveAction,
			},
		},
	}
}

func bansListAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openBans(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	bans, err := store.Bans().List()
	if err != nil {
		return err
	}

	now := time.Now()
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PEER\tSTATUS\tUNTIL\tKIND\tREASON")
	for _, b := range bans {
		status := "expired"
		if b.Active(now) {
			status = "active"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.Peer, status, b.Until.UTC().Format(time.RFC3339), b.Kind, b.Reason)
	}
	return w.Flush()
}

func bansRemoveAction(c *cli.Context) error {
	peer := c.Args().First()
	if peer == "" {
		return errors.New("no peer given")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openBans(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Bans().Unban(peer); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed ban of %s\n", peer)
	return nil
}
