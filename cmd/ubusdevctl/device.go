package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

type Device struct {
	Cmd
}

func (d Device) url(c *cli.Context, name string) string {
	base := c.String("url") + "/api/device"
	if name == "" {
		return base
	}
	return base + "/" + name
}

func (d Device) List(c *cli.Context) error {
	var items []interface{}
	if err := d.GetJSON(d.url(c, ""), &items); err != nil {
		return err
	}
	return d.Out(items, c.String("format"))
}

func (d Device) Get(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("device name required")
	}
	var item interface{}
	if err := d.GetJSON(d.url(c, name), &item); err != nil {
		return err
	}
	return d.Out(item, c.String("format"))
}

func (d Device) Info(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("device name required")
	}
	var item interface{}
	if err := d.GetJSON(d.url(c, name)+"/info", &item); err != nil {
		return err
	}
	return d.Out(item, c.String("format"))
}

func (d Device) Stats(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("device name required")
	}
	var item interface{}
	if err := d.GetJSON(d.url(c, name)+"/stats", &item); err != nil {
		return err
	}
	return d.Out(item, c.String("format"))
}

func (d Device) Commands(app *cli.App) cli.Commands {
	return append(app.Commands, &cli.Command{
		Name:    "device",
		Aliases: []string{"dev"},
		Usage:   "handler-backed local devices",
		Subcommands: []*cli.Command{
			{Name: "list", Aliases: []string{"ls"}, Usage: "list device shadows", Action: d.List},
			{Name: "get", Usage: "show one device shadow", Action: d.Get},
			{Name: "info", Usage: "dump_info via the handler", Action: d.Info},
			{Name: "stats", Usage: "dump_stats via the handler", Action: d.Stats},
		},
	})
}
