package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

type Bridge struct {
	Cmd
}

func (b Bridge) Get(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("bridge name required")
	}
	var item interface{}
	if err := b.GetJSON(c.String("url")+"/api/bridge/"+name, &item); err != nil {
		return err
	}
	return b.Out(item, c.String("format"))
}

func (b Bridge) Members(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("bridge name required")
	}
	var items []interface{}
	if err := b.GetJSON(c.String("url")+"/api/bridge/"+name+"/member", &items); err != nil {
		return err
	}
	return b.Out(items, c.String("format"))
}

func (b Bridge) Commands(app *cli.App) cli.Commands {
	return append(app.Commands, &cli.Command{
		Name:  "bridge",
		Usage: "bridge shadows and their membership",
		Subcommands: []*cli.Command{
			{Name: "get", Usage: "show one bridge shadow", Action: b.Get},
			{Name: "members", Aliases: []string{"ls"}, Usage: "list a bridge's members", Action: b.Members},
		},
	})
}
