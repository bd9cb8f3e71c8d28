package main

import "github.com/urfave/cli/v2"

type Class struct {
	Cmd
}

func (cl Class) List(c *cli.Context) error {
	var items []interface{}
	if err := cl.GetJSON(c.String("url")+"/api/class", &items); err != nil {
		return err
	}
	return cl.Out(items, c.String("format"))
}

func (cl Class) Commands(app *cli.App) cli.Commands {
	return append(app.Commands, &cli.Command{
		Name:  "class",
		Usage: "registered device classes",
		Subcommands: []*cli.Command{
			{Name: "list", Aliases: []string{"ls"}, Usage: "list classes and subscription status", Action: cl.List},
		},
	})
}
