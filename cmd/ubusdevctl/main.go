// Command ubusdevctl is a read-only inspection CLI for a running
// ubusdevd, trimmed to this daemon's introspection surface only.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

type App struct {
	Url string
}

func (a App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"l"},
			Usage:   "ubusdevd introspection base URL",
			Value:   a.Url,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "output format: json, yaml",
			Value:   "json",
		},
	}
}

func (a App) New() *cli.App {
	return &cli.App{
		Usage: "ubusdevd inspection utility",
		Flags: a.Flags(),
	}
}

func main() {
	url := os.Getenv("UBUSDEV_URL")
	if url == "" {
		url = "http://127.0.0.1:8902"
	}

	app := App{Url: url}.New()
	app.Commands = Class{}.Commands(app)
	app.Commands = Device{}.Commands(app)
	app.Commands = Bridge{}.Commands(app)

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
