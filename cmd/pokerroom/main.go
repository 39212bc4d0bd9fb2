package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the poker room server"`
	Bots     BotsCmd          `cmd:"" help:"Connect built-in bots to a running server"`
	Simulate SimulateCmd      `cmd:"" help:"Play built-in bots against each other in process"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokerroom"),
		kong.Description("Texas Hold'em tables for bots, matched by the game they ask for"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":    version,
			"strategies": "random,call,fold,maniac,tag",
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
