package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the authoritative game server"`
	Client  ClientCmd        `cmd:"" help:"Connect as an interactive participant"`
	Bot     BotCmd           `cmd:"" help:"Connect a computer player as a remote participant"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cambio"),
		kong.Description("Authoritative multiplayer Cambio card game server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
