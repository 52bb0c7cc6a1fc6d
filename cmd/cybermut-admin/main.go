package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

func main() {
	cli := CLI{out: os.Stdout}
	ctx := kong.Parse(&cli,
		kong.Name("cybermut-admin"),
		kong.Description("Cybermut/Monetico merchant key and MAC tooling"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	bindCLI(&cli)

	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bindCLI binds the CLI instance to all commands
func bindCLI(cli *CLI) {
	cli.ImportKey.CLI = cli
	cli.DeleteKey.CLI = cli
	cli.Sign.CLI = cli
	cli.Verify.CLI = cli
}
