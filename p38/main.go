package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/kmazur/pit38/cmd"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	// Shell completion; a no-op outside a completion request.
	completer := &complete.Command{
		Sub: map[string]*complete.Command{
			"report": {Flags: map[string]complete.Predictor{
				"f": predict.Files("*.csv"), "o": predict.Files("*.md"),
				"year": predict.Nothing, "carried": predict.Nothing,
			}},
			"rate":   {Flags: map[string]complete.Predictor{"c": predict.Nothing, "d": predict.Nothing}},
			"price":  {Flags: map[string]complete.Predictor{"s": predict.Nothing, "t": predict.Nothing}},
			"rules":  {},
			"assist": {Flags: map[string]complete.Predictor{"f": predict.Files("*.md")}},
		},
		Flags: map[string]complete.Predictor{"rules": predict.Files("*.json")},
	}
	completer.Complete("p38")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
