package main

import (
	"fmt"
	"handsoff/internal/di"
	"handsoff/internal/structures"
	"os"

	flag "github.com/spf13/pflag"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVarP(&flags.ConfigPath, "config", "c", "config/handsoff.yaml", "path to the YAML config file")
	flag.BoolVarP(&flags.DebugMode, "debug", "d", false, "also log to the console")
	flag.Parse()

	app, cleanup, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "handsoff: %s\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "handsoff: %s\n", err)
		os.Exit(1)
	}
}
