package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tamas-pataky/cultiva-node/config"
)

var configPath = flag.String("c", "", "configuration file (default $XDG_CONFIG_HOME/cultiva/cultiva.yml)")

func usage() {
	fmt.Println("Usage: cultiva [-c config] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("   run                     Run the node")
	fmt.Println("   command NAME [ARGS...]  Run a command on a running node")
	fmt.Println("   config                  Print an example configuration")
	fmt.Println()
}

func fmtFatalf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format, v...)
	os.Exit(1)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	args := flag.Args()[1:]
	switch flag.Arg(0) {
	default:
		usage()
		os.Exit(1)
	case "run":
		if err := run(*configPath); err != nil {
			fmtFatalf("error: %+v\n", err)
		}
	case "command":
		if len(args) == 0 {
			usage()
			os.Exit(1)
		}
		if err := command(os.Stdout, apiAddress(), args[0], args[1:]); err != nil {
			fmtFatalf("error: %s\n", err)
		}
	case "config":
		fmt.Print(config.ExampleYaml)
	}
}
