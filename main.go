// Command darktrack reconstructs 3D particle positions from lensless
// hologram stacks and links them into 4D trajectories.
//
// Subcommands:
//
//	darktrack run     -stack holograms.dtrk [-config tuning.json] [-tsv out.tsv] [-db results.db]
//	darktrack migrate [-db results.db] [up|down|version]
//	darktrack serve   [-db results.db] [-listen :8080]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kamil-janusz-kalinowski/DarkTrack/internal/version"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: darktrack <command> [flags]

commands:
  run       reconstruct and track a hologram stack
  migrate   manage the results database schema
  serve     serve stored runs over HTTP
  version   print build information

Run "darktrack <command> -h" for the flags of each command.
`)
}

func main() {
	log.SetFlags(log.LstdFlags)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "run":
		err = cmdRun(args[1:])
	case "migrate":
		err = cmdMigrate(args[1:])
	case "serve":
		err = cmdServe(args[1:])
	case "version":
		fmt.Println(version.String())
	default:
		fmt.Fprintf(os.Stderr, "darktrack: unknown command %q\n", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("darktrack %s: %v", args[0], err)
	}
}
