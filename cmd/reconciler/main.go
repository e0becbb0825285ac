package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/bill-reconciler/internal/cli"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	subArgs := os.Args[2:]

	var err error
	switch subcommand {
	case "serve":
		err = runServe(subArgs)
	case "ingest":
		err = runIngest(subArgs)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(args []string) error {
	flags, err := cli.ParseServeFlags(args)
	if err != nil {
		return err
	}
	return cli.RunServe(flags)
}

func runIngest(args []string) error {
	flags, err := cli.ParseIngestFlags(args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cli.RunIngest(ctx, flags, os.Stdout)
}

func printUsage() {
	fmt.Println("Bill Reconciler")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  reconciler serve  [-config config.yaml] [-port 52045] [-verbose]")
	fmt.Println("  reconciler ingest -app <package> [-type NOTICE] (-data <text> | -file <path|->) [-ai] [-json]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API")
	fmt.Println("  ingest   Reconcile one payload and print the resulting bill")
}
