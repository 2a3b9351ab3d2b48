// Command permcatalog inspects the admin console permission catalogue.
//
//	permcatalog list [-json]
//	permcatalog label <code>
//	permcatalog check <code>...
//	permcatalog loadtest [-users N] [-ops N] [-concurrency N] [-mode jwt|strict]
//
// check exits with status 1 when any argument is not a catalogue code.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	access "github.com/cmsconsole/access"
	"github.com/sirupsen/logrus"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

func main() {
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.SetOutput(os.Stderr)

	os.Exit(run(os.Args[1:], os.Stdout, logrus.StandardLogger()))
}

func run(args []string, stdout io.Writer, log logrus.FieldLogger) int {
	if len(args) == 0 {
		usage(stdout)
		return exitUsage
	}

	switch args[0] {
	case "list":
		return runList(args[1:], stdout, log)
	case "label":
		return runLabel(args[1:], stdout, log)
	case "check":
		return runCheck(args[1:], stdout, log)
	case "loadtest":
		return runLoadtest(args[1:], stdout, log)
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	default:
		log.WithFields(logrus.Fields{"command": args[0]}).Error("unknown command")
		usage(stdout)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: permcatalog <list [-json] | label <code> | check <code>... | loadtest [flags]>")
}

func runList(args []string, stdout io.Writer, log logrus.FieldLogger) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asJSON := fs.Bool("json", false, "print entries as a JSON array")
	if err := fs.Parse(args); err != nil {
		log.WithFields(logrus.Fields{"err": err}).Error("invalid list flags")
		return exitUsage
	}

	entries := access.Entries()
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			log.WithFields(logrus.Fields{"err": err}).Error("encode catalogue")
			return exitInvalid
		}
		return exitOK
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Code, e.Label)
	}
	if err := tw.Flush(); err != nil {
		return exitInvalid
	}
	return exitOK
}

func runLabel(args []string, stdout io.Writer, log logrus.FieldLogger) int {
	if len(args) != 1 {
		log.Error("label takes exactly one code")
		return exitUsage
	}

	label, err := access.LabelOf(args[0])
	if err != nil {
		log.WithFields(logrus.Fields{"code": args[0]}).Error("not a catalogue code")
		return exitInvalid
	}
	fmt.Fprintln(stdout, label)
	return exitOK
}

func runCheck(args []string, stdout io.Writer, log logrus.FieldLogger) int {
	if len(args) == 0 {
		log.Error("check takes at least one code")
		return exitUsage
	}

	status := exitOK
	for _, code := range args {
		if _, err := access.ParseCode(code); err != nil {
			if !errors.Is(err, access.ErrPermissionNotFound) {
				log.WithFields(logrus.Fields{"err": err}).Error("check failed")
			}
			fmt.Fprintf(stdout, "invalid\t%s\n", code)
			status = exitInvalid
			continue
		}
		fmt.Fprintf(stdout, "ok\t%s\n", code)
	}
	return status
}
