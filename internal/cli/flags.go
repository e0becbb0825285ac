package cli

import (
	"flag"

	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/config"
)

// CommonFlags are shared by every command
type CommonFlags struct {
	ConfigPath string
	Verbose    bool
}

func (f *CommonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.BoolVar(&f.Verbose, "verbose", false, "Verbose output")
}

// LoadConfig reads the config file, falling back to environment variables
func (f *CommonFlags) LoadConfig() *config.Config {
	return config.LoadOrEnv_WithPath(f.ConfigPath)
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	CommonFlags
	Port int
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	flags.register(fs)
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (0 = from config)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// IngestFlags holds the CLI flags for the one-shot ingest command.
type IngestFlags struct {
	CommonFlags
	App     string
	Type    string
	Data    string
	File    string
	ForceAI bool
	JSON    bool
}

// ParseIngestFlags parses command line flags for the ingest command.
func ParseIngestFlags(args []string) (*IngestFlags, error) {
	flags := &IngestFlags{}
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	flags.register(fs)
	fs.StringVar(&flags.App, "app", "", "Source app identifier")
	fs.StringVar(&flags.Type, "type", "NOTICE", "Data type: DATA, NOTICE or OCR")
	fs.StringVar(&flags.Data, "data", "", "Raw payload text")
	fs.StringVar(&flags.File, "file", "", "Read the payload from a file ('-' for stdin)")
	fs.BoolVar(&flags.ForceAI, "ai", false, "Use the AI classifier even when AI recognition is off")
	fs.BoolVar(&flags.JSON, "json", false, "Print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}
