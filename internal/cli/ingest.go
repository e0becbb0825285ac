package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eshaffer321/bill-reconciler/internal/application/reconcile"
)

// RunIngest pushes one payload through the pipeline and prints the result
func RunIngest(ctx context.Context, flags *IngestFlags, out io.Writer) error {
	if flags.App == "" {
		return errors.New("-app is required")
	}
	data, err := readPayload(flags)
	if err != nil {
		return err
	}

	app, err := NewApp(ctx, flags.LoadConfig(), flags.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	result, err := app.Service.Analyze(ctx, reconcile.Request{
		App:      flags.App,
		DataType: flags.Type,
		Data:     data,
		ForceAI:  flags.ForceAI,
	})
	if err != nil {
		return err
	}

	if flags.JSON {
		return PrintResultJSON(out, result)
	}
	PrintResult(out, result)
	return nil
}

func readPayload(flags *IngestFlags) (string, error) {
	switch {
	case flags.Data != "" && flags.File != "":
		return "", errors.New("-data and -file are mutually exclusive")
	case flags.Data != "":
		return flags.Data, nil
	case flags.File == "-":
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	case flags.File != "":
		raw, err := os.ReadFile(flags.File)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", flags.File, err)
		}
		return strings.TrimSpace(string(raw)), nil
	default:
		return "", errors.New("one of -data or -file is required")
	}
}
