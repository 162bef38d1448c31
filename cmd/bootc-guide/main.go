package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"bootc-guide/cmd/bootc-guide/cli"
	"bootc-guide/pkg/pipelines"

	"github.com/lmittmann/tint"
)

const (
	exitOk            = 0
	exitUserInput     = 1
	exitSystemFailure = 2
	exitBuildFailure  = 3
)

// Set at build time with -ldflags "-X main.cliVersion=..."
var (
	cliVersion     = "[Not Provided]"
	buildDate      = "[Not Provided]"
	gitCommit      = "[Not Provided]"
	gitDescription = "[Not Provided]"
)

func main() {
	os.Exit(run())
}

func run() int {
	logLeveler := &slog.LevelVar{}
	logLeveler.Set(slog.LevelInfo)

	// Set up custom structured logging with colorized output
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLeveler,
		TimeFormat: time.TimeOnly,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metadata := cli.ApplicationMetadata{
		CLIVersion:     cliVersion,
		GitCommit:      gitCommit,
		BuildDate:      buildDate,
		GitDescription: gitDescription,
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion:      runtime.Version(),
		Compiler:       runtime.Compiler,
	}

	cmd := cli.NewBootcGuideCommand(logLeveler, metadata)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		slog.Error("bootc-guide failed", "error", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var sessionErr *cli.SessionError
	switch {
	case err == nil:
		return exitOk
	case errors.As(err, &sessionErr):
		switch sessionErr.Outcome {
		case pipelines.OutcomeCompleted, pipelines.OutcomeCancelled, pipelines.OutcomeDeclined:
			return exitOk
		case pipelines.OutcomeInputError:
			return exitUserInput
		case pipelines.OutcomeBuildFailed:
			return exitBuildFailure
		default:
			return exitSystemFailure
		}
	default:
		// flag, argument and configuration errors
		return exitUserInput
	}
}
