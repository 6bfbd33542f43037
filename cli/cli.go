// Package cli implements the seq2func command line interface. Commands
// talk to a running seq2funcd daemon through the SDK, starting one on
// demand when none is reachable.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/seq2func/seq2func/internals/conf"
	"github.com/seq2func/seq2func/internals/timeouts"
	"github.com/seq2func/seq2func/sdk"
)

const daemonBinary = "seq2funcd"

func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seq2func",
		Short:         "Longevity gene literature search and knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		serveCmd(),
		searchCmd(),
		statusCmd(),
		cancelCmd(),
		loadCmd(),
		versionCmd(),
	)
	return root
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task_id>",
		Short: "Show the status of a search task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := sdk.NewClient()
			if err := ensureDaemonRunning(client); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.PollRequest)
			defer cancel()
			response, err := client.TaskStatus(ctx, args[0])
			if err != nil {
				return err
			}
			printTaskStatus(response)
			return nil
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task_id>",
		Short: "Request cancellation of a running search task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := sdk.NewClient()
			if err := ensureDaemonRunning(client); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.PollRequest)
			defer cancel()
			response, err := client.CancelTask(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("task: %s\nstatus: %s\n", response.TaskID, response.Status)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI and daemon versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("cli: %s\n", conf.GetConfig().Version)

			client := sdk.NewClient()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Probe)
			defer cancel()
			daemonVersion, err := client.Version(ctx)
			if err != nil {
				fmt.Println("daemon: not running")
				return nil
			}
			fmt.Printf("daemon: %s\n", daemonVersion)
			return nil
		},
	}
}

func ensureDaemonRunning(client *sdk.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Probe)
	defer cancel()

	if _, err := client.Version(ctx); err == nil {
		return nil
	}

	if err := startDaemon(); err != nil {
		return err
	}

	return waitForDaemon(client)
}

func startDaemon() error {
	path, err := findDaemonBinary()
	if err != nil {
		return err
	}

	cmd := exec.Command(path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

func waitForDaemon(client *sdk.Client) error {
	var lastErr error
	for i := 0; i < 8; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Probe)
		_, err := client.Version(ctx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(time.Duration(i+1) * 150 * time.Millisecond)
	}

	if lastErr != nil {
		return lastErr
	}
	return errors.New("failed to reach " + daemonBinary)
}

func findDaemonBinary() (string, error) {
	executable, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(executable), daemonBinary)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(daemonBinary)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH", daemonBinary)
	}
	return path, nil
}
