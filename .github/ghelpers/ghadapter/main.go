package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strconv"
)

// Runs a command that prints a JSON object and exposes its fields to GitHub
// Actions as step outputs and a step summary table.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ghadapter command [args...]")
		os.Exit(2)
	}

	cmd := exec.Command(os.Args[1], os.Args[2:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	_, _ = os.Stdout.Write(output)

	var result map[string]any
	if err := json.Unmarshal(output, &result); err != nil {
		return
	}

	if err := appendTo(os.Getenv("GITHUB_OUTPUT"), func(w io.Writer) error { return writeOutputs(w, result) }); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := appendTo(os.Getenv("GITHUB_STEP_SUMMARY"), func(w io.Writer) error { return writeSummary(w, result) }); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func appendTo(path string, write func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func sortedKeys(result map[string]any) []string {
	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func format(value any) string {
	if f, ok := value.(float64); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprint(value)
}

func writeOutputs(w io.Writer, result map[string]any) error {
	for _, key := range sortedKeys(result) {
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, format(result[key])); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(w io.Writer, result map[string]any) error {
	if _, err := fmt.Fprint(w, "| key | value |\n| --- | --- |\n"); err != nil {
		return err
	}
	for _, key := range sortedKeys(result) {
		if _, err := fmt.Fprintf(w, "| %s | `%s` |\n", key, format(result[key])); err != nil {
			return err
		}
	}
	return nil
}
