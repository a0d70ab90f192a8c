package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// outputFormat returns the configured output format, defaulting to table.
func outputFormat() (string, error) {
	output := viper.GetString("output")

	switch output {
	case "", constants.FormatTable:
		return constants.FormatTable, nil
	case constants.FormatJSON, constants.FormatYAML:
		return output, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrInvalidOutput, output)
	}
}

// writeStructured encodes v as JSON or YAML according to format. It reports
// false when format is table and nothing was written.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return true, encoder.Encode(v)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)

		err := encoder.Encode(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode yaml: %w", err)
		}

		return true, encoder.Close()
	default:
		return false, nil
	}
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, row := range rows {
		_ = table.Append(row)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// output writes v in the configured structured format, or rows as a table.
func output(v any, headers []string, rows func() [][]string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	done, err := writeStructured(os.Stdout, format, v)
	if done || err != nil {
		return err
	}

	return renderTable(os.Stdout, headers, rows())
}

// parseParams turns repeated key=value flags into a parameter map.
func parseParams(values []string) (map[string]string, error) {
	params := make(map[string]string, len(values))

	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParam, value)
		}

		params[strings.TrimSpace(key)] = val
	}

	return params, nil
}

func parseBuildNumber(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", constants.ErrInvalidBuildID, value)
	}

	return n, nil
}

func parseQueueID(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", constants.ErrInvalidQueueID, value)
	}

	return n, nil
}

// confirm asks a yes/no question on stderr and reads the answer from in.
func confirm(in io.Reader, question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return constants.NotAvailable
	}

	return t.Format(time.RFC3339)
}

func orNA(s string) string {
	if s == "" {
		return constants.NotAvailable
	}

	return s
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n-3] + "..."
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
