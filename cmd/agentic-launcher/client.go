package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bpardiwa1/agentic-launcher/internal/supervisor"
)

// runStatus queries a running serve daemon and prints a status table.
func runStatus(cmd *cobra.Command, flags StatusFlags) error {
	endpoint := strings.TrimRight(flags.APIUrl, "/") + "/status"
	if flags.Name != "" {
		endpoint += "?name=" + url.QueryEscape(flags.Name)
	}

	client := &http.Client{Timeout: flags.APITimeout}
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", flags.APIUrl, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var snaps []supervisor.Snapshot
	if flags.Name != "" {
		var one supervisor.Snapshot
		if err := json.Unmarshal(body, &one); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		snaps = []supervisor.Snapshot{one}
	} else if err := json.Unmarshal(body, &snaps); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	printStatusTable(cmd.OutOrStdout(), snaps)
	return nil
}

func printStatusTable(w io.Writer, snaps []supervisor.Snapshot) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSTATE\tPID\tLAUNCHES\tLAST EXIT\tFAILURES\tLOG")
	for _, s := range snaps {
		pid := "-"
		if s.PID != 0 {
			pid = fmt.Sprintf("%d", s.PID)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.Name, s.State, pid, s.Launches, s.LastExitCode, s.ConsecutiveFailures, s.LogPath)
	}
	_ = tw.Flush()
}
