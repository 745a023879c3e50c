// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage school tenants",
}

type tenantView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Status   string `json:"status"`
	Database string `json:"database"`
}

var listTenantsCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		var tenants []tenantView
		if err := apiGet(cmd, "/api/v0/tenants", &tenants); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSLUG\tSTATUS\tDATABASE")
		for _, t := range tenants {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Slug, t.Status, t.Database)
		}
		return w.Flush()
	},
}

var getTenantCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var t tenantView
		if err := apiGet(cmd, "/api/v0/tenants/"+args[0], &t); err != nil {
			return err
		}
		fmt.Printf("ID: %d\nName: %s\nSlug: %s\nStatus: %s\nDatabase: %s\n",
			t.ID, t.Name, t.Slug, t.Status, t.Database)
		return nil
	},
}

var setTenantStatusCmd = &cobra.Command{
	Use:   "set-status [id] [status]",
	Short: "Change a tenant's lifecycle status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := json.Marshal(map[string]string{"status": args[1]})
		if err != nil {
			return err
		}
		if err := apiPatch(cmd, "/api/v0/tenants/"+args[0]+"/status", body); err != nil {
			return err
		}
		fmt.Printf("Tenant %s status set to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	tenantCmd.AddCommand(listTenantsCmd)
	tenantCmd.AddCommand(getTenantCmd)
	tenantCmd.AddCommand(setTenantStatusCmd)
	rootCmd.AddCommand(tenantCmd)
}

func endpoint(path string) string {
	base := httpEndpoint
	if !strings.HasPrefix(base, "http") {
		base = "http://" + base
	}
	return strings.TrimSuffix(base, "/") + path
}

func apiGet(cmd *cobra.Command, path string, out any) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint(path), nil)
	if err != nil {
		return err
	}
	return doRequest(req, out)
}

func apiPatch(cmd *cobra.Command, path string, body []byte) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPatch, endpoint(path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(req, nil)
}

func doRequest(req *http.Request, out any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
