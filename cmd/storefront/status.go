package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/omarluq/storefront/internal/actuator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if the storefront is running",
	Long: `Check the health status of a running storefront by querying its health
actuator.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	base := strings.TrimRight(cfg.Actuators.BasePath, "/")
	if base == "" {
		base = actuator.DefaultBasePath
	}
	scheme := "http"
	if cfg.Server.TLSEnabled() {
		scheme = "https"
	}
	return checkHealth(cmd, fmt.Sprintf("%s://%s%s/%s", scheme, cfg.Server.Listen, base, actuator.EndpointHealth))
}

func checkHealth(cmd *cobra.Command, healthURL string) error {
	out := cmd.OutOrStdout()
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, healthURL, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(out, "✗ storefront is not running (%s)\n", healthURL)
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Logger.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read health response: %w", err)
	}
	status := gjson.GetBytes(body, "status").String()
	if resp.StatusCode == http.StatusOK {
		fmt.Fprintf(out, "✓ storefront is running (%s)\n", status)
		return nil
	}
	fmt.Fprintf(out, "✗ storefront is unhealthy: %d %s\n", resp.StatusCode, status)
	for name, detail := range gjson.GetBytes(body, "details").Map() {
		if s := detail.Get("status").String(); s != "UP" {
			fmt.Fprintf(out, "  %s: %s\n", name, s)
		}
	}
	return fmt.Errorf("health check failed with status %d", resp.StatusCode)
}
