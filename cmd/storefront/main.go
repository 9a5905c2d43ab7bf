// Package main is the entry point for storefront.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang/v2"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Online storefront web application",
	Long: `storefront serves the catalog, basket, checkout and account pages of an
online shop, backed by in-memory or PostgreSQL stores.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./storefront.yaml or ~/.config/storefront/storefront.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
