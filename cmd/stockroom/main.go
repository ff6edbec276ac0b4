package main

import (
	"io"
	"log"
	"os"

	"stockroom/internal/config"

	"github.com/spf13/cobra"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "stockroom",
	Short: "Inventory, vendor and low-stock notification service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		teeLogFile(cfg.LogFile)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(seedCmd)
}

// teeLogFile copies log output to path in addition to stdout.
func teeLogFile(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", path, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("stockroom: %v", err)
	}
}
