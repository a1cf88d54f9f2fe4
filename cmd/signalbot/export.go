package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quangtran88/signalbot/internal/bot"
	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/internal/logger"
	"github.com/quangtran88/signalbot/internal/reporting"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the signal audit trail to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(envFile)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Config{Level: "warn", Format: "console"})
			if err != nil {
				return err
			}

			engine, err := bot.New(cfg, log)
			if err != nil {
				return err
			}
			defer engine.Close()

			records, err := engine.ExportRecords()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(os.Stderr, "no audit records to export")
				return nil
			}
			if err := reporting.ExportAuditXLSX(records, output); err != nil {
				return err
			}
			fmt.Printf("exported %d records to %s\n", len(records), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "signals.xlsx", "output file path")
	return cmd
}
