package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"englishdrills/internal/config"
	"englishdrills/internal/logger"
	"englishdrills/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: snapshots_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Delete existing snapshots before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.IsProduction(), cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		backupService, closeStore := openBackupService(ctx, cfg, log)
		defer closeStore()
		handleExport(ctx, backupService, *exportOutput, log)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		backupService, closeStore := openBackupService(ctx, cfg, log)
		defer closeStore()
		handleImport(ctx, backupService, *importInput, *importClear, *importYes, log)

	default:
		printUsage()
		os.Exit(1)
	}
}

func openBackupService(ctx context.Context, cfg *config.Config, log *logger.Logger) (*service.BackupService, func() error) {
	store, err := service.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open snapshot store", "store", cfg.SnapshotStore, "error", err)
	}
	return service.NewBackupService(store, store.Kind, log), store.Close
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string, log *logger.Logger) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("snapshots_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("Failed to create output directory", "dir", dir, "error", err)
		}
	}

	if err := backupService.Export(ctx, outputPath); err != nil {
		log.Fatal("Export failed", "error", err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		log.Info("Export complete", "file", outputPath, "size_kb", info.Size()/1024)
	}
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData, skipConfirm bool, log *logger.Logger) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", "file", inputPath)
	}

	if clearData && !skipConfirm {
		fmt.Print("WARNING: This will delete all existing snapshots. Type 'yes' to confirm: ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			log.Info("Import cancelled")
			return
		}
	}

	if err := backupService.Import(ctx, inputPath, clearData); err != nil {
		log.Fatal("Import failed", "error", err)
	}
	log.Info("Import complete", "file", inputPath)
}

func printUsage() {
	fmt.Println("English Drills Snapshot Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  snapshots export [options]    Export learner snapshots to a JSON file")
	fmt.Println("  snapshots import [options]    Import learner snapshots from a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: snapshots_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Delete existing snapshots before import (WARNING: destructive)")
	fmt.Println("  -yes              Do not ask for confirmation")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  SNAPSHOT_STORE   sql or redis (default: sql)")
	fmt.Println("  DB_TYPE          sqlite, postgres or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./englishdrills.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  REDIS_ADDR       Redis address when SNAPSHOT_STORE=redis")
}
