package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tilldb/till-db/internal/catalog"
	"github.com/tilldb/till-db/internal/executor"
	"github.com/tilldb/till-db/internal/lexer"
	"github.com/tilldb/till-db/internal/logger"
	"github.com/tilldb/till-db/internal/parser"
	"github.com/tilldb/till-db/internal/storage"
)

type config struct {
	DataDir         string
	LogLevel        string
	LogFile         string
	ArchiveEnabled  bool
	ArchiveDir      string
	ArchiveInterval time.Duration
}

func loadConfig(path string) config {
	v := viper.New()
	v.SetDefault("data_dir", "data")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.dir", "data/archive")
	v.SetDefault("archive.interval", "5m")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			fmt.Printf("Warning: could not read config %s: %v\n", path, err)
		}
	}

	return config{
		DataDir:         v.GetString("data_dir"),
		LogLevel:        v.GetString("log_level"),
		LogFile:         v.GetString("log_file"),
		ArchiveEnabled:  v.GetBool("archive.enabled"),
		ArchiveDir:      v.GetString("archive.dir"),
		ArchiveInterval: v.GetDuration("archive.interval"),
	}
}

func main() {
	configPath := flag.String("config", "", "path to till.yaml")
	flag.Parse()

	cfg := loadConfig(*configPath)
	logger.Init(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	fmt.Println("TillDB SQL Server")
	fmt.Println("Type 'exit' to quit")

	cat, err := catalog.New(storage.StorageConfig{
		Backend: storage.HeapBackend,
		DataDir: cfg.DataDir,
	})
	if err != nil {
		fmt.Printf("Error initializing catalog: %v\n", err)
		return
	}

	var archiver *storage.ParquetArchiver
	if cfg.ArchiveEnabled {
		archiver, err = storage.NewParquetArchiver(cfg.ArchiveDir, cat.Relations)
		if err != nil {
			fmt.Printf("Error initializing archiver: %v\n", err)
			return
		}
		archiver.SetInterval(cfg.ArchiveInterval)
		archiver.Start()
	}

	exec := executor.New(cat)
	reader := bufio.NewReader(os.Stdin)

	// Check if we're in interactive mode or piped input
	isInteractive := true
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		isInteractive = false
	}

	for {
		if isInteractive {
			fmt.Print("> ")
		}

		input, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if isInteractive {
					fmt.Println("Goodbye!")
				}
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.ToLower(input) == "exit" {
			fmt.Println("Goodbye!")
			break
		}

		l := lexer.New(input)
		p := parser.New(l)
		stmt, err := p.Parse()
		if err != nil {
			fmt.Printf("Error parsing statement: %v\n", err)
			continue
		}

		result, err := exec.Execute(stmt)
		if err != nil {
			fmt.Printf("Error executing statement: %v\n", err)
			continue
		}

		fmt.Println(result.String())
	}

	if archiver != nil {
		archiver.Stop()
		if err := archiver.SnapshotAll(); err != nil {
			logger.Warnf("final parquet snapshot failed: %v", err)
		}
	}
	if err := cat.Close(); err != nil {
		fmt.Printf("Error closing catalog: %v\n", err)
	}
}
