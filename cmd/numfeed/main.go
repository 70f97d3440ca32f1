// Number feed server for go-numfeed
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-numfeed/internal/config"
	"github.com/go-while/go-numfeed/internal/database"
	"github.com/go-while/go-numfeed/internal/feed"
	"github.com/go-while/go-numfeed/internal/preloader"
	"github.com/go-while/go-numfeed/internal/web"
)

var Prof *prof.Profiler

var appVersion = "-unset-"

var (
	// command-line flags
	configFile  string
	numbersFile string
	messageFile string
	webport     int
	debug       bool
	ledgerDir   string
	pprofAddr   string
)

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&configFile, "config", config.DefaultConfigFile, "path to config file (TOML)")
	flag.StringVar(&numbersFile, "numbers", "", "numbers file, one per line (default: numbers_file from config or numbers.txt)")
	flag.StringVar(&messageFile, "msg", "", "message file, first line is used (default: message_file from config or msg.txt)")
	flag.IntVar(&webport, "webport", 0, "overrides port from config")
	flag.BoolVar(&debug, "debug", false, "log response bodies and requests")
	flag.StringVar(&ledgerDir, "ledger", "", "directory for the ledger database of served pages (default: ledger_dir from config, empty disables)")
	flag.StringVar(&pprofAddr, "pprof", "", "serve pprof on this address, e.g. 127.0.0.1:51111 (default: off)")
	flag.Parse()

	log.Printf("Starting go-numfeed (version: %s)", appVersion)

	mainConfig, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("[CONFIG]: %v", err)
	}
	mainConfig.AppVersion = appVersion
	applyFlags(mainConfig)
	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[CONFIG]: %v", err)
	}
	log.Printf("[CONFIG]: Loaded %s => %d + 1 numbers per fetch, test number: %s", configFile, mainConfig.DefaultFetchCount, mainConfig.TestNumber)

	if pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
		log.Printf("[WEB]: pprof enabled on %s", pprofAddr)
	}

	numbers := preloader.LoadNumbers(mainConfig.NumbersFile, mainConfig.Charset)
	message := preloader.LoadMessage(mainConfig.MessageFile, mainConfig.Charset)
	log.Printf("[WEB]: Loaded %d numbers, message: %s", len(numbers), message)

	store := feed.NewStore(numbers, message, mainConfig.DefaultFetchCount, mainConfig.TestNumber)

	var ledger *database.LedgerDB
	if mainConfig.LedgerDir != "" {
		ledger, err = database.NewLedgerDB(mainConfig.LedgerDir, database.DefaultLedgerQueue)
		if err != nil {
			log.Fatalf("[LEDGER]: Failed to initialize ledger database: %v", err)
		}
	}

	server := web.NewServer(store, ledger, mainConfig)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	webServerErrChan := make(chan error, 1)
	go func() {
		webServerErrChan <- server.Start()
	}()

	select {
	case <-sigChan:
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		if err != nil {
			log.Fatalf("[WEB]: Failed to start web server: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error during shutdown: %v", err)
	}

	if ledger != nil {
		if err := ledger.Close(); err != nil {
			log.Printf("[LEDGER]: Error closing ledger: %v", err)
		}
	}

	snap := store.Snapshot()
	log.Printf("[WEB]: Graceful shutdown completed at %d / %d", snap.Consumed, snap.Total)
}

// applyFlags overrides config values with command-line flags if provided
func applyFlags(cfg *config.MainConfig) {
	if webport > 0 {
		cfg.Port = webport
		log.Printf("[CONFIG]: Overriding listen port with command-line flag: %d", cfg.Port)
	}
	if numbersFile != "" {
		cfg.NumbersFile = numbersFile
	}
	if messageFile != "" {
		cfg.MessageFile = messageFile
	}
	if debug {
		cfg.Debug = true
	}
	if ledgerDir != "" {
		cfg.LedgerDir = ledgerDir
	}
}
