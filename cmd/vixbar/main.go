package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"VIXBar/internal/collector"
	"VIXBar/internal/config"
	"VIXBar/internal/display"
	"VIXBar/internal/httpapi"
	"VIXBar/internal/loginitem"
	"VIXBar/internal/notifier"
	"VIXBar/internal/poller"
	"VIXBar/internal/scheduler"
	"VIXBar/internal/state"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] load .env: %v", err)
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	cfgPath := flag.String("config", defaultCfg, "path to the YAML config file")
	once := flag.Bool("once", false, "fetch a single value, print it and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [login status|enable|disable]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	login := loginitem.Default(cfg.LoginItem.Label, cfg.LoginItem.Program)

	if args := flag.Args(); len(args) > 0 {
		if args[0] != "login" {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(runLogin(login, args[1:]))
	}

	log.Println("[INFO] VIXBar starting...")

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.DataSource.Mock {
		fetcher = &collector.MockFetcher{Value: cfg.DataSource.MockValue}
	} else {
		yf := collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.FetchTimeout())
		yf.Granularity = cfg.DataSource.Granularity
		yf.UserAgent = cfg.DataSource.UserAgent
		yf.Debug = cfg.Log.Debug
		fetcher = yf
	}
	log.Printf("[INFO] data source: %s, symbol: %s", fetcher.Name(), cfg.DataSource.Symbol)

	col := collector.NewCollector(fetcher, cfg.DataSource.Symbol)
	store := state.NewStore()
	defer store.Close()

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.NewScheduler()
	p := poller.New(ctx, col, store, sched)

	if *once {
		ok := p.FetchOnce(ctx)
		fmt.Printf("%s %s\n", cfg.DataSource.Symbol, display.FormatValue(store.Latest().LatestValue))
		if !ok {
			os.Exit(1)
		}
		return
	}

	sink := display.NewConsoleSink(cfg.DataSource.Symbol, os.Stdout)
	sink.Attach(store)
	defer sink.Detach()

	if err := p.Start(cfg.PollInterval()); err != nil {
		log.Fatalf("[FATAL] start poller: %v", err)
	}
	sched.Start()
	defer sched.Stop(5 * time.Second)

	if *cfg.Poll.FetchOnStart {
		go p.FetchOnStart()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Addr != "" {
		srv := httpapi.NewServer(cfg.HTTP.Addr, cfg.DataSource.Symbol, store, p, login, cancel)
		g.Go(func() error { return srv.Start(gctx) })
	}

	if cfg.Telegram.BotToken != "" {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		cmds := &notifier.Commands{
			Symbol: cfg.DataSource.Symbol,
			Store:  store,
			Poller: p,
			Login:  login,
			Quit:   cancel,
		}
		g.Go(func() error {
			tn.StartPolling(gctx, cmds.HandleCommand)
			return nil
		})
		log.Println("[INFO] Telegram polling started")
	}

	log.Println("[INFO] VIXBar is running. Press Ctrl+C to stop.")

	<-gctx.Done()
	log.Println("[INFO] shutdown requested, stopping...")
	p.Stop()
	cancel()
	if err := g.Wait(); err != nil {
		log.Printf("[ERROR] %v", err)
	}
	log.Println("[INFO] VIXBar stopped")
}

// runLogin handles the login subcommand and returns the process exit code.
func runLogin(m loginitem.Manager, args []string) int {
	action := "status"
	if len(args) > 0 {
		action = args[0]
	}

	var enabled bool
	var err error
	switch action {
	case "status":
		enabled = m.IsEnabled()
	case "enable", "on":
		enabled, err = loginitem.Set(m, true)
	case "disable", "off":
		enabled, err = loginitem.Set(m, false)
	default:
		fmt.Fprintf(os.Stderr, "unknown login action %q\n", action)
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "login item: %v\n", err)
	}
	fmt.Printf("launch at login: %v\n", enabled)
	if err != nil {
		return 1
	}
	return 0
}
