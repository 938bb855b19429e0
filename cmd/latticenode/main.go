// Command latticenode starts a block-lattice bootstrap node: it opens a
// store, starts serving bulk_pull to other nodes (if configured to), and
// runs an ascending bootstrap attempt against its own configured peers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tolelom/latticenode/ascending"
	"github.com/tolelom/latticenode/bootpeer"
	"github.com/tolelom/latticenode/check"
	"github.com/tolelom/latticenode/config"
	"github.com/tolelom/latticenode/metrics"
	"github.com/tolelom/latticenode/processor"
	"github.com/tolelom/latticenode/selection"
	"github.com/tolelom/latticenode/statusd"
	"github.com/tolelom/latticenode/store"
	"github.com/tolelom/latticenode/transport"
	"github.com/tolelom/latticenode/transport/certgen"
)

const dupCacheSize = 1 << 16

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs into the given directory and exit (requires node ID from config)")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *genCerts != "" {
		if err := certgen.GenerateAll(*genCerts, cfg.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfg.NodeID)
		return
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}

	// ---- open ledger store ----
	st, err := store.NewLevelDB(cfg.DataDir + "/ledger")
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	// ---- TLS ----
	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}
	if tlsCfg != nil {
		log.Println("mTLS enabled for bootstrap transport")
	}

	// ---- block checker ----
	checker, err := check.NewContext([]byte(cfg.NodeID), check.DefaultWorkThresholds(), dupCacheSize)
	if err != nil {
		log.Fatalf("check context: %v", err)
	}

	// ---- processor ----
	queue := processor.NewQueue(st, checker, 1024)
	defer queue.Close()

	// ---- selection set, seeded from whatever the store already knows ----
	sel := selection.NewSetWithExclusion(cfg.BackoffExclusion)
	if err := bootpeer.Seed(st, sel); err != nil {
		log.Fatalf("bootpeer seed: %v", err)
	}

	// ---- optional bulk_pull server for other nodes bootstrapping off us ----
	var server *transport.Server
	if cfg.ListenAddr != "" {
		server = transport.NewServer(st, tlsCfg)
		if err := server.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("transport listen: %v", err)
		}
		defer server.Close()
		log.Printf("Serving bulk_pull on %s", cfg.ListenAddr)
	}

	// ---- ascending bootstrap attempt ----
	dialer := transport.NewTCPDialer(cfg.BootstrapPeers, tlsCfg)
	opts := ascending.Options{
		MaxInFlight:            cfg.MaxInFlight,
		MaxBlocksPerRequest:    uint32(cfg.MaxBlocksPerRequest),
		StatsInterval:          cfg.StatsInterval,
		ForwardSendDestination: cfg.ForwardSendDestination,
	}
	attempt := ascending.NewAttempt(st, dialer, queue, sel, opts)

	// ---- status/metrics ----
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(attempt)); err != nil {
		log.Fatalf("register metrics: %v", err)
	}
	status := statusd.NewServer(cfg.StatusAddr, reg, attempt)
	if err := status.Start(); err != nil {
		log.Fatalf("statusd start: %v", err)
	}
	defer status.Stop()
	log.Printf("Status/metrics listening on %s", cfg.StatusAddr)

	// ---- run the attempt until signalled ----
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		attempt.Run(ctx)
	}()
	log.Printf("Ascending bootstrap running (node: %s, peers: %d)", cfg.NodeID, len(cfg.BootstrapPeers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	cancel()
	attempt.Stop()
	wg.Wait()
	queue.Flush()

	log.Println("Shutdown complete.")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
