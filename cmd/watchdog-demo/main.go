// Command watchdog-demo runs a watchdog server and a handful of simulated
// worker clients in a single process, for manual end-to-end exercises of
// the register/kick/terminate lifecycle. The mailbox transport is
// in-process, so server and clients must share one process to talk to
// each other.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchdogd/internal/mailbox"
	"watchdogd/internal/processmanager"
	"watchdogd/internal/protocol"
	"watchdogd/internal/watchdogclient"
	"watchdogd/internal/watchdogserver"
	"watchdogd/internal/wlog"
)

func main() {
	serverName := flag.String("server-name", "demo", "mailbox name of the demo watchdog server")
	workerCount := flag.Int("workers", 3, "number of simulated worker clients")
	flakyWorker := flag.Int("flaky-worker", 1, "index (0-based) of the worker that stops kicking to demonstrate TTL exhaustion, or -1 to disable")
	flag.Parse()

	logger := wlog.New("info")
	net := mailbox.NewNetwork(0)
	pm := processmanager.NewFakeProcessManager()

	server := watchdogserver.New(logger, net, *serverName, pm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)

	for i := 0; i < *workerCount; i++ {
		go runWorker(ctx, logger, net, *serverName, i, i == *flakyWorker)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("demo shutting down", "resets", pm.ResetCount(), "kill_alls", pm.KillAllCount())
	server.Stop()
	cancel()
	time.Sleep(200 * time.Millisecond)
}

func runWorker(ctx context.Context, logger interface {
	Info(msg string, args ...any)
}, net *mailbox.Network, serverName string, index int, flaky bool) {
	unitName := workerName(index)
	client := watchdogclient.New(nil, net, unitName)
	if err := client.Register(serverName, protocol.SlotSettings{BaseTTL: 3, TimeoutMS: 200}, protocol.ResetOnly); err != nil {
		return
	}
	client.Start()
	defer client.Close()

	kicksBeforeGoingQuiet := 5
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for kicks := 0; ; kicks++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if flaky && kicks >= kicksBeforeGoingQuiet {
				// Stop kicking: the server will debit this unit's TTL
				// until it exhausts and the recovery action fires.
				continue
			}
			if keepRunning := client.Kick(); !keepRunning {
				logger.Info("worker observed terminate broadcast", "unit", unitName)
				return
			}
		}
	}
}

func workerName(index int) string {
	suffixes := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}
	if index < len(suffixes) {
		return "worker-" + suffixes[index]
	}
	return "worker-" + suffixes[rand.Intn(len(suffixes))]
}
