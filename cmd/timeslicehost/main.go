// Command timeslicehost is a minimal process entrypoint wiring one
// timeslice.Context, demonstrating (not fully productizing) the
// transportadapter websocket seam and a mux-routed debug surface. Explicitly
// thin: CLI/config loading at this level, beyond the flags simconfig.Load
// already exposes, is a listed non-goal; this exists only so the module has
// a runnable example the way the teacher's own main.go does.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holodeck1/behavior"
	"holodeck1/cosmos"
	"holodeck1/logging"
	"holodeck1/physics"
	"holodeck1/simconfig"
	"holodeck1/timeslice"
	"holodeck1/timestream"
	"holodeck1/transportadapter"
)

func main() {
	cfg, err := simconfig.Load(os.Getenv("TIMESLICE_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: configuration load failed: %v\n", err)
		os.Exit(1)
	}

	if err := logging.ApplyConfig(&logging.Config{
		Level:        cfg.Logging.Level,
		TraceModules: cfg.Logging.TraceModules,
		LogDir:       cfg.Logging.LogDir,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logging initialization failed: %v\n", err)
		os.Exit(1)
	}

	hostID := uint8(0)
	c := cosmos.New(hostID, true)
	lib := behavior.NewLibrary()
	behavior.RegisterStock(lib)

	// An optional past-ward neighbor reached over websocket, demonstrating
	// the transportadapter seam. A websocket connection has no single
	// shared Link the way two in-process cosmoses do, so two independent
	// single-stream Links stand in for "what we send" and "what we
	// receive": Sink drains outboundLink's stream onto the wire, Source
	// fills inboundLink's stream from it.
	var future, past *timestream.Conduit
	var peerStop chan struct{}
	if peerURL := os.Getenv("TIMESLICE_PEER_URL"); peerURL != "" {
		conn, err := transportadapter.Dial(peerURL)
		if err != nil {
			logging.Fatal("peer websocket dial failed", map[string]interface{}{"peer_url": peerURL, "error": err.Error()})
		}
		outboundLink := timestream.NewLink()
		inboundLink := timestream.NewLink()
		past = timestream.NewConduit(outboundLink, true)   // PushPastward -> outboundLink.FutureToPast
		future = timestream.NewConduit(inboundLink, false) // DrainInbound <- inboundLink.FutureToPast
		peerStop = make(chan struct{})
		go transportadapter.Source(conn, inboundLink.FutureToPast)
		go transportadapter.Sink(conn, outboundLink.FutureToPast, peerStop)
		logging.Info("dialed past-ward peer", map[string]interface{}{"peer_url": peerURL})
	}

	ts, err := timeslice.NewContext(c, physics.NewRelay(), lib, future, past, cfg.Physics.FixedInterval)
	if err != nil {
		logging.Fatal("timeslice context construction failed", map[string]interface{}{"error": err.Error()})
	}
	ts.FrameInterval = cfg.Timestream.FrameInterval

	stop, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := ts.Run(stop); err != nil && stop.Err() == nil {
			logging.Warn("timeslice context stopped unexpectedly", map[string]interface{}{"error": err.Error()})
		}
	}()

	cosmoses := map[uint8]*cosmos.Cosmos{hostID: c}
	jwtSecret := []byte(os.Getenv("TIMESLICE_DEBUG_JWT_SECRET"))
	router := newDebugRouter(cosmoses, jwtSecret)

	addr := os.Getenv("TIMESLICE_DEBUG_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8090"
	}
	httpServer := &http.Server{Addr: addr, Handler: router}

	go func() {
		logging.Info("timeslicehost debug surface listening", map[string]interface{}{"addr": addr, "host_id": hostID})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn("debug http server exited", map[string]interface{}{"error": err.Error()})
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Info("timeslicehost shutting down", nil)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	if peerStop != nil {
		close(peerStop)
	}
	cancel()
}
