package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fix44engine/fix44/fix"
	"github.com/fix44engine/fix44/internal/admin"
	"github.com/fix44engine/fix44/internal/auth"
	"github.com/fix44engine/fix44/internal/broker"
	"github.com/fix44engine/fix44/internal/config"
	"github.com/fix44engine/fix44/internal/logging"
	"github.com/fix44engine/fix44/internal/metrics"
	badgerstore "github.com/fix44engine/fix44/internal/store/badger"
	"github.com/fix44engine/fix44/pipeline"
	"github.com/fix44engine/fix44/session"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Dial the configured counterparty and run the session",
	RunE:  runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return withExitCode(exitConfigError, err)
	}

	dict := fix.NewGroupDict()

	sentStore, recvStore, closeStore, err := openStore(*cfg)
	if err != nil {
		return withExitCode(exitConfigError, err)
	}
	defer closeStore()

	seqs, err := session.LoadSeqNums(sidDir(*cfg), cfg.SenderCompID, cfg.TargetCompID)
	if err != nil {
		return withExitCode(exitConfigError, fmt.Errorf("fixcli: load sequence numbers: %w", err))
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, cfg.ConnectTimeout)
	if err != nil {
		return withExitCode(exitTransportFail, fmt.Errorf("fixcli: dial %s: %w", addr, err))
	}

	sessionConfig := session.Config{
		BeginString:    cfg.BeginString,
		SenderCompID:   cfg.SenderCompID,
		TargetCompID:   cfg.TargetCompID,
		HeartBtInt:     cfg.HeartBtInt,
		ConnectTimeout: cfg.ConnectTimeout,
		LogoutTimeout:  cfg.LogoutTimeout,
		ResetOnLogon:   cfg.ResetOnLogon,
		Username:       cfg.Username,
		Password:       cfg.Password,
	}

	sconn := session.Engine(sessionConfig, conn, dict, sentStore, recvStore, seqs)

	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		verifier, err = auth.New(auth.Credentials{Username: cfg.Username, Password: cfg.Password}, auth.Config{Secret: cfg.Auth.Secret})
		if err != nil {
			return withExitCode(exitConfigError, fmt.Errorf("fixcli: configure auth: %w", err))
		}
	}

	b, err := broker.Connect(broker.Config{
		URL:             cfg.Broker.URL,
		Username:        cfg.Broker.Username,
		Password:        cfg.Broker.Password,
		OutboundSubject: cfg.Broker.OutboundSubject,
		InjectSubject:   cfg.Broker.InjectSubject,
	})
	if err != nil {
		return withExitCode(exitTransportFail, fmt.Errorf("fixcli: connect broker: %w", err))
	}
	defer b.Close()

	var registerer prometheus.Registerer
	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		registerer = prometheus.DefaultRegisterer
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Errorf("metrics server: %v", err)
			}
		}()
		defer metricsServer.Close()
	}
	mtr := metrics.New(registerer)

	procs := buildProcessors(cfg.PipelineApps)
	pl := pipeline.New(sconn, procs, func(msg *fix.Message) {
		mt, _ := msg.MsgType()
		logging.Infof("application message received: %s", mt)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pl.Start(ctx); err != nil {
		return withExitCode(exitProtocolError, fmt.Errorf("fixcli: start pipeline: %w", err))
	}

	if err := b.SubscribeInject(func(env broker.Envelope) {
		msg, err := env.ToMessage(dict)
		if err != nil {
			logging.Warnf("broker: dropped malformed inject envelope: %v", err)
			return
		}
		if err := pl.Send(msg); err != nil {
			logging.Warnf("broker: inject send failed: %v", err)
		}
	}); err != nil {
		return withExitCode(exitTransportFail, fmt.Errorf("fixcli: subscribe broker inject subject: %w", err))
	}

	var adminServer *http.Server
	if cfg.Admin.Enabled {
		router := admin.NewRouter(admin.Router{
			Dict:     dict,
			Sender:   pl,
			Status:   sconn,
			Verifier: verifier,
		})
		adminServer = &http.Server{Addr: cfg.Admin.Addr, Handler: router}
		go func() {
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Errorf("admin server: %v", err)
			}
		}()
		defer adminServer.Close()
	}

	readyToLogon := verifier == nil
	if verifier != nil {
		if _, err := verifier.Ready(cfg.Connection, cfg.Username, cfg.Password); err != nil {
			return withExitCode(exitConfigError, fmt.Errorf("fixcli: authentication not ready: %w", err))
		}
		readyToLogon = true
	}
	if readyToLogon {
		sconn.Target <- session.LoggedIn
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	var lastErr error
	for {
		select {
		case sig := <-signals:
			logging.Infof("received signal %s, logging out", sig)
			sconn.Target <- session.LogoutSent
			signal.Stop(signals)
			signals = nil // disable this case; shutdown is already underway

		case st, ok := <-sconn.State:
			if !ok {
				_ = session.StoreSeqNums(sidDir(*cfg), cfg.SenderCompID, cfg.TargetCompID, seqs)
				if lastErr == nil {
					return nil
				}
				return withExitCode(classifySessionErr(lastErr), lastErr)
			}
			logging.Infof("session state: %s", st)
			mtr.SetSessionState(int(st))
			if snap, err := sconn.Snapshot(ctx); err == nil {
				seqs = session.SeqNums{NextSend: snap.NextSend, NextExpect: snap.NextExpect}
			}

		case err, ok := <-sconn.Err:
			if !ok {
				continue
			}
			logging.Errorf("session error: %v", err)
			lastErr = err
		}
	}
}

func sidDir(cfg config.Config) string {
	if cfg.SidDir != "" {
		return cfg.SidDir
	}
	return "."
}

// openStore returns the sent-direction and received-direction message
// stores for cfg: two Store values sharing one BadgerDB handle when
// message_store is "badger", two independent MemoryStore values
// otherwise.
func openStore(cfg config.Config) (sent, recv session.MessageStore, closeFn func(), err error) {
	switch cfg.MessageStore {
	case "badger":
		db, err := badgerstore.Open(cfg.StoreDir)
		if err != nil {
			return nil, nil, nil, err
		}
		sent := badgerstore.New(db, cfg.Connection, badgerstore.Sent)
		recv := badgerstore.New(db, cfg.Connection, badgerstore.Received)
		return sent, recv, func() { db.Close() }, nil
	default:
		return session.NewMemoryStore(), session.NewMemoryStore(), func() {}, nil
	}
}

func buildProcessors(names []string) []pipeline.Processor {
	procs := make([]pipeline.Processor, 0, len(names))
	for _, name := range names {
		switch name {
		case "logging":
			procs = append(procs, pipeline.NewLoggingProcessor(name))
		default:
			logging.Warnf("fixcli: unknown pipeline app %q ignored", name)
		}
	}
	return procs
}
