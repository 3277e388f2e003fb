// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command streamparser-demo drives a length-prefixed-frame harness off
// stdin (or, with the serve subcommand, a TCP listener) and logs each
// decoded frame.
// It exists to exercise the library's ambient and domain stack end to
// end, not as a protocol of its own.
package main

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hybscloud/streamparser"
	"github.com/hybscloud/streamparser/examples"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streamparser-demo",
		Short: "Decode a stream of length-prefixed frames",
		Long:  `Reads length-prefixed frames off stdin or a TCP listener and logs each one, demonstrating the streamparser harness against a real transport.`,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.streamparser-demo.yaml)")
	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStdinCmd())
	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".streamparser-demo")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("STREAMPARSER")
	viper.AutomaticEnv()
	viper.SetDefault("listen_addr", ":9090")
	viper.SetDefault("metrics_addr", ":2112")
	viper.SetDefault("log_level", "info")
	_ = viper.ReadInConfig()
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func newMetrics() *streamparser.Metrics {
	reg := prometheus.NewRegistry()
	m := streamparser.NewMetrics(reg)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		_ = http.ListenAndServe(viper.GetString("metrics_addr"), mux)
	}()
	return m
}

func newStdinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdin",
		Short: "Decode length-prefixed frames from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			metrics := newMetrics()
			return decodeConn(os.Stdin, log, metrics)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Accept TCP connections and decode length-prefixed frames from each",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			metrics := newMetrics()

			addr := viper.GetString("listen_addr")
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			defer ln.Close()
			log.Info().Str("addr", addr).Msg("listening")

			for {
				conn, err := ln.Accept()
				if err != nil {
					return err
				}
				go func() {
					connID := uuid.New()
					connLog := log.With().Str("conn_id", connID.String()).Logger()
					if err := decodeConn(conn, connLog, metrics); err != nil && err != io.EOF {
						connLog.Error().Err(err).Msg("connection decode failed")
					}
				}()
			}
		},
	}
}

// decodeConn drives one streamparser.Harness over r, pushing whatever
// bytes r.Read yields until io.EOF, and logs each decoded frame.
func decodeConn(r interface {
	io.Reader
	io.Closer
}, log zerolog.Logger, metrics *streamparser.Metrics) error {
	defer r.Close()

	h, err := streamparser.NewHarness(
		examples.LenPrefixProtocol(func(m examples.LenPrefixMessage) {
			log.Info().Int("bytes", len(m.Payload)).Msg("frame decoded")
		}),
		streamparser.WithLogger(log),
		streamparser.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("new harness: %w", err)
	}

	buf := make([]byte, 4096)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if perr := h.Push(buf[:n]); perr != nil {
				return perr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return h.Push(nil)
			}
			return rerr
		}
	}
}
