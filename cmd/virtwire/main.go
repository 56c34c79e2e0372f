package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/virtnet/virtwire/medium"
	"github.com/virtnet/virtwire/metrics"
	"github.com/virtnet/virtwire/transport"
)

var rootCmd = &cobra.Command{
	Use:   "virtwire",
	Short: "Virtual shared-medium PHY simulator.",
	Long: `virtwire simulates a broadcast transmission medium in memory.

Endpoints attach to the medium through duplex byte channels; anything one
endpoint transmits is delivered to every other endpoint, like a shared
Ethernet segment without the hardware.`,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a local broadcast demo until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoints, _ := cmd.Flags().GetInt("endpoints")
		bufCap, _ := cmd.Flags().GetInt("buffer")
		interval, _ := cmd.Flags().GetDuration("interval")
		metricsAddr, _ := cmd.Flags().GetString("metrics")

		if endpoints < 2 {
			return fmt.Errorf("need at least 2 endpoints, got %d", endpoints)
		}

		cfg := medium.DefaultConfig()
		cfg.BufferCapacity = bufCap
		col := metrics.NewPrometheus()
		cfg.Collector = col

		m, err := medium.New(cfg)
		if err != nil {
			return err
		}
		defer m.Shutdown()

		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", col.Handler())
			go func() {
				log.Printf("metrics on http://%s/metrics", metricsAddr)
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					log.Printf("metrics server: %v", err)
				}
			}()
		}

		ends := make([]*transport.MemChannel, endpoints)
		for i := range ends {
			user, wire := transport.Pair(0)
			id, err := m.Connect(wire)
			if err != nil {
				return err
			}
			ends[i] = user
			log.Printf("endpoint %d attached as %#x", i, uint64(id))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			if err := m.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("medium stopped: %v", err)
			}
		}()

		// Endpoint 0 transmits; the rest just count what arrives.
		go func() {
			seq := 0
			tick := time.NewTicker(interval)
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-tick.C:
					msg := fmt.Sprintf("frame %d from endpoint 0\n", seq)
					seq++
					if _, err := ends[0].TryWrite([]byte(msg)); err != nil {
						return
					}
				}
			}
		}()

		received := make([]int, endpoints)
		buf := make([]byte, 4096)
		report := time.NewTicker(2 * time.Second)
		defer report.Stop()
		for {
			select {
			case <-ctx.Done():
				stats := m.Stats()
				log.Printf("done: %d cycles, %d serviced, %d bytes dropped",
					stats.Cycles, stats.Serviced, stats.DroppedBytes)
				return nil
			case <-report.C:
				log.Printf("received per endpoint: %v (dropped %d bytes)", received, m.Drops())
			default:
				idle := true
				for i, end := range ends {
					n, err := end.TryRead(buf)
					if err == nil && n > 0 {
						received[i] += n
						idle = false
					}
				}
				if idle {
					time.Sleep(5 * time.Millisecond)
				}
			}
		}
	},
}

func main() {
	demoCmd.Flags().Int("endpoints", 3, "number of endpoints to attach")
	demoCmd.Flags().Int("buffer", 64*1024, "per-endpoint ring buffer capacity in bytes")
	demoCmd.Flags().Duration("interval", 250*time.Millisecond, "transmit interval for the demo sender")
	demoCmd.Flags().String("metrics", "", "address to serve Prometheus metrics on (empty = off)")
	rootCmd.AddCommand(demoCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
