package helpers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apiserver/pkg/server/healthz"
	"k8s.io/apiserver/pkg/server/mux"
	"k8s.io/klog"
)

// SignalContext returns a context cancelled on the first SIGINT or SIGTERM. A second
// signal exits the process.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	stopCh := make(chan os.Signal, 2)
	signal.Notify(stopCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-stopCh
		klog.Infof("Received %v, stopping at the next generation", sig)
		cancel()
		<-stopCh
		klog.Flush()
		os.Exit(1)
	}()

	return ctx
}

// StartHealthz serves the healthz endpoint on healthzBindAddress until ctx is done.
func StartHealthz(ctx context.Context, healthzBindAddress, name string) error {
	pathRecorderMux := mux.NewPathRecorderMux(name)
	healthz.InstallHandler(pathRecorderMux)

	return serve(ctx, healthzBindAddress, pathRecorderMux)
}

// StartMetrics serves the prometheus registry at /metrics on listenAddress until ctx is
// done.
func StartMetrics(ctx context.Context, listenAddress string) error {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	return serve(ctx, listenAddress, metricsMux)
}

func serve(ctx context.Context, address string, handler http.Handler) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	server := &http.Server{
		Addr:           listener.Addr().String(),
		Handler:        handler,
		MaxHeaderBytes: 1 << 20,
	}

	return runServer(ctx, server, listener)
}

func runServer(ctx context.Context, server *http.Server, ln net.Listener) error {
	if ln == nil || server == nil {
		return fmt.Errorf("listener and server must not be nil")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = server.Shutdown(shutdownCtx)
		cancel()
	}()

	go func() {
		defer utilruntime.HandleCrash()

		listener := tcpKeepAliveListener{ln.(*net.TCPListener)}

		err := server.Serve(listener)
		msg := fmt.Sprintf("Stopped listening on %s", listener.Addr().String())
		select {
		case <-ctx.Done():
			klog.Info(msg)
		default:
			klog.Errorf("%s due to error: %v", msg, err)
		}
	}()

	return nil
}

type tcpKeepAliveListener struct {
	*net.TCPListener
}

// Accept waits for and returns the next connection to the listener.
func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	_ = tc.SetKeepAlive(true)
	_ = tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
