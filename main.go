package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"

	"github.com/cortezlab/pimetrics/metric"
	"github.com/cortezlab/pimetrics/schedule"
	"github.com/cortezlab/pimetrics/server"
)

var configPath = flag.String("config", "", "Path to the YAML config file. Empty runs the default collector set.")

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		glog.Exitf("Loading configuration: %v.", err)
	}

	reg := metric.NewRegistry()
	sched, err := schedule.New(reg)
	if err != nil {
		glog.Exitf("Creating scheduler: %v.", err)
	}

	for _, cc := range cfg.Collectors {
		c, err := newCollector(reg, cc)
		if err != nil {
			glog.Exitf("Configuring collector %q: %v.", cc.Type, err)
		}
		interval := cc.Interval.Duration
		if interval == 0 {
			interval = cfg.Interval.Duration
		}
		timeout := cc.Timeout.Duration
		if timeout == 0 {
			timeout = cfg.Timeout.Duration
		}
		sched.Add(c, schedule.Options{Interval: interval, Timeout: timeout})
		glog.Infof("collector %s enabled, interval %s", c.Name(), interval)
	}

	srv, err := server.New(cfg.serverConfig(), reg, sched.Healths)
	if err != nil {
		glog.Exitf("Creating exposition server: %v.", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopper := make(chan os.Signal, 1)
	signal.Notify(stopper, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stopper
		glog.Infof("received %s, shutting down", sig)
		cancel()
	}()

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	if err := srv.Run(ctx); err != nil {
		glog.Errorf("Exposition server failed: %v.", err)
		cancel()
		wg.Wait()
		os.Exit(1)
	}
	wg.Wait()
}
