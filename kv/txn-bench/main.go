package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minghui-liu/cmcs624-fall20/kv/config"
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/processor"
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
	"github.com/montanaflynn/stats"
	"github.com/ngaut/log"
	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configPath = flag.String("config", "", "config file path")
	mode       = flag.String("mode", "", "run only this mode, all modes if empty")
	statusAddr = flag.String("status-addr", "", "serve prometheus metrics on this address")
	seed       = flag.Int64("seed", 1, "workload random seed")
)

type result struct {
	mode       config.CCMode
	elapsed    time.Duration
	latencies  []float64
	procStats  processor.Stats
	totalDelta uint64
}

func main() {
	flag.Parse()
	conf, err := loadConfig()
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	log.SetLevelByString(conf.LogLevel)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Infof("conf %+v", conf)

	modes := config.AllModes
	if *mode != "" {
		m, err := config.ParseCCMode(*mode)
		if err != nil {
			log.Fatal(err)
		}
		modes = []config.CCMode{m}
	}

	if *statusAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Infof("listening on %v", *statusAddr)
			if err := http.ListenAndServe(*statusAddr, nil); err != nil {
				log.Fatal(err)
			}
		}()
	}
	handleSignal()

	for _, m := range modes {
		res, err := runMode(conf, m)
		if err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
		report(res, conf.Bench.Txns)
	}
}

func loadConfig() (*config.Config, error) {
	conf := config.NewDefaultConfig()
	if *configPath != "" {
		var err error
		if conf, err = config.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := conf.Bench.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// runMode runs the whole workload under m on a fresh processor and checks that every committed increment
// reached storage.
func runMode(base *config.Config, m config.CCMode) (*result, error) {
	conf := *base
	conf.Mode = m.String()
	p, err := processor.NewTxnProcessor(&conf)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	keys := benchKeys(conf.Bench.Keys)
	p.Preload(keys, txn.EncodeCounter(0))

	w := newWorkload(conf.Bench, *seed)
	submitted := make(map[*txn.Txn]time.Time, conf.Bench.Txns)
	start := time.Now()
	for i := 0; i < conf.Bench.Txns; i++ {
		t := w.next()
		submitted[t] = time.Now()
		p.NewTxnRequest(t)
	}

	res := &result{mode: m, latencies: make([]float64, 0, conf.Bench.Txns)}
	var wantDelta uint64
	for i := 0; i < conf.Bench.Txns; i++ {
		t := p.GetTxnResult()
		res.latencies = append(res.latencies, float64(time.Since(submitted[t]))/float64(time.Millisecond))
		if t.Status == txn.Committed {
			wantDelta += uint64(len(t.Writes))
		}
	}
	res.elapsed = time.Since(start)
	res.procStats = p.Stats()

	for _, key := range keys {
		value, _ := p.Get(key)
		res.totalDelta += txn.DecodeCounter(value)
	}
	if res.totalDelta != wantDelta {
		return nil, errors.Errorf("mode %v lost updates: storage holds %d increments, committed txns made %d",
			m, res.totalDelta, wantDelta)
	}
	return res, nil
}

func report(res *result, txns int) {
	mean, _ := stats.Mean(res.latencies)
	p50, _ := stats.Percentile(res.latencies, 50)
	p99, _ := stats.Percentile(res.latencies, 99)
	tps := float64(txns) / res.elapsed.Seconds()
	log.Infof("%-22s %10.0f txn/s  mean %.3fms  p50 %.3fms  p99 %.3fms  committed %d  aborted %d  restarted %d",
		res.mode, tps, mean, p50, p99, res.procStats.Committed, res.procStats.Aborted, res.procStats.Restarted)
}

func handleSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sigCh
		log.Infof("Got signal [%s] to exit.", sig)
		os.Exit(0)
	}()
}
