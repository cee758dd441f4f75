package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ehrlich-b/go-aio"
	"github.com/ehrlich-b/go-aio/internal/logging"
	"github.com/ehrlich-b/go-aio/internal/reactor"
	"github.com/ehrlich-b/go-aio/internal/resolver"
)

func main() {
	var (
		verbose   = flag.Bool("v", false, "Verbose output")
		threads   = flag.Int("threads", 0, "Worker thread count (0 = GOMAXPROCS)")
		writePath = flag.String("write-file", "", "Write a demo payload to this path")
		readPath  = flag.String("read-file", "", "Read back the file written via -write-file")
		host      = flag.String("dns-lookup", "", "Resolve this hostname asynchronously")
		service   = flag.String("service", "https", "Service name passed to -getaddrinfo")
		addrinfo  = flag.String("getaddrinfo", "", "Resolve this hostname via GetAddrInfo")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	var opts []aio.Option
	if *threads > 0 {
		opts = append(opts, aio.WithThreadNum(*threads))
	}

	var wg sync.WaitGroup
	cb := func(t *aio.Task) {
		defer wg.Done()
		reportCompletion(logger, t)
	}
	opts = append(opts, aio.WithCallback(cb))

	r, err := reactor.New()
	if err != nil {
		logger.Error("failed to create reactor", "err", err)
		os.Exit(1)
	}
	defer r.Close()
	opts = append(opts, aio.WithReactor(r))

	if err := aio.Init(opts...); err != nil {
		logger.Error("failed to initialize engine", "err", err)
		os.Exit(1)
	}
	r.Start()
	defer r.Stop()
	defer func() {
		if err := aio.Free(); err != nil {
			logger.Error("failed to free engine", "err", err)
		}
	}()

	submitted := 0

	if *writePath != "" {
		f, err := os.OpenFile(*writePath, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open write-file", "path", *writePath, "err", err)
			os.Exit(1)
		}
		defer f.Close()

		payload := []byte(fmt.Sprintf("go-aio demo payload at %s\n", time.Now().Format(time.RFC3339)))
		wg.Add(1)
		submitted++
		if _, err := aio.DefaultEngine().WriteAt(int(f.Fd()), payload, len(payload), 0); err != nil {
			logger.Error("failed to dispatch write", "err", err)
			os.Exit(1)
		}
	}

	if *readPath != "" {
		f, err := os.Open(*readPath)
		if err != nil {
			logger.Error("failed to open read-file", "path", *readPath, "err", err)
			os.Exit(1)
		}
		defer f.Close()

		buf := make([]byte, 4096)
		wg.Add(1)
		submitted++
		if _, err := aio.DefaultEngine().Read(int(f.Fd()), buf, len(buf), 0); err != nil {
			logger.Error("failed to dispatch read", "err", err)
			os.Exit(1)
		}
	}

	if *host != "" {
		buf := make([]byte, aio.DefaultDNSBufferSize)
		wg.Add(1)
		submitted++
		if _, err := aio.DNSLookup(*host, resolver.FamilyAny, buf); err != nil {
			logger.Error("failed to dispatch DNS lookup", "err", err)
			os.Exit(1)
		}
	}

	if *addrinfo != "" {
		wg.Add(1)
		submitted++
		if _, err := aio.GetAddrInfo(*addrinfo, *service, aio.AddrInfoHints{Family: resolver.FamilyAny}); err != nil {
			logger.Error("failed to dispatch getaddrinfo", "err", err)
			os.Exit(1)
		}
	}

	if submitted == 0 {
		fmt.Println("nothing to do: pass -write-file, -read-file, -dns-lookup, or -getaddrinfo")
		flag.Usage()
		os.Exit(1)
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-waitDone:
		logger.Info("all tasks completed")
	case <-sigCh:
		logger.Info("received shutdown signal before all tasks completed")
	case <-time.After(10 * time.Second):
		logger.Info("timed out waiting for task completion")
	}
}

func reportCompletion(logger *logging.Logger, t *aio.Task) {
	if t.Err != nil {
		logger.Error("task failed", "id", t.ID, "type", t.Type.String(), "err", t.Err)
		return
	}
	switch t.Type {
	case aio.DNSLookup:
		logger.Info("dns lookup completed", "id", t.ID, "addr", t.Addr())
	case aio.GetAddrInfo:
		results := 0
		if t.Req != nil {
			results = len(t.Req.Results)
		}
		logger.Info("getaddrinfo completed", "id", t.ID, "results", results, "first", t.AddrPort().String())
	default:
		logger.Info("task completed", "id", t.ID, "type", t.Type.String(), "bytes", t.Ret)
	}
}
