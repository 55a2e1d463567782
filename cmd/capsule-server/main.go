package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/VanDung-dev/ArrowCapsule/column"
	"github.com/VanDung-dev/ArrowCapsule/transport"
)

func sampleSource() transport.Source {
	return transport.SourceFunc(func() (*column.Handle, error) {
		buf, err := column.NewInt32(memory.DefaultAllocator,
			[]int32{10, 20, 0, 40, 50}, []bool{true, true, false, true, true})
		if err != nil {
			return nil, err
		}
		return column.NewHandle(column.Int32, buf), nil
	})
}

func main() {
	endpoint := flag.String("endpoint", "tcp://127.0.0.1:5656", "endpoint to serve column batches on")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	server := transport.NewServer(sampleSource(), log)
	if err := server.Start(*endpoint); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	server.Stop()
}
