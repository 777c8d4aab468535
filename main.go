/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/patina/engine"
	"github.com/spaghettifunk/patina/testbed"
)

func main() {
	configPath := flag.String("config", "patina.toml", "path to the runtime configuration")
	flag.Parse()

	app, err := testbed.NewDemoApp(*configPath)
	if err != nil {
		panic(err)
	}

	runtime, err := engine.New(app)
	if err != nil {
		panic(err)
	}

	if err := runtime.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = runtime.Shutdown()
	}()

	// run the reload loop
	if err := runtime.Run(); err != nil {
		panic(err)
	}
}
