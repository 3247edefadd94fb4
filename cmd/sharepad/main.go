package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	"github.com/ilnaes/sharepad/internal/client"
	"github.com/ilnaes/sharepad/internal/common"
	"github.com/ilnaes/sharepad/internal/config"
	"github.com/ilnaes/sharepad/internal/rpc"
	"github.com/ilnaes/sharepad/internal/server"
)

const SharepadVersion = "0.1.0"

func main() {
	usage := `Sharepad: shared documents with one writer at a time.

Settings are read from the environment and an optional .env file
(SHAREPAD_ADDR, SHAREPAD_DIR, SHAREPAD_STORE, SHAREPAD_MONGO_URI,
SHAREPAD_MONGO_DATABASE, SHAREPAD_CALLBACK_TIMEOUT, SHAREPAD_WRITE_TIMEOUT).
Flags override them.

Usage:
    sharepad serve [--addr=<addr>] [--dir=<dir>] [--store=<store>] [--env=<env>] [--verbose=<level>]
    sharepad list [--server=<url>] [--env=<env>] [--verbose=<level>]
    sharepad cat <name> [--server=<url>] [--env=<env>] [--verbose=<level>]
    sharepad new <name> [--server=<url>] [--env=<env>] [--verbose=<level>]
    sharepad append <name> <text> [--server=<url>] [--env=<env>] [--verbose=<level>]
    sharepad watch <name> [--server=<url>] [--env=<env>] [--verbose=<level>]

Options:
    -h --help            Show this screen.
    --version            Show version.
    --addr=<addr>        Listen address.
    --dir=<dir>          Document directory for the file store.
    --store=<store>      file or mongo.
    --server=<url>       Server websocket url, ws://<addr>/notepad by default.
    --env=<env>          Env file [default: .env].
    --verbose=<level>    Log verbosity [default: 0].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], SharepadVersion)
	if err != nil {
		panic(err)
	}

	setupLogging(opts)
	defer glog.Flush()

	envFile, _ := opts.String("--env")
	cfg, err := config.Load(envFile)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serve_, _ := opts.Bool("serve"); serve_ {
		err = serve(ctx, opts, cfg)
	} else if list_, _ := opts.Bool("list"); list_ {
		err = withController(ctx, opts, cfg, list)
	} else if cat_, _ := opts.Bool("cat"); cat_ {
		err = withController(ctx, opts, cfg, cat)
	} else if new_, _ := opts.Bool("new"); new_ {
		err = withController(ctx, opts, cfg, create)
	} else if append_, _ := opts.Bool("append"); append_ {
		err = withController(ctx, opts, cfg, appendLine)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		err = withController(ctx, opts, cfg, watch)
	}
	if err != nil {
		fatal(err)
	}
}

func setupLogging(opts docopt.Opts) {
	flag.Set("logtostderr", "true")
	if level, err := opts.String("--verbose"); err == nil {
		flag.Set("v", level)
	}
	flag.CommandLine.Parse([]string{})
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "sharepad: %s\n", err)
	glog.Flush()
	os.Exit(1)
}

func override(opts docopt.Opts, key string, dst *string) {
	if v, err := opts.String(key); err == nil && v != "" {
		*dst = v
	}
}

func serve(ctx context.Context, opts docopt.Opts, cfg config.Config) error {
	override(opts, "--addr", &cfg.Addr)
	override(opts, "--dir", &cfg.Dir)
	override(opts, "--store", &cfg.Store)

	var storage server.Storage
	switch cfg.Store {
	case config.StoreMongo:
		m, err := server.NewMongoStorage(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer m.Close(context.Background())
		storage = m
	case config.StoreFile:
		f, err := server.NewFileStorage(cfg.Dir)
		if err != nil {
			return err
		}
		storage = f
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}

	settings := server.DefaultSettings()
	settings.CallbackTimeout = cfg.CallbackTimeout

	s, err := server.NewServer(ctx, settings, storage, server.NewDirectory())
	if err != nil {
		return err
	}

	rpcSettings := rpc.DefaultSettings()
	rpcSettings.WriteTimeout = cfg.WriteTimeout

	return server.Run(ctx, s, cfg.Addr, rpcSettings)
}

// withController connects a notepad for the duration of fn
func withController(ctx context.Context, opts docopt.Opts, cfg config.Config, fn func(context.Context, docopt.Opts, *client.Controller) error) error {
	url := fmt.Sprintf("ws://%s%s", cfg.Addr, server.NotepadPath)
	override(opts, "--server", &url)

	settings := rpc.DefaultSettings()
	settings.WriteTimeout = cfg.WriteTimeout

	c, err := client.Connect(ctx, url, settings)
	if err != nil {
		return err
	}

	err = fn(ctx, opts, c)
	// the interrupt may have cancelled ctx
	if serr := c.Shutdown(context.Background()); err == nil {
		err = serr
	}
	return err
}

func list(ctx context.Context, opts docopt.Opts, c *client.Controller) error {
	names, err := c.DocumentList(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func cat(ctx context.Context, opts docopt.Opts, c *client.Controller) error {
	name, _ := opts.String("<name>")
	if err := c.Open(ctx, name); err != nil {
		return err
	}
	fmt.Println(c.Document().String())
	return nil
}

func create(ctx context.Context, opts docopt.Opts, c *client.Controller) error {
	name, _ := opts.String("<name>")
	return c.New(ctx, name)
}

func appendLine(ctx context.Context, opts docopt.Opts, c *client.Controller) error {
	name, _ := opts.String("<name>")
	text, _ := opts.String("<text>")

	if err := c.Open(ctx, name); err != nil {
		return err
	}
	ok, err := c.TryLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is locked by another notepad", name)
	}

	c.Edit(func(doc *common.Document) {
		last := doc.SelectLine(doc.Size() - 1)
		if doc.Size() == 1 && last.Len() == 0 {
			last.SetText(text)
		} else {
			doc.InsertLine().SetText(text)
		}
	})

	if _, err := c.Save(ctx); err != nil {
		return err
	}
	return c.Unlock(ctx)
}

func watch(ctx context.Context, opts docopt.Opts, c *client.Controller) error {
	name, _ := opts.String("<name>")

	if err := c.Open(ctx, name); err != nil {
		return err
	}

	// the view is rebuilt from the edit scripts alone
	var mu sync.Mutex
	lines := c.Document().Lines()
	fmt.Println(strings.Join(lines, "\n"))

	gone := make(chan string, 1)
	c.OnReplace(func(ev client.Event) {
		if ev.Document == nil {
			select {
			case gone <- ev.Source:
			default:
			}
			return
		}

		mu.Lock()
		defer mu.Unlock()
		fmt.Printf("--- %s (%s)\n", ev.Name, ev.Source)
		for _, op := range ev.Changes {
			if op.Add {
				fmt.Printf("+%d %s\n", op.Loc, op.Text)
			} else {
				fmt.Printf("-%d\n", op.Loc)
			}
		}
		lines = common.ApplyLines(lines, ev.Changes)
		if want := ev.Document.Lines(); !slices.Equal(lines, want) {
			glog.Errorf("[c]watch of %s out of step, resyncing\n", ev.Name)
			lines = want
		}
		fmt.Println(strings.Join(lines, "\n"))
	})

	select {
	case <-ctx.Done():
		return nil
	case source := <-gone:
		return fmt.Errorf("%w: dropped by %s", common.ErrConnectivity, source)
	}
}
