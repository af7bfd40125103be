package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/damacus/cos-browser/internal/config"
	"github.com/damacus/cos-browser/internal/logger"
	"github.com/damacus/cos-browser/internal/models"
	"github.com/damacus/cos-browser/internal/operations"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/damacus/cos-browser/internal/utils"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var errBatchFailed = errors.New("failed for every item")

// factoryFunc picks the storage client factory for a backend name
type factoryFunc func(cfg config.StorageConfig) services.ClientFactory

type app struct {
	out     io.Writer
	errOut  io.Writer
	factory factoryFunc
	log     zerolog.Logger
	storage config.StorageConfig
}

func newApp(out, errOut io.Writer, factory factoryFunc) *cli.App {
	if factory == nil {
		factory = config.StorageConfig.Factory
	}
	a := &app{out: out, errOut: errOut, factory: factory, log: zerolog.Nop()}

	return &cli.App{
		Name:      "cosctl",
		Usage:     "Browse an S3-compatible object store",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "endpoint", Usage: "Storage endpoint URL or host:port", EnvVars: []string{"COS_ENDPOINT"}},
			&cli.StringFlag{Name: "region", Usage: "Storage region", EnvVars: []string{"COS_REGION"}},
			&cli.StringFlag{Name: "access-key", Usage: "Access key", EnvVars: []string{"COS_ACCESS_KEY"}},
			&cli.StringFlag{Name: "secret-key", Usage: "Secret key", EnvVars: []string{"COS_SECRET_KEY"}},
			&cli.IntFlag{Name: "timeout-ms", Usage: "Per-request timeout in milliseconds", EnvVars: []string{"COS_REQUEST_TIMEOUT_MS"}},
			&cli.StringFlag{Name: "backend", Usage: "Client implementation: minio or s3", EnvVars: []string{"COS_BACKEND"}},
			&cli.StringFlag{Name: "log-level", Usage: "Log level written to stderr", Value: "warn", EnvVars: []string{"LOG_LEVEL"}},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:   "buckets",
				Usage:  "List buckets",
				Action: a.buckets,
			},
			{
				Name:      "ls",
				Usage:     "List one folder level of a bucket",
				ArgsUsage: "BUCKET [PREFIX]",
				Action:    a.ls,
			},
			{
				Name:      "search",
				Usage:     "Find keys containing TERM anywhere in a bucket",
				ArgsUsage: "BUCKET TERM",
				Action:    a.search,
			},
			{
				Name:      "upload",
				Usage:     "Upload local files under PREFIX",
				ArgsUsage: "BUCKET PREFIX FILE...",
				Action:    a.upload,
			},
			{
				Name:      "download",
				Usage:     "Download keys into DIR",
				ArgsUsage: "BUCKET DIR KEY...",
				Action:    a.download,
			},
			{
				Name:      "rm",
				Usage:     "Delete keys",
				ArgsUsage: "BUCKET KEY...",
				Action:    a.rm,
			},
		},
	}
}

// setup merges the loaded configuration with any flags given on the command line
func (a *app) setup(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.storage = cfg.Storage

	if c.IsSet("endpoint") {
		a.storage.Endpoint = c.String("endpoint")
	}
	if c.IsSet("region") {
		a.storage.Region = c.String("region")
	}
	if c.IsSet("access-key") {
		a.storage.AccessKey = c.String("access-key")
	}
	if c.IsSet("secret-key") {
		a.storage.SecretKey = c.String("secret-key")
	}
	if c.IsSet("timeout-ms") {
		a.storage.RequestTimeoutMs = c.Int("timeout-ms")
	}
	if c.IsSet("backend") {
		a.storage.Backend = strings.ToLower(c.String("backend"))
		if a.storage.Backend != config.BackendMinio && a.storage.Backend != config.BackendS3 {
			return fmt.Errorf("unknown backend %q", c.String("backend"))
		}
	}

	a.log = logger.New(logger.Config{Level: c.String("log-level"), Output: a.errOut})
	return nil
}

func (a *app) connect(c *cli.Context) (*services.CloudStorageService, error) {
	creds, err := a.storage.Credentials()
	if err != nil {
		return nil, err
	}
	conn, err := a.storage.ConnectionConfig()
	if err != nil {
		return nil, err
	}

	auth := services.NewAuthService(a.factory(a.storage))
	client, err := auth.Connect(c.Context, creds, conn)
	if err != nil {
		return nil, err
	}
	return services.NewCloudStorageService(client, services.WithLogger(a.log))
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func (a *app) buckets(c *cli.Context) error {
	svc, err := a.connect(c)
	if err != nil {
		return err
	}
	names, err := svc.ListBuckets(c.Context)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(a.out, name)
	}
	return nil
}

func (a *app) ls(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	svc, err := a.connect(c)
	if err != nil {
		return err
	}
	items, err := svc.ListLocation(c.Context, models.At(c.Args().Get(0), c.Args().Get(1)))
	if err != nil {
		return err
	}
	return a.printItems(items)
}

func (a *app) search(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	svc, err := a.connect(c)
	if err != nil {
		return err
	}
	term := c.Args().Get(1)
	items, err := svc.SearchObjectsRecursively(c.Context, c.Args().Get(0), term)
	if err != nil {
		return err
	}
	if err := a.printItems(items); err != nil {
		return err
	}
	fmt.Fprintln(a.out, utils.SearchMessage(len(items), term))
	return nil
}

func (a *app) printItems(items []models.FileItem) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, item := range items {
		if item.IsFolder() {
			fmt.Fprintf(w, "DIR\t-\t-\t%s\n", item.Name())
			continue
		}
		modified := "-"
		if t, ok := item.LastModified(); ok {
			modified = t.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "FILE\t%s\t%s\t%s\n", utils.FormatSize(item.Size()), modified, item.Name())
	}
	return w.Flush()
}

func (a *app) batches(c *cli.Context) (*operations.Handler, error) {
	svc, err := a.connect(c)
	if err != nil {
		return nil, err
	}
	return operations.NewHandler(svc, operations.WithLogger(a.log))
}

func (a *app) upload(c *cli.Context) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}
	h, err := a.batches(c)
	if err != nil {
		return err
	}
	args := c.Args().Slice()
	bucket := args[0]
	l := operations.NewChannelListener(0)
	op, err := h.UploadFiles(c.Context, args[2:], bucket, models.At(bucket, args[1]).Prefix, l)
	if err != nil {
		return err
	}
	return a.follow(op, l)
}

func (a *app) download(c *cli.Context) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}
	h, err := a.batches(c)
	if err != nil {
		return err
	}
	args := c.Args().Slice()
	l := operations.NewChannelListener(0)
	op, err := h.DownloadFiles(c.Context, args[2:], args[0], args[1], l)
	if err != nil {
		return err
	}
	return a.follow(op, l)
}

func (a *app) rm(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	h, err := a.batches(c)
	if err != nil {
		return err
	}
	args := c.Args().Slice()
	l := operations.NewChannelListener(0)
	op, err := h.DeleteFiles(c.Context, args[1:], args[0], l)
	if err != nil {
		return err
	}
	return a.follow(op, l)
}

// follow prints every event of op and fails the command when the batch failed
func (a *app) follow(op *operations.Operation, l *operations.ChannelListener) error {
	var last operations.Event
	for ev := range l.Events() {
		fmt.Fprintf(a.out, "[%s] %s\n", ev.Type, ev.Message)
		last = ev
	}
	<-op.Done()
	if last.Type == operations.EventFailed {
		return fmt.Errorf("%s %s", op.Kind, errBatchFailed)
	}
	return nil
}
