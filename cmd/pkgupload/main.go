package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"pkgupload/internal/config"
	"pkgupload/internal/logger"
	"pkgupload/internal/tooling"
	"pkgupload/internal/uploader"

	"github.com/joho/godotenv"
)

var (
	verbose  = flag.Bool("v", false, "Enable debug logging.")
	nothing  = flag.Bool("n", false, "Don't upload anything, only login and check that the org has exactly one package.")
	describe = flag.String("describe", "", "Print field names of the given tooling sobject and exit.")
)

func main() {
	flag.Parse()
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(fmt.Errorf("load config failed: %w", err))
	}

	if *verbose {
		cfg.Logger.Level = slog.LevelDebug
	}
	logger.SetupDefault(os.Stderr, cfg.Logger)

	slog.Debug("config", "loginURL", cfg.Salesforce.LoginURL, "username", cfg.Salesforce.Username,
		"apiVersion", cfg.Salesforce.APIVersion, "upload", cfg.Upload)

	ctx := logger.Context(context.Background(), slog.Default())

	client, err := login(ctx, cfg.Salesforce)
	if err != nil {
		fatal(fmt.Errorf("login failed: %w", err))
	}

	switch {
	case *describe != "":
		err = describeObject(ctx, client, *describe)
	case *nothing:
		err = checkOnly(ctx, client)
	default:
		err = upload(ctx, client, cfg.Upload)
	}

	if err != nil {
		fatal(err)
	}
}

// fatal печатает ошибку как есть, в обход slog, и завершает процесс с кодом 1.
func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func login(ctx context.Context, cfg config.Salesforce) (*tooling.Client, error) {
	password, err := cfg.ResolvePassword()
	if err != nil {
		return nil, err
	}

	client, err := tooling.Login(ctx, newHTTPClient(cfg.HTTPTimeout), tooling.Credentials{
		LoginURL:   cfg.LoginURL,
		Username:   cfg.Username,
		Password:   password,
		APIVersion: cfg.APIVersion,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("logged in", "instance", client.InstanceURL())
	return client, nil
}

func upload(ctx context.Context, client *tooling.Client, cfg config.Upload) error {
	u := uploader.New(client, uploader.Options{
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
		Report:       os.Stdout,
	})
	_, err := u.Run(ctx, cfg.VersionName)
	return err
}

func checkOnly(ctx context.Context, client *tooling.Client) error {
	u := uploader.New(client, uploader.Options{Report: os.Stdout})
	pkg, err := u.Check(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("package: %s %s (namespace %q)\n", pkg.ID, pkg.Name, pkg.NamespacePrefix)
	return nil
}

func describeObject(ctx context.Context, client *tooling.Client, sobject string) error {
	fields, err := client.Describe(ctx, sobject)
	if err != nil {
		return err
	}
	for _, name := range fields {
		fmt.Println(name)
	}
	return nil
}

// newHTTPClient создаёт клиент с таймаутами на соединение и на весь запрос.
func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Transport: logger.Transport(slog.Default(), transport),
		Timeout:   timeout,
	}
}
