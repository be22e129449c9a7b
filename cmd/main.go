package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/cschmidt0121/alsearch/internal/config"
	"github.com/cschmidt0121/alsearch/internal/downloader"
	"github.com/cschmidt0121/alsearch/internal/searchclient"
	"github.com/cschmidt0121/alsearch/internal/transport"
)

const usage = "Usage: alsearch [options] <output-file.[ndjson|csv]>"

func main() {
	clientConfig, err := config.LoadClientConfig()
	if err != nil {
		slog.Error("Failed to load configuration from environment", "error", err)
		os.Exit(1)
	}

	query := flag.String("query", "", "The search query to submit, as a JSON document")
	dataType := flag.String("datatype", "logmsgs", "The data type to search")
	sid := flag.String("sid", "", "An already-completed search ID to download from.")
	account := flag.StringP("account", "a", clientConfig.AccountID, "The account ID to search in")
	endpoint := flag.String("endpoint", clientConfig.Endpoint, "The API endpoint to use")
	token := flag.String("token", "", "The auth token to use")
	ttl := flag.Duration("ttl", clientConfig.ResultsTTL, "How long fetched results may be served from cache (0 always revalidates)")
	pollInterval := flag.Duration("poll-interval", 3*time.Second, "How often to check the status of a submitted search")
	readMessages := flag.StringSlice("read-messages", nil, "Message IDs to read instead of downloading a search")
	fields := flag.StringSlice("fields", nil, "Restrict --read-messages to these fields")
	releaseWhenDone := flag.BoolP("release-when-done", "r", false, "Set this to release the search when done downloading. Off by default")
	concurrency := flag.Int("max-connections", 8, "The maximum number of concurrent connections to use for downloading results")
	chunkSize := flag.Int("chunk-size", 1000, "The number of results to request per fetch")
	insecure := flag.BoolP("insecure", "k", false, "Set this to ignore TLS verification")
	verbose := flag.BoolP("verbose", "v", false, "Enable verbose logging")
	help := flag.BoolP("help", "h", false, "Show help")
	flag.Parse()

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelInfo)
	}

	if *help {
		fmt.Println(usage)
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *token != "" {
		clientConfig.Auth.Token = *token
	}
	if clientConfig.Auth.Token == "" {
		fmt.Println("No auth token provided. Set AL_AUTH_TOKEN or use --token.")
		os.Exit(1)
	}
	if *account == "" {
		fmt.Println("No account provided. Set AL_ACCOUNT_ID or use --account.")
		os.Exit(1)
	}
	clientConfig.AccountID = *account
	clientConfig.Endpoint = *endpoint
	clientConfig.ResultsTTL = *ttl
	if *insecure {
		clientConfig.VerifyTLS = false
	}

	executor, err := transport.NewExecutor(clientConfig)
	if err != nil {
		slog.Error("Failed to create transport", "error", err)
		os.Exit(1)
	}
	client := searchclient.NewClient(executor, clientConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(*readMessages) > 0 {
		messages, err := client.ReadMessages(ctx, *account, *readMessages, *fields)
		if err != nil {
			slog.Error("Failed to read messages", "error", err)
			os.Exit(1)
		}
		os.Stdout.Write(messages)
		fmt.Println()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Println("No output file specified")
		fmt.Println(usage)
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *query == "" && *sid == "" {
		fmt.Println("You must provide either a search query or a search ID. Use alsearch --help for more information.")
		os.Exit(1)
	}

	filename := args[0]
	var outputMode string
	switch ext := filepath.Ext(filename); ext {
	case ".ndjson", ".json":
		outputMode = "ndjson"
	case ".csv":
		outputMode = "csv"
	default:
		fmt.Println("Output file must have .ndjson or .csv extension")
		os.Exit(1)
	}

	if *sid == "" {
		var searchQuery json.RawMessage
		if err := json.Unmarshal([]byte(*query), &searchQuery); err != nil {
			slog.Error("Search query is not valid JSON", "error", err)
			os.Exit(1)
		}

		job, err := client.SubmitSearch(ctx, *account, *dataType, searchQuery)
		if err != nil {
			slog.Error("Failed to submit search", "error", err)
			os.Exit(1)
		}
		*sid = job.SearchUUID
		slog.Info("Submitted search", "search_uuid", *sid, "search_status", job.SearchStatus)
		slog.Info("Waiting for search to complete")
		if _, err := client.WaitUntilSearchIsDone(ctx, *account, *sid, *pollInterval); err != nil {
			slog.Error("Failed while waiting for search to complete", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Downloading search results", "search_uuid", *sid)

	downloaderConfig := config.DownloaderConfig{
		AccountID:       *account,
		SearchID:        *sid,
		OutputMode:      outputMode,
		MaxConnections:  *concurrency,
		ChunkSize:       *chunkSize,
		ReleaseWhenDone: *releaseWhenDone,
		Filename:        filename,
	}
	downloader := downloader.NewDownloader(client, downloaderConfig)

	if err := downloader.DownloadSearchResults(ctx); err != nil {
		slog.Error("Failed to download search results", "error", err)
		os.Exit(1)
	}

	slog.Info("Downloaded search results", "filename", filename)
}
