package downloader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cschmidt0121/alsearch/internal/config"
	"github.com/cschmidt0121/alsearch/internal/searchclient"
)

const defaultChunkSize = 1000

// resultChunk represents a downloaded chunk of results
type resultChunk struct {
	index int
	data  []byte
}

type Downloader struct {
	client          *searchclient.Client
	accountID       string
	searchID        string
	outputMode      string
	maxConnections  int
	chunkSize       int
	releaseWhenDone bool
	filename        string
}

func NewDownloader(client *searchclient.Client, config config.DownloaderConfig) *Downloader {
	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	maxConnections := config.MaxConnections
	if maxConnections <= 0 {
		maxConnections = 1
	}

	return &Downloader{
		client:          client,
		accountID:       config.AccountID,
		searchID:        config.SearchID,
		outputMode:      config.OutputMode,
		maxConnections:  maxConnections,
		chunkSize:       chunkSize,
		releaseWhenDone: config.ReleaseWhenDone,
		filename:        config.Filename,
	}
}

func (d *Downloader) DownloadSearchResults(ctx context.Context) error {
	slog.Debug("Starting download process", "search_uuid", d.searchID, "output_mode", d.outputMode, "max_connections", d.maxConnections)

	if d.outputMode != "ndjson" && d.outputMode != "csv" {
		return fmt.Errorf("unsupported output mode %q", d.outputMode)
	}

	status, err := d.client.SearchStatus(ctx, d.accountID, d.searchID)
	if err != nil {
		return fmt.Errorf("failed to get search status: %w", err)
	}

	slog.Info("Search status retrieved", "search_uuid", d.searchID, "search_status", status.SearchStatus, "search_type", status.SearchType, "progress", status.Progress)

	if status.SearchStatus == searchclient.StatusFailed {
		return fmt.Errorf("search %s has failed: %s", d.searchID, status.StatusDetails)
	}
	if status.SearchStatus != searchclient.StatusComplete {
		return fmt.Errorf("search %s is not complete (status: %s, progress: %.1f%%)",
			d.searchID, status.SearchStatus, status.Progress)
	}

	total, known, err := d.countResults(ctx)
	if err != nil {
		return fmt.Errorf("failed to count results: %w", err)
	}

	if known {
		totalChunks := max((total+d.chunkSize-1)/d.chunkSize, 1)
		slog.Info("Starting download", "total_results", total, "total_chunks", totalChunks, "chunk_size", d.chunkSize, "max_connections", d.maxConnections)
		err = d.downloadChunks(ctx, totalChunks)
	} else {
		slog.Info("Result count unknown, paging by continuation token", "chunk_size", d.chunkSize)
		err = d.downloadByToken(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to download search: %w", err)
	}

	if d.releaseWhenDone {
		slog.Debug("Releasing search", "search_uuid", d.searchID)
		if _, err := d.client.ReleaseSearch(ctx, d.accountID, d.searchID); err != nil {
			return fmt.Errorf("failed to release search: %w", err)
		}
		slog.Debug("Search released successfully", "search_uuid", d.searchID)
	}

	slog.Info("Download completed successfully", "search_uuid", d.searchID, "filename", d.filename)
	return nil
}

// countResults asks for a single result to learn how many the search holds.
func (d *Downloader) countResults(ctx context.Context) (int, bool, error) {
	page, err := d.client.FetchRawSearchResults(ctx, d.accountID, d.searchID, &searchclient.ResultsQuery{
		Limit:  searchclient.Int(1),
		Offset: searchclient.Int(0),
	})
	if err != nil {
		return 0, false, err
	}

	switch {
	case page.Remaining != nil:
		return len(page.Results) + *page.Remaining, true, nil
	case page.Estimated != nil:
		return *page.Estimated, true, nil
	default:
		return 0, false, nil
	}
}

func (d *Downloader) downloadChunks(ctx context.Context, totalChunks int) error {
	slog.Debug("Initializing chunk download", "total_chunks", totalChunks)
	g, gctx := errgroup.WithContext(ctx)
	indexChan := make(chan int)
	chunkChan := make(chan resultChunk, 100)

	g.Go(func() error {
		defer close(indexChan)
		for i := 0; i < totalChunks; i++ {
			select {
			case indexChan <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		slog.Debug("All chunk offsets dispatched")
		return nil
	})

	var workerWg sync.WaitGroup
	slog.Debug("Starting worker goroutines", "worker_count", d.maxConnections)
	for range d.maxConnections {
		workerWg.Add(1)
		g.Go(func() error {
			defer workerWg.Done()
			return d.chunkWorker(gctx, indexChan, chunkChan)
		})
	}
	go func() {
		workerWg.Wait()
		close(chunkChan)
	}()

	g.Go(func() error { return d.collectChunks(chunkChan) })

	return g.Wait()
}

func (d *Downloader) chunkWorker(ctx context.Context, indexChan <-chan int, chunkChan chan<- resultChunk) error {
	for index := range indexChan {
		data, err := d.getChunk(ctx, &searchclient.ResultsQuery{
			Limit:  searchclient.Int(d.chunkSize),
			Offset: searchclient.Int(index * d.chunkSize),
		}, index)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", index, err)
		}

		select {
		case chunkChan <- resultChunk{index: index, data: data}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// downloadByToken pages sequentially, feeding each next_token back as starting_token.
func (d *Downloader) downloadByToken(ctx context.Context) error {
	chunkChan := make(chan resultChunk, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunkChan)
		var token *string
		for index := 0; ; index++ {
			query := &searchclient.ResultsQuery{Limit: searchclient.Int(d.chunkSize), StartingToken: token}
			page, err := d.client.FetchRawSearchResults(gctx, d.accountID, d.searchID, query)
			if err != nil {
				return fmt.Errorf("page %d: %w", index, err)
			}

			data, err := d.encodeChunk(gctx, page, query, index)
			if err != nil {
				return fmt.Errorf("page %d: %w", index, err)
			}
			select {
			case chunkChan <- resultChunk{index: index, data: data}:
			case <-gctx.Done():
				return gctx.Err()
			}

			if page.NextToken == nil || *page.NextToken == "" || len(page.Results) == 0 {
				return nil
			}
			if token != nil && *page.NextToken == *token {
				slog.Warn("Service repeated the continuation token, stopping", "search_uuid", d.searchID, "page", index)
				return nil
			}
			token = page.NextToken
		}
	})
	g.Go(func() error { return d.collectChunks(chunkChan) })

	return g.Wait()
}

func (d *Downloader) getChunk(ctx context.Context, query *searchclient.ResultsQuery, index int) ([]byte, error) {
	if d.outputMode == "csv" {
		body, err := d.client.FetchSearchResultsAsCSV(ctx, d.accountID, d.searchID, query)
		if err != nil {
			return nil, err
		}
		return stripCSVHeader(body, index), nil
	}

	page, err := d.client.FetchRawSearchResults(ctx, d.accountID, d.searchID, query)
	if err != nil {
		return nil, err
	}
	return encodeNDJSON(page.Results)
}

// encodeChunk renders a page fetched as JSON. CSV output refetches the same page as CSV.
func (d *Downloader) encodeChunk(ctx context.Context, page *searchclient.RawSearchResponse, query *searchclient.ResultsQuery, index int) ([]byte, error) {
	if d.outputMode == "csv" {
		return d.getChunk(ctx, query, index)
	}
	return encodeNDJSON(page.Results)
}

func stripCSVHeader(body []byte, index int) []byte {
	if index > 0 {
		// Remove the header line from every chunk but the first
		idx := bytes.IndexByte(body, '\n')
		if idx == -1 {
			return nil
		}
		body = body[idx+1:]
	}
	if len(body) > 0 && body[len(body)-1] != '\n' {
		body = append(body, '\n')
	}
	return body
}

// encodeNDJSON writes each record as received, compacted onto a single line.
func encodeNDJSON(results []json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	for _, result := range results {
		if err := json.Compact(&buf, result); err != nil {
			return nil, fmt.Errorf("error compacting result JSON: %w", err)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (d *Downloader) collectChunks(chunkChan <-chan resultChunk) error {
	slog.Debug("Starting chunk collector", "filename", d.filename)
	chunkBuf := make(map[int]resultChunk)

	outputFile, err := os.Create(d.filename)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer outputFile.Close()

	writer := bufio.NewWriter(outputFile)

	nextIndex := 0
	for chunk := range chunkChan {
		slog.Debug("Received chunk", "index", chunk.index, "expected_index", nextIndex, "buffered_chunks", len(chunkBuf))

		// Buffer chunks that arrive out of order
		chunkBuf[chunk.index] = chunk

		for bufferedChunk, exists := chunkBuf[nextIndex]; exists; bufferedChunk, exists = chunkBuf[nextIndex] {
			delete(chunkBuf, nextIndex)
			if _, err := writer.Write(bufferedChunk.data); err != nil {
				return fmt.Errorf("error writing output file: %w", err)
			}
			nextIndex++
			slog.Debug("Wrote chunk", "index", bufferedChunk.index, "chunks_written", nextIndex)
		}
	}

	slog.Debug("Chunk collector completed", "total_chunks_written", nextIndex, "filename", d.filename)
	return writer.Flush()
}
