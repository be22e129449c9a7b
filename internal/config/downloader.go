package config

type DownloaderConfig struct {
	AccountID       string // account the search belongs to
	SearchID        string // the search_uuid to download results from
	OutputMode      string // ndjson, csv
	MaxConnections  int    // max concurrent connections to use for downloading results
	ChunkSize       int    // results requested per fetch
	ReleaseWhenDone bool   // release the search when done downloading
	Filename        string // the filename to save the results to
}
