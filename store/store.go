// Package store opens the gokv key-value backends used to persist fee estimates.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/philippgille/gokv"
	"github.com/philippgille/gokv/badgerdb"
	"github.com/philippgille/gokv/encoding"
	"github.com/philippgille/gokv/file"
	"github.com/philippgille/gokv/syncmap"
)

const (
	TypeSyncMap  = "syncmap"
	TypeFile     = "file"
	TypeBadgerDB = "badgerdb"
)

// Options is the JSON persistence options string shared by all backends. Fields
// a backend does not use are ignored.
type Options struct {
	// Directory for the file and badgerdb backends. Empty uses the backend's
	// default.
	Dir string `json:"dir"`
	// File backend only, e.g. "json". Empty uses the backend's default.
	FilenameExtension string `json:"file_name_extension"`
	// "json", "gob" or empty for the backend's default.
	Codec string `json:"codec"`
}

func parseOptions(optionsJSON string) (Options, error) {
	var options Options
	if optionsJSON == "" {
		return options, nil
	}
	if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
		return options, fmt.Errorf("json.Unmarshal err: %w", err)
	}
	return options, nil
}

func getStoreCodec(codec string) (encoding.Codec, error) {
	switch codec {
	case "":
		// gokv picks the backend default
		return nil, nil
	case "json":
		return encoding.JSON, nil
	case "gob":
		return encoding.Gob, nil
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec)
	}
}

// InitStore opens a store of persistenceType configured by the JSON string
// persistenceOptions. An empty options string uses the backend defaults.
func InitStore(persistenceType string, persistenceOptions string) (gokv.Store, error) {
	options, err := parseOptions(persistenceOptions)
	if err != nil {
		return nil, err
	}
	codec, err := getStoreCodec(options.Codec)
	if err != nil {
		return nil, fmt.Errorf("getStoreCodec err: %w", err)
	}

	switch persistenceType {
	case "", TypeSyncMap:
		syncMapOptions := syncmap.DefaultOptions
		if codec != nil {
			syncMapOptions.Codec = codec
		}
		return syncmap.NewStore(syncMapOptions), nil
	case TypeFile:
		fileOptions := file.DefaultOptions
		if options.Dir != "" {
			fileOptions.Directory = options.Dir
		}
		if options.FilenameExtension != "" {
			ext := options.FilenameExtension
			fileOptions.FilenameExtension = &ext
		}
		if codec != nil {
			fileOptions.Codec = codec
		}
		s, err := file.NewStore(fileOptions)
		if err != nil {
			return nil, fmt.Errorf("file.NewStore err: %w", err)
		}
		return s, nil
	case TypeBadgerDB:
		badgerOptions := badgerdb.DefaultOptions
		if options.Dir != "" {
			badgerOptions.Dir = options.Dir
		}
		if codec != nil {
			badgerOptions.Codec = codec
		}
		s, err := badgerdb.NewStore(badgerOptions)
		if err != nil {
			return nil, fmt.Errorf("badgerdb.NewStore err: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type %s", persistenceType)
	}
}
