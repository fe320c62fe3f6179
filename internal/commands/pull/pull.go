package pull

import (
	"os"
	"path"

	"github.com/Acr4niu5/beatsync-local/internal/client"
	"github.com/Acr4niu5/beatsync-local/internal/logging"
)

type Flags struct {
	Out   string
	Range string
}

// Run downloads key into flags.Out, or the key's base name when unset.
func Run(flags Flags, key string) {
	out := flags.Out
	if out == "" {
		out = path.Base(key)
	}

	f, err := os.Create(out)
	if err != nil {
		logging.Fatal("create output", logging.String("path", out), logging.Err(err))
	}

	dl, err := client.Pull(key, flags.Range, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		logging.Fatal("pull failed", logging.String("key", key), logging.Err(err))
	}

	fields := []logging.Field{
		logging.String("path", out),
		logging.Int64("bytes", dl.Written),
		logging.String("content_type", dl.ContentType),
	}
	if dl.ContentRange != "" {
		fields = append(fields, logging.String("content_range", dl.ContentRange))
	}
	logging.Info("file downloaded", fields...)
}
