package push

import (
	"github.com/Acr4niu5/beatsync-local/internal/client"
	"github.com/Acr4niu5/beatsync-local/internal/logging"
)

type Flags struct {
	Room        string
	ContentType string
}

// Run uploads every file in args into the room and prints the resulting URLs.
func Run(flags Flags, args []string) {
	if flags.Room == "" {
		logging.Fatal("a room is required, pass --room")
	}

	for _, file := range args {
		logging.Info("pushing", logging.String("file", file), logging.String("room", flags.Room))
		resp, err := client.Push(flags.Room, file, flags.ContentType)
		if err != nil {
			logging.Fatal("push failed", logging.String("file", file), logging.Err(err))
		}
		logging.Info("pushed", logging.String("url", resp.URL))
	}
}
