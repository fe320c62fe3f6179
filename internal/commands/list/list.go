package list

import (
	"fmt"

	"github.com/Acr4niu5/beatsync-local/internal/client"
	"github.com/Acr4niu5/beatsync-local/internal/logging"
)

func Run() {
	tracks, err := client.ListDefaults()
	if err != nil {
		logging.Fatal("list failed", logging.Err(err))
	}
	if len(tracks) == 0 {
		fmt.Println("no default tracks")
		return
	}
	for _, t := range tracks {
		fmt.Println(t.URL)
	}
}
