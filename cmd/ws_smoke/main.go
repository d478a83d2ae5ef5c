package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
)

// Connects to the live notification stream and prints everything it
// receives. Useful for watching screening and approval events while
// poking the API from another terminal.
func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	token := flag.String("token", "", "bearer token (from create_test_user)")
	flag.Parse()

	if *token == "" {
		log.Fatal("-token is required")
	}

	url := fmt.Sprintf("ws://%s/ws/notifications?token=%s", *addr, *token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			fmt.Println(string(msg))
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
