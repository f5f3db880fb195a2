// Package main runs a demo WebSocket client for session analysis events.
//
// Usage: go run ./scripts/ws_client.go primary.json [secondary.json]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: ws_client PRIMARY.json [SECONDARY.json]")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a session
	resp, err := http.Post(base+"/v1/sessions", "application/json", nil)
	if err != nil {
		log.Fatal(err)
	}
	var sess struct {
		ID string `json:"id"`
	}
	err = json.NewDecoder(resp.Body).Decode(&sess)
	_ = resp.Body.Close()
	if err != nil || sess.ID == "" {
		log.Fatalf("create session: %v", err)
	}
	log.Printf("Session ID: %s", sess.ID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/sessions/" + sess.ID + "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m event
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			b, _ := json.Marshal(m.Data)
			log.Printf("WS <- %s: %s", m.Type, b)
		}
	}()

	// Load the documents; each load pushes an analysis.updated event
	slots := []string{"primary", "secondary"}
	for i, path := range os.Args[1:min(len(os.Args), 3)] {
		body, err := os.ReadFile(path)
		if err != nil {
			log.Fatal(err)
		}
		req, _ := http.NewRequest(http.MethodPut, base+"/v1/sessions/"+sess.ID+"/"+slots[i], bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatal(err)
		}
		_ = res.Body.Close()
		log.Printf("PUT %s -> %s", slots[i], res.Status)
		time.Sleep(200 * time.Millisecond)
	}

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
