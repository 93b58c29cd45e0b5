// Package main runs a demo WebSocket client: it uploads a scenario, queues a
// solve and prints the run's progress events.
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
	Data map[string]any `json:"data,omitempty"`
}

func post(base, path, contentType string, body []byte, out any) {
	req, _ := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Tenant-Id", "t_demo")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		log.Fatalf("POST %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Fatal(err)
	}
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)
	path := "internal/scenario/testdata/two_stops.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	var sc struct{ ID string `json:"id"` }
	post(base, "/v1/scenarios", "application/yaml", doc, &sc)
	log.Printf("Scenario ID: %s", sc.ID)

	body, _ := json.Marshal(map[string]any{"scenarioId": sc.ID, "timeBudgetMs": 1000})
	var run struct {
		RunID string `json:"runId"`
	}
	post(base, "/v1/solve", "application/json", body, &run)
	log.Printf("Run ID: %s", run.RunID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + run.RunID + "/events"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	deadline := time.Now().Add(30 * time.Second)
	for {
		_ = c.SetReadDeadline(deadline)
		var evt event
		if err := c.ReadJSON(&evt); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			log.Fatalf("read: %v", err)
		}
		data, _ := json.Marshal(evt.Data)
		log.Printf("WS <- %s: %s", evt.Type, data)
	}
}
