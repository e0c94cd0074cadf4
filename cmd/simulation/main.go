package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Simplified payload view for the script
type streamPayload struct {
	Type     string          `json:"type"`
	ThreadID string          `json:"thread_id"`
	Message  string          `json:"message"`
	TopMatch json.RawMessage `json:"top_match"`
	Raw      json.RawMessage `json:"-"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:8787", "backend base URL")
	question := flag.String("question", "is it noise cancelling", "follow-up question to ask")
	wait := flag.Duration("wait", 45*time.Second, "how long to listen for payloads after each step")
	flag.Parse()

	sessionID := "sim-" + uuid.NewString()[:8]
	color.Cyan("=== ShoppingLens Simulation Client ===")
	fmt.Printf("Session: %s\n", sessionID)

	conn, err := dialStream(*baseURL, sessionID)
	if err != nil {
		log.Fatalf("Failed to open stream: %v", err)
	}
	defer conn.Close()

	payloads := make(chan streamPayload, 32)
	go readStream(conn, payloads)

	pickup := map[string]interface{}{
		"event_id":   uuid.NewString(),
		"event_type": "PICKUP_DETECTED",
		"confidence": 0.91,
		"frame_ref":  "simulation://frame/1",
		"search_seed": map[string]interface{}{
			"visible_text":  []string{"Sony", "WH-1000XM5"},
			"brand_hint":    "Sony",
			"category_hint": "headphones",
		},
	}

	steps := []struct {
		name string
		path string
		body interface{}
	}{
		{"pickup", "/api/sessions/v1/" + sessionID + "/pickup", pickup},
		{"question", "/api/sessions/v1/" + sessionID + "/question", map[string]string{"question": *question}},
		{"end", "/api/sessions/v1/" + sessionID + "/end", nil},
	}

	for _, step := range steps {
		color.Yellow("\n>> %s", strings.ToUpper(step.name))
		go func(path string, body interface{}) {
			start := time.Now()
			if err := post(*baseURL+path, body); err != nil {
				color.Red("request failed: %v", err)
				return
			}
			fmt.Printf("   (request finished in %v)\n", time.Since(start).Round(time.Millisecond))
		}(step.path, step.body)

		drain(payloads, *wait)
	}
}

func dialStream(baseURL, sessionID string) (*websocket.Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"sessionId": {sessionID}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

func readStream(conn *websocket.Conn, out chan<- streamPayload) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var p streamPayload
		if err := json.Unmarshal(data, &p); err != nil {
			color.Red("unreadable payload: %s", string(data))
			continue
		}
		p.Raw = data
		out <- p
	}
}

// drain prints payloads until the thread settles or the wait elapses.
func drain(payloads <-chan streamPayload, wait time.Duration) {
	timeout := time.After(wait)
	for {
		select {
		case p, ok := <-payloads:
			if !ok {
				return
			}
			printPayload(p)
			if p.Type == "ShoppingSummary" || p.Type == "AISummary" || (p.Type == "Info" && p.ThreadID == "") {
				return
			}
		case <-timeout:
			color.Red("   no more payloads after %v", wait)
			return
		}
	}
}

func printPayload(p streamPayload) {
	switch p.Type {
	case "Info":
		color.Blue("   [Info] %s", p.Message)
	case "ResearchResults":
		var pretty bytes.Buffer
		_ = json.Indent(&pretty, p.TopMatch, "   ", "  ")
		color.Green("   [ResearchResults] top match:\n   %s", pretty.String())
	case "ShoppingSummary", "AISummary":
		color.Magenta("   [%s] %s", p.Type, string(p.Raw))
	default:
		fmt.Printf("   [%s] %s\n", p.Type, string(p.Raw))
	}
}

func post(endpoint string, body interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, _ := http.NewRequest(http.MethodPost, endpoint, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
