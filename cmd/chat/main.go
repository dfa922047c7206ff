package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/farmachile/medagent/types"
)

// Simple CLI tool that sends one prompt to the chat server and prints
// the reply plus the filters the pipeline applied.
func main() {
	server := flag.String("server", "http://localhost:8080", "chat server base URL")
	session := flag.String("session", "", "session id (empty lets the server assign one)")
	prompt := flag.String("prompt", "farmacias de turno en santiago", "text prompt")
	flag.Parse()

	reqBody := types.PromptRequest{SessionID: *session, Prompt: *prompt}
	b, _ := json.Marshal(reqBody)

	req, _ := http.NewRequest(http.MethodPost, strings.TrimRight(*server, "/")+"/chat", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "HTTP error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		fmt.Fprintf(os.Stderr, "HTTP %d: %s\n", resp.StatusCode, string(data))
		os.Exit(2)
	}

	// Try to decode structured response; fallback to raw
	var pr types.PromptResponse
	if err := json.Unmarshal(data, &pr); err == nil && pr.Response != "" {
		fmt.Println(pr.Response)
		if len(pr.UsedFilters) > 0 {
			fmt.Println("\n--- filtros ---")
			for k, v := range pr.UsedFilters {
				fmt.Printf("%s: %s\n", k, v)
			}
		}
		if pr.Degraded {
			fmt.Println("\n(respuesta parcial: una fuente no estuvo disponible)")
		}
		fmt.Printf("\nsession=%s request=%s %.1fms\n", pr.SessionID, pr.RequestID, pr.ProcessingTime)
	} else {
		fmt.Println(string(data))
	}
}
