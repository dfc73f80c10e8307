package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	serverURL = envOr("MEALBASKET_URL", "http://localhost:8080")
	authToken = envOr("MEALBASKET_AUTH_TOKEN", "super-secret-token")
)

type MCPRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type toolResult struct {
	IsError           bool            `json:"isError"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	Content           []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type lineView struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
}

type basketResponse struct {
	BasketID string     `json:"basket_id"`
	Lines    []lineView `json:"lines"`
	Report   struct {
		Coverage struct {
			Calories float64 `json:"calories"`
		} `json:"coverage"`
		Cost string `json:"cost"`
	} `json:"report"`
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	fmt.Printf("🧪 Meal Basket MCP Server acceptance test against %s\n\n", serverURL)

	steps := []struct {
		name string
		run  func() error
	}{
		{"health endpoint (no auth)", testHealth},
		{"MCP endpoint rejects missing and wrong tokens", testAuthRejected},
		{"MCP initialize with correct token", testInitialize},
		{"plan, substitute, revert and export a basket", testBasketFlow},
		{"concurrent planning", testConcurrentPlanning},
	}

	for i, step := range steps {
		fmt.Printf("%d. Testing %s...\n", i+1, step.name)
		start := time.Now()
		if err := step.run(); err != nil {
			fmt.Printf("❌ %s failed: %v\n", step.name, err)
			os.Exit(1)
		}
		fmt.Printf("✅ passed (%.3fs)\n\n", time.Since(start).Seconds())
	}

	fmt.Printf("🎉 All acceptance tests passed!\n")
}

func testHealth() error {
	resp, err := http.Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	return nil
}

func testAuthRejected() error {
	for _, token := range []string{"", "wrong-api-key"} {
		status, _, err := post(token, initializeRequest())
		if err != nil {
			return err
		}
		if status != http.StatusUnauthorized {
			return fmt.Errorf("token %q: expected status 401, got %d", token, status)
		}
	}
	return nil
}

func testInitialize() error {
	status, body, err := post(authToken, initializeRequest())
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("expected status 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), "serverInfo") {
		return fmt.Errorf("response doesn't contain expected MCP initialize result")
	}
	return nil
}

func testBasketFlow() error {
	var planned basketResponse
	if err := callTool(1, "plan_basket", map[string]any{"days": 3, "household_size": 2, "budget": 1500}, &planned); err != nil {
		return err
	}
	if len(planned.Lines) == 0 {
		return fmt.Errorf("planned basket has no lines")
	}
	if c := planned.Report.Coverage.Calories; c < 80 || c > 110 {
		return fmt.Errorf("calorie coverage %.1f%% out of range", c)
	}
	fmt.Printf("   ✓ planned %d lines, %.1f%% calories, cost %s\n", len(planned.Lines), planned.Report.Coverage.Calories, planned.Report.Cost)

	line := planned.Lines[0]
	var alternatives struct {
		Alternatives []struct {
			Product struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"product"`
		} `json:"alternatives"`
	}
	if err := callTool(2, "find_alternatives", map[string]any{"basket_id": planned.BasketID, "line_id": line.ID}, &alternatives); err != nil {
		return err
	}
	fmt.Printf("   ✓ %d alternatives for %s\n", len(alternatives.Alternatives), line.Name)

	if len(alternatives.Alternatives) > 0 {
		replacement := alternatives.Alternatives[0].Product
		var changed struct {
			Lines []lineView `json:"lines"`
		}
		err := callTool(3, "substitute_line", map[string]any{
			"basket_id":  planned.BasketID,
			"line_id":    line.ID,
			"product_id": replacement.ID,
		}, &changed)
		if err != nil {
			return err
		}
		if len(changed.Lines) != 1 || changed.Lines[0].ProductID != replacement.ID {
			return fmt.Errorf("substitution not applied: %+v", changed.Lines)
		}

		if err := callTool(4, "revert_line", map[string]any{"basket_id": planned.BasketID, "line_id": line.ID}, &changed); err != nil {
			return err
		}
		if changed.Lines[0].ProductID != line.ProductID {
			return fmt.Errorf("revert restored %s, want %s", changed.Lines[0].ProductID, line.ProductID)
		}
		fmt.Printf("   ✓ substituted %s and reverted\n", replacement.Name)
	}

	var export struct {
		Content string `json:"content"`
	}
	if err := callTool(5, "export_basket", map[string]any{"basket_id": planned.BasketID, "format": "csv"}, &export); err != nil {
		return err
	}
	if !strings.Contains(export.Content, "TOTAL") {
		return fmt.Errorf("csv export has no totals row")
	}
	return nil
}

func testConcurrentPlanning() error {
	for _, concurrency := range []int{2, 5, 10} {
		var wg sync.WaitGroup
		errs := make(chan error, concurrency)
		start := time.Now()

		for client := 0; client < concurrency; client++ {
			wg.Add(1)
			go func(client int) {
				defer wg.Done()
				var planned basketResponse
				args := map[string]any{"days": 1 + client%7, "exclusions": []string{[]string{"vegan", "lactose", "gluten"}[client%3]}}
				if err := callTool(100+client, "plan_basket", args, &planned); err != nil {
					errs <- fmt.Errorf("client %d: %w", client, err)
				}
			}(client)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			return err
		}
		fmt.Printf("   ✓ %d concurrent clients in %.3fs\n", concurrency, time.Since(start).Seconds())
	}
	return nil
}

func initializeRequest() MCPRequest {
	return MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-06-18",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]string{"name": "acceptance", "version": "1.0.0"},
		},
	}
}

func post(token string, req MCPRequest) (int, []byte, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return 0, nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, serverURL+"/mcp", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// callTool runs a tool and decodes its structured content into out
func callTool(id int, name string, args map[string]any, out any) error {
	status, body, err := post(authToken, MCPRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params:  CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: expected status 200, got %d: %s", name, status, body)
	}

	var response struct {
		Result *toolResult `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("%s: failed to parse MCP response JSON: %w", name, err)
	}
	if response.Error != nil {
		return fmt.Errorf("%s: %s", name, response.Error.Message)
	}
	if response.Result == nil {
		return fmt.Errorf("%s: MCP response missing result field", name)
	}
	if response.Result.IsError {
		msg := ""
		if len(response.Result.Content) > 0 {
			msg = response.Result.Content[0].Text
		}
		return fmt.Errorf("%s returned a tool error: %s", name, msg)
	}
	return json.Unmarshal(response.Result.StructuredContent, out)
}
