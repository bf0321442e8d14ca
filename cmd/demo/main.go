package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
)

type apiResponse struct {
	Status     string            `json:"status"`
	Value      string            `json:"value"`
	Error      string            `json:"error"`
	Partitions []json.RawMessage `json:"partitions"`
	Ranges     []json.RawMessage `json:"ranges"`
}

func call(method, base, container, op, body string) apiResponse {
	endpoint := base + "/api/containers/" + url.PathEscape(container) + "/" + op

	var resp *http.Response
	var err error

	switch method {
	case http.MethodGet:
		fmt.Printf("[client] GET  %s %s\n", op, body)
		if body != "" {
			endpoint += "?pk=" + url.QueryEscape(body)
		}
		resp, err = http.Get(endpoint)
	case http.MethodPost:
		fmt.Printf("[client] POST %s %s\n", op, body)
		resp, err = http.Post(endpoint, "application/json", strings.NewReader(body))
	default:
		log.Printf("unsupported method: %s\n", method)
		return apiResponse{}
	}

	if err != nil {
		log.Println(op, "error:", err)
		return apiResponse{}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	fmt.Printf("[client] %d %s\n", resp.StatusCode, strings.TrimSpace(string(raw)))

	var out apiResponse
	_ = json.Unmarshal(raw, &out)
	return out
}

func pause(msg string) {
	fmt.Println()
	fmt.Println(msg)
	fmt.Print("Нажми Enter, чтобы продолжить...")
	_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: demo http://node1:8080 [container]")
		os.Exit(1)
	}

	base := os.Args[1]
	container := "orders"
	if len(os.Args) > 2 {
		container = os.Args[2]
	}

	fmt.Println("=== [ШАГ 1] effective partition keys ===")
	call(http.MethodGet, base, container, "epk", `["acme","o-1"]`)
	call(http.MethodGet, base, container, "epk", `["acme","o-2"]`)
	call(http.MethodGet, base, container, "epk", `["acme"]`)

	fmt.Println("\n=== [ШАГ 2] selectors -> effective ranges ===")
	call(http.MethodPost, base, container, "ranges", `{"pk":["acme","o-1"]}`)
	call(http.MethodPost, base, container, "ranges", `{"pk":["acme"]}`)

	fmt.Println("\n=== [ШАГ 3] текущая карта партиций ===")
	call(http.MethodGet, base, container, "pkranges", "")

	const tenants = 100
	fmt.Printf("\n=== [ШАГ 4] распределение %d тенантов по партициям ===\n", tenants)
	counts := distribution(base, container, tenants)
	for id, n := range counts {
		fmt.Printf("  partition %s → %d tenants\n", id, n)
	}

	pause(`=== [ШАГ 5] ТЕСТ SPLIT ===
Измени карту партиций в ZooKeeper (например, раздели одну партицию на две)
или перезапусти ноду с другой static-картой.
После этого проверим, что запросы маршрутизируются по новой топологии.`)

	call(http.MethodGet, base, container, "pkranges", "")
	after := distribution(base, container, tenants)

	fmt.Printf("\n=== РЕЗЮМЕ ПОСЛЕ ИЗМЕНЕНИЯ ТОПОЛОГИИ ===\n")
	for id, n := range after {
		fmt.Printf("  partition %s → %d tenants (было %d)\n", id, n, counts[id])
	}
}

func distribution(base, container string, tenants int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i < tenants; i++ {
		body := fmt.Sprintf(`{"pk":["tenant-%d"]}`, i)
		resp, err := http.Post(base+"/api/containers/"+url.PathEscape(container)+"/partitions", "application/json", strings.NewReader(body))
		if err != nil {
			fmt.Printf("[check] tenant-%d ERROR: %v\n", i, err)
			continue
		}
		var out struct {
			Partitions []struct {
				ID string `json:"id"`
			} `json:"partitions"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		_ = resp.Body.Close()
		if err != nil {
			fmt.Printf("[check] tenant-%d decode: %v\n", i, err)
			continue
		}
		for _, p := range out.Partitions {
			counts[p.ID]++
		}
	}
	return counts
}
