// Command smoke probes a running campaign API instance and verifies that
// every listed endpoint answers with its expected status. Intended for
// post-deploy checks; exits non-zero when a critical target fails.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	ExpectStatus int    `json:"expect_status"`
	Critical     bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base        string
		token       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", "", "Bearer token for authenticated targets")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var results []result
	criticalFailures := 0

	for _, t := range targets {
		res := probe(client, base, token, t)
		if !passed(res) && t.Critical {
			criticalFailures++
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Critical failures: %d\n", criticalFailures)
	if criticalFailures > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func probe(client *http.Client, base, token string, tgt target) result {
	res := result{Target: tgt}

	req, err := http.NewRequest(tgt.Method, strings.TrimRight(base, "/")+tgt.Path, nil)
	if err != nil {
		res.Err = err
		return res
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(started)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode
	return res
}

func passed(res result) bool {
	if res.Err != nil {
		return false
	}
	expected := res.Target.ExpectStatus
	if expected == 0 {
		expected = http.StatusOK
	}
	return res.Status == expected
}

func printReport(results []result) {
	for _, res := range results {
		mark := "ok  "
		if !passed(res) {
			mark = "FAIL"
		}
		if res.Err != nil {
			fmt.Printf("%s %-6s %-40s error: %v\n", mark, res.Target.Method, res.Target.Path, res.Err)
			continue
		}
		fmt.Printf("%s %-6s %-40s %d (%s)\n", mark, res.Target.Method, res.Target.Path, res.Status, res.Duration.Round(time.Millisecond))
	}
}
