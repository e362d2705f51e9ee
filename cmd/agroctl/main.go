// Package main implements the agroctl CLI for manual operations against the agrod HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the agrod HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agroctl",
	Short: "CLI for agrod HTTP server operations",
	Long: `agroctl is a command-line interface for interacting with the agrod HTTP server.
It provides commands for checking server health, verifying ledger credentials,
and listing the topics associated with an account.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3200", "agrod server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(topicsCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check agrod server health",
	Long: `Check the health status of the agrod HTTP server.

Examples:
  # Check health
  agroctl health

  # Check health on a different server
  agroctl health --server http://localhost:8080`,
	RunE: runHealth,
}

// verifyCmd verifies ledger credentials
var verifyCmd = &cobra.Command{
	Use:   "verify <account-id> <private-key>",
	Short: "Verify ledger credentials against the network",
	Long: `Verify that an account id and private key are structurally sound and that
the account resolves on the ledger index.

Examples:
  # Verify credentials
  agroctl verify 0.0.5171369 302e0201...`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

// topicsCmd lists the topics associated with an account
var topicsCmd = &cobra.Command{
	Use:   "topics <account-id>",
	Short: "List the topics associated with an account",
	Long: `Run topic discovery for an account and print the result.

Examples:
  # List topics
  agroctl topics 0.0.5171369`,
	Args: cobra.ExactArgs(1),
	RunE: runTopics,
}

// WalletRequest matches internal/server WalletRequest
type WalletRequest struct {
	AccountID  string `json:"accountId"`
	PrivateKey string `json:"privateKey,omitempty"`
}

// StatusResponse matches internal/server StatusResponse
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Topic matches internal/topics Topic
type Topic struct {
	TopicID        string `json:"topicId"`
	Memo           string `json:"memo"`
	Created        string `json:"created"`
	IsCreatedByYou bool   `json:"isCreatedByYou"`
	IsCurrent      bool   `json:"isCurrent,omitempty"`
}

// TopicsResponse matches internal/server TopicsResponse
type TopicsResponse struct {
	Success bool    `json:"success"`
	Topics  []Topic `json:"topics"`
	Error   string  `json:"error,omitempty"`
}

// HealthResponse matches internal/server HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)

	return nil
}

// runVerify handles the verify command
func runVerify(cmd *cobra.Command, args []string) error {
	reqBody := WalletRequest{
		AccountID:  args[0],
		PrivateKey: args[1],
	}

	var verifyResp StatusResponse
	status, err := postJSON("/api/connect-wallet", reqBody, &verifyResp)
	if err != nil {
		return err
	}

	if status != http.StatusOK || !verifyResp.Success {
		if verifyResp.Error != "" {
			return fmt.Errorf("verification failed: %s", verifyResp.Error)
		}
		return fmt.Errorf("verification failed (status %d)", status)
	}

	fmt.Printf("Credentials verified for account %s\n", args[0])
	return nil
}

// runTopics handles the topics command
func runTopics(cmd *cobra.Command, args []string) error {
	reqBody := WalletRequest{AccountID: args[0]}

	var topicsResp TopicsResponse
	status, err := postJSON("/api/user-topics", reqBody, &topicsResp)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		if topicsResp.Error != "" {
			return fmt.Errorf("discovery failed: %s", topicsResp.Error)
		}
		return fmt.Errorf("discovery failed (status %d)", status)
	}

	if len(topicsResp.Topics) == 0 {
		fmt.Printf("No topics found for account %s\n", args[0])
		return nil
	}

	fmt.Printf("Topics for account %s:\n", args[0])
	for _, t := range topicsResp.Topics {
		marker := " "
		if t.IsCurrent {
			marker = "*"
		}
		fmt.Printf("  %s %-14s %-30s %s\n", marker, t.TopicID, t.Memo, t.Created)
	}

	return nil
}

// postJSON issues a JSON POST against the agrod server and decodes the
// response body into out. The HTTP status is returned alongside so
// callers can report endpoint-specific failures.
func postJSON(path string, in, out any) (int, error) {
	reqJSON, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := serverURL + path
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return resp.StatusCode, nil
}
