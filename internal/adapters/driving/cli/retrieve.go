package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

var (
	retrieveK        int
	retrieveFetchK   int
	retrieveLambda   float64
	retrieveStrategy string
	retrieveJSON     bool
)

// snippetLength bounds the chunk text shown per result.
const snippetLength = 200

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Show the chunks retrieved for a query",
	Long: `Embeds the query and prints the most relevant chunks from the vector
index without generating an answer. MMR ranking is used by default.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	addRetrievalFlags(retrieveCmd, &retrieveK, &retrieveFetchK, &retrieveLambda, &retrieveStrategy)
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errNotConfigured("retrieval")
	}

	opts, err := retrievalOptions(cmd, retrieveK, retrieveFetchK, retrieveLambda, retrieveStrategy)
	if err != nil {
		return err
	}

	results, err := retrievalService.Retrieve(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		return outputRetrieveJSON(cmd, results)
	}
	outputRetrieveTable(cmd, results)
	return nil
}

func outputRetrieveJSON(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if results == nil {
		results = []domain.RetrievalResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputRetrieveTable(cmd *cobra.Command, results []domain.RetrievalResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] source (score)
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, results[i].Source, results[i].Score)
		cmd.Printf("      %s\n", snippet(results[i].Text, snippetLength))
		cmd.Println()
	}
}

// snippet collapses whitespace and cuts text to at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
