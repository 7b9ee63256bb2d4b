package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

var (
	askK           int
	askFetchK      int
	askLambda      float64
	askStrategy    string
	askModels      []string
	askTemperature float64
	askMaxTokens   int
	askTimeout     time.Duration
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the passages most relevant to the question and asks the
generation backend to answer from them.

Candidate models are tried in order; a model the backend does not have is
skipped and the next one is tried. Repeat --model to set the candidates.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	addRetrievalFlags(askCmd, &askK, &askFetchK, &askLambda, &askStrategy)
	askCmd.Flags().StringArrayVarP(&askModels, "model", "m", nil, "candidate model, repeatable")
	askCmd.Flags().Float64Var(&askTemperature, "temperature", domain.DefaultTemperature, "sampling temperature")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "maximum tokens to generate (default from settings)")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 0, "timeout per generation attempt (default from settings)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

// addRetrievalFlags registers the flags shared by ask and retrieve.
// Zero values defer to the configured retrieval settings.
func addRetrievalFlags(cmd *cobra.Command, k, fetchK *int, lambda *float64, strategy *string) {
	cmd.Flags().IntVar(k, "k", 0, "number of chunks to retrieve (default 6)")
	cmd.Flags().IntVar(fetchK, "fetch-k", 0, "MMR candidate pool size (default 20)")
	cmd.Flags().Float64Var(lambda, "lambda", domain.DefaultLambdaMult, "MMR relevance/diversity trade-off in [0, 1]")
	cmd.Flags().StringVar(strategy, "strategy", "", "ranking strategy: mmr or similarity")
}

func retrievalOptions(cmd *cobra.Command, k, fetchK int, lambda float64, strategy string) (domain.RetrievalOptions, error) {
	opts := domain.RetrievalOptions{
		K:        k,
		FetchK:   fetchK,
		Strategy: domain.SearchStrategy(strings.ToLower(strategy)),
	}
	if opts.Strategy != "" && !opts.Strategy.IsValid() {
		return opts, fmt.Errorf("unknown strategy %q: %w", strategy, domain.ErrInvalidInput)
	}
	if cmd.Flags().Changed("lambda") {
		if lambda < 0 || lambda > 1 {
			return opts, fmt.Errorf("lambda %v must be in [0, 1]: %w", lambda, domain.ErrInvalidInput)
		}
		opts.LambdaMult = lambda
		opts.LambdaSet = true
	}
	return opts, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return fmt.Errorf("ask: %w", domain.ErrLLMUnavailable)
	}

	question := strings.TrimSpace(args[0])
	if question == "" {
		return fmt.Errorf("question: %w", domain.ErrInvalidInput)
	}

	retrieval, err := retrievalOptions(cmd, askK, askFetchK, askLambda, askStrategy)
	if err != nil {
		return err
	}

	opts := domain.AnswerOptions{
		Retrieval: retrieval,
		Models:    askModels,
		MaxTokens: askMaxTokens,
		Timeout:   askTimeout,
	}
	if cmd.Flags().Changed("temperature") {
		temperature := askTemperature
		opts.Temperature = &temperature
	}

	answer, err := answerService.Ask(cmd.Context(), question, opts)
	if errors.Is(err, domain.ErrNoRelevantDocuments) {
		cmd.Println("No relevant documents found. Run 'pdfqa ingest' first.")
		return err
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	outputAnswerText(cmd, answer)
	return nil
}

// answerJSON is the --json shape of an answer.
type answerJSON struct {
	Answer   string        `json:"answer"`
	Sources  []string      `json:"sources"`
	Model    string        `json:"model"`
	Attempts []attemptJSON `json:"attempts,omitempty"`
}

type attemptJSON struct {
	Model   string `json:"model"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	out := answerJSON{
		Answer:  answer.Text,
		Sources: answer.Sources,
		Model:   answer.Model,
	}
	for _, a := range answer.Attempts {
		attempt := attemptJSON{Model: a.Model, Outcome: a.Kind.String()}
		if a.Err != nil {
			attempt.Error = a.Err.Error()
		}
		out.Attempts = append(out.Attempts, attempt)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(strings.TrimSpace(answer.Text))
	cmd.Println()
	if len(answer.Sources) > 0 {
		cmd.Printf("Sources: %s\n", strings.Join(answer.Sources, ", "))
	}
	cmd.Printf("Model: %s\n", answer.Model)
}
